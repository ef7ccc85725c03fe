package hex

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// EncodeToHex generates a hex string based on the byte representation, with the '0x' prefix
func EncodeToHex(str []byte) string {
	return "0x" + hex.EncodeToString(str)
}

// DecodeHex converts a hex string, with or without the '0x' prefix, to a byte array
func DecodeHex(str string) ([]byte, error) {
	str = strings.TrimPrefix(strings.TrimPrefix(str, "0x"), "0X")

	return hex.DecodeString(str)
}

// MustDecodeHex type-checks and converts a hex string to a byte array
func MustDecodeHex(str string) []byte {
	buf, err := DecodeHex(str)
	if err != nil {
		panic(fmt.Errorf("could not decode hex: %w", err))
	}

	return buf
}

// EncodeBig encodes bigint as a hex string with 0x prefix.
// The sign of the integer is ignored.
func EncodeBig(bigint *big.Int) string {
	if bigint.BitLen() == 0 {
		return "0x0"
	}

	return fmt.Sprintf("%#x", bigint)
}

// DecodeHexToBig converts a hex number, with or without the '0x' prefix, to a big.Int value
func DecodeHexToBig(hexNum string) (*big.Int, error) {
	cleaned := strings.TrimPrefix(hexNum, "0x")
	if cleaned == "" {
		return big.NewInt(0), nil
	}

	createdNum, ok := new(big.Int).SetString(cleaned, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex number '%s'", hexNum)
	}

	return createdNum, nil
}

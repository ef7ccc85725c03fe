package hex

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHex(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"0x0a0b", "0X0a0b", "0a0b"} {
		decoded, err := DecodeHex(input)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x0a, 0x0b}, decoded)
	}

	_, err := DecodeHex("0xzz")
	require.Error(t, err)

	assert.Panics(t, func() { MustDecodeHex("0x1") })
}

// TestDecodeHexToBig verifies that values survive an encode/decode cycle
func TestDecodeHexToBig(t *testing.T) {
	t.Parallel()

	values := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil),
	}

	for _, value := range values {
		decoded, err := DecodeHexToBig(EncodeBig(value))
		require.NoError(t, err)
		assert.Equal(t, 0, value.Cmp(decoded))
	}

	_, err := DecodeHexToBig("0xnothex")
	require.Error(t, err)
}

package helper

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// PasswordEnv is read when --password is omitted
const PasswordEnv = "FARM_ACCOUNT_PASSWORD"

var ErrNoPassword = errors.New("keystore password not provided, use --" + PasswordFlag + " or " + PasswordEnv)

// RegisterPasswordFlag registers the keystore password of named accounts
func RegisterPasswordFlag(cmd *cobra.Command, password *string) {
	cmd.Flags().StringVar(
		password,
		PasswordFlag,
		"",
		"the password of the account keystore, read from "+PasswordEnv+" or prompted for when omitted",
	)
}

// ResolvePassword returns the given password, falling back to the
// environment and then to a prompt when stdin is a terminal
func ResolvePassword(password string) (string, error) {
	return resolvePassword(password, promptPassword)
}

func resolvePassword(password string, prompt func() ([]byte, error)) (string, error) {
	if password != "" {
		return password, nil
	}

	if password = os.Getenv(PasswordEnv); password != "" {
		return password, nil
	}

	raw, err := prompt()
	if err != nil {
		return "", err
	}

	if len(raw) == 0 {
		return "", ErrNoPassword
	}

	return string(raw), nil
}

func promptPassword() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNoPassword
	}

	fmt.Fprint(os.Stderr, "Keystore password: ")

	raw, err := term.ReadPassword(fd)

	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return raw, nil
}

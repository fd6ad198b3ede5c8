package keystore

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// MinPasswordLength is enforced when a new keystore password is chosen
const MinPasswordLength = 8

// ErrNotTerminal is returned when a password prompt is attempted without an interactive stdin
var ErrNotTerminal = errors.New("stdin is not a terminal")

// PromptPassword prompts for password input (hides input)
//
//nolint:forbidigo // Password input requires direct terminal I/O
func PromptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", ErrNotTerminal
	}

	fmt.Fprint(os.Stderr, prompt)

	passwordBytes, err := term.ReadPassword(fd)
	if err != nil {
		return "", errors.Wrap(err, "failed to read password from terminal")
	}

	fmt.Fprintln(os.Stderr)

	return string(passwordBytes), nil
}

// PromptNewPassword asks for a password twice and enforces MinPasswordLength
func PromptNewPassword() (string, error) {
	password, err := PromptPassword(fmt.Sprintf("Enter password for keystore (min %d characters): ", MinPasswordLength))
	if err != nil {
		return "", err
	}

	if len(password) < MinPasswordLength {
		return "", errors.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	passwordConfirm, err := PromptPassword("Confirm password: ")
	if err != nil {
		return "", errors.Wrap(err, "failed to read password confirmation")
	}

	if password != passwordConfirm {
		return "", errors.New("passwords do not match")
	}

	return password, nil
}

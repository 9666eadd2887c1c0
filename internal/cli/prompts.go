package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mrz1836/idealink/internal/wallet"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// Prompt functions are variables so tests can replace them.
//
//nolint:gochecknoglobals // replaced in tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptConfirmFn     = promptConfirm
	promptMnemonicFn    = promptMnemonic
)

// stdinReader is shared so buffered input is not lost between prompts.
//
//nolint:gochecknoglobals // one reader per process
var stdinReader = bufio.NewReader(os.Stdin)

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	fd := int(os.Stdin.Fd()) //nolint:gosec // stdin descriptor fits in int
	if !term.IsTerminal(fd) {
		line, err := readLine(stdinReader)
		return []byte(line), err
	}

	password, err := term.ReadPassword(fd)
	outln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// promptNewPassword prompts for a new password with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Enter keystore password: ")
	if err != nil {
		return nil, err
	}
	if len(password) < wallet.MinPasswordLength {
		wallet.ZeroBytes(password)
		return nil, ilerr.WithSuggestion(ilerr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", wallet.MinPasswordLength))
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		wallet.ZeroBytes(password)
		return nil, err
	}
	defer wallet.ZeroBytes(confirm)

	if string(password) != string(confirm) {
		wallet.ZeroBytes(password)
		return nil, ilerr.WithSuggestion(ilerr.ErrInvalidInput, "passwords do not match")
	}
	return password, nil
}

// promptConfirm asks a yes/no question. Anything but y or yes is a no.
func promptConfirm(question string) bool {
	out(os.Stderr, "%s [y/N]: ", question)
	line, err := readLine(stdinReader)
	if err != nil {
		return false
	}
	response := strings.ToLower(strings.TrimSpace(line))
	return response == "y" || response == "yes"
}

// promptMnemonic reads a mnemonic phrase from one line of input.
func promptMnemonic() (string, error) {
	outln(os.Stderr, "Enter your mnemonic phrase (12 or 24 words on one line):")
	line, err := readLine(stdinReader)
	if err != nil {
		return "", fmt.Errorf("reading mnemonic: %w", err)
	}
	return line, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

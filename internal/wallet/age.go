package wallet

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"

	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// DefaultWorkFactor is the scrypt cost (log2 N) used for new keystores.
const DefaultWorkFactor = 18

// Encrypt encrypts plaintext to a password using an age scrypt recipient.
// A workFactor of zero selects DefaultWorkFactor.
func Encrypt(plaintext []byte, password string, workFactor int) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if workFactor <= 0 {
		workFactor = DefaultWorkFactor
	}
	if workFactor > 22 {
		return nil, fmt.Errorf("scrypt work factor %d too large", workFactor)
	}
	recipient.SetWorkFactor(workFactor)

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

// Decrypt decrypts ciphertext into secure memory. A wrong password or a
// damaged ciphertext yields ErrDecryptionFailed.
func Decrypt(ciphertext []byte, password string) (*SecureBytes, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, ilerr.WithCause(ilerr.ErrDecryptionFailed, err)
	}

	plaintext, err := io.ReadAll(r)
	defer ZeroBytes(plaintext)
	if err != nil {
		return nil, ilerr.WithCause(ilerr.ErrDecryptionFailed, err)
	}
	return NewSecureBytes(plaintext), nil
}

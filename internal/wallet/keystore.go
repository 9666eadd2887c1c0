package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/idealink/internal/chain/eth"
	"github.com/mrz1836/idealink/internal/fileutil"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

const (
	// KeystoreVersion is the current keystore file format version.
	KeystoreVersion = 1

	keystorePermissions = 0o600

	// MinPasswordLength is the shortest password accepted for a keystore.
	MinPasswordLength = 8
)

// ErrPasswordTooShort is returned when a new keystore password is too short.
var ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// Keystore is the on-disk development wallet. The BIP39 seed is stored
// age-encrypted; addresses are kept in the clear so they can be shown
// without a password.
type Keystore struct {
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	Addresses     []string  `json:"addresses"`
	EncryptedSeed []byte    `json:"encrypted_seed"`

	path string
}

// CreateParams configures a new keystore.
type CreateParams struct {
	Mnemonic   string
	Passphrase string // optional BIP39 passphrase
	Password   string
	Accounts   uint32
	WorkFactor int // zero selects DefaultWorkFactor
}

// KeystoreExists reports whether a keystore file is present at path.
func KeystoreExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CreateKeystore derives the accounts of the mnemonic and writes a new
// keystore to path. An existing file is never overwritten.
func CreateKeystore(path string, params CreateParams) (*Keystore, error) {
	if KeystoreExists(path) {
		return nil, ilerr.WithDetails(ilerr.ErrKeystoreExists, map[string]string{"path": path})
	}
	if len(params.Password) < MinPasswordLength {
		return nil, ilerr.WithCause(ilerr.ErrInvalidInput, ErrPasswordTooShort)
	}
	if params.Accounts == 0 {
		params.Accounts = 1
	}

	seed, err := MnemonicToSeed(params.Mnemonic, params.Passphrase)
	if err != nil {
		return nil, err
	}
	secure := NewSecureBytes(seed)
	ZeroBytes(seed)
	defer secure.Destroy()

	keys, err := DeriveKeys(secure.Bytes(), params.Accounts)
	if err != nil {
		return nil, err
	}
	addresses := make([]string, len(keys))
	for i, k := range keys {
		addresses[i] = eth.AddressFromKey(k).Hex()
	}

	encrypted, err := Encrypt(secure.Bytes(), params.Password, params.WorkFactor)
	if err != nil {
		return nil, err
	}

	ks := &Keystore{
		Version:       KeystoreVersion,
		CreatedAt:     time.Now().UTC(),
		Addresses:     addresses,
		EncryptedSeed: encrypted,
		path:          path,
	}
	if err := fileutil.WriteJSON(path, ks, keystorePermissions); err != nil {
		return nil, fmt.Errorf("writing keystore: %w", err)
	}
	return ks, nil
}

// LoadKeystore reads the keystore at path without decrypting it.
func LoadKeystore(path string) (*Keystore, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if errors.Is(err, os.ErrNotExist) {
		return nil, ilerr.WithDetails(ilerr.ErrKeystoreNotFound, map[string]string{"path": path})
	}
	if err != nil {
		return nil, fmt.Errorf("reading keystore: %w", err)
	}

	var ks Keystore
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, ilerr.WithDetails(ilerr.ErrDecryptionFailed, map[string]string{
			ilerr.DetailReason: "keystore file is not valid JSON",
		})
	}
	if ks.Version != KeystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", ks.Version)
	}
	if len(ks.Addresses) == 0 || len(ks.EncryptedSeed) == 0 {
		return nil, ilerr.WithDetails(ilerr.ErrDecryptionFailed, map[string]string{
			ilerr.DetailReason: "keystore file is incomplete",
		})
	}
	ks.path = path
	return &ks, nil
}

// Path returns the file the keystore was loaded from or written to.
func (k *Keystore) Path() string {
	return k.path
}

// Address returns the cached address of account index.
func (k *Keystore) Address(index uint32) (common.Address, error) {
	if int(index) >= len(k.Addresses) {
		return common.Address{}, ilerr.WithDetails(ilerr.ErrNotFound, map[string]string{
			"account": fmt.Sprintf("%d", index),
			"known":   fmt.Sprintf("%d", len(k.Addresses)),
		})
	}
	return common.HexToAddress(k.Addresses[index]), nil
}

// Unlock decrypts the seed. The caller must Destroy the result.
func (k *Keystore) Unlock(password string) (*SecureBytes, error) {
	return Decrypt(k.EncryptedSeed, password)
}

// Keys decrypts the seed and derives every account's private key. The
// derived addresses must match the cached ones.
func (k *Keystore) Keys(password string) ([]*ecdsa.PrivateKey, error) {
	seed, err := k.Unlock(password)
	if err != nil {
		return nil, err
	}
	defer seed.Destroy()

	keys, err := DeriveKeys(seed.Bytes(), uint32(len(k.Addresses))) //nolint:gosec // bounded by MaxAccounts
	if err != nil {
		return nil, err
	}
	for i, key := range keys {
		if !strings.EqualFold(eth.AddressFromKey(key).Hex(), k.Addresses[i]) {
			return nil, ilerr.WithDetails(ilerr.ErrDecryptionFailed, map[string]string{
				ilerr.DetailReason: fmt.Sprintf("account %d does not match the stored address", i),
			})
		}
	}
	return keys, nil
}

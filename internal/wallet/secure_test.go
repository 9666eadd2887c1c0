package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

func TestSecureBytes_CopiesInput(t *testing.T) {
	t.Parallel()
	src := []byte{1, 2, 3, 4}
	sb := NewSecureBytes(src)
	defer sb.Destroy()

	src[0] = 9
	assert.Equal(t, []byte{1, 2, 3, 4}, sb.Bytes())
	assert.Equal(t, 4, sb.Len())
}

func TestSecureBytes_Destroy(t *testing.T) {
	t.Parallel()
	sb := NewSecureBytes([]byte{1, 2, 3})
	data := sb.Bytes()

	sb.Destroy()
	assert.Equal(t, []byte{0, 0, 0}, data)
	assert.Nil(t, sb.Bytes())
	assert.Equal(t, 0, sb.Len())
	assert.False(t, sb.IsLocked())

	// second call is a no-op
	sb.Destroy()
}

func TestSecureBytes_Empty(t *testing.T) {
	t.Parallel()
	sb := NewSecureBytes(nil)
	defer sb.Destroy()
	assert.False(t, sb.IsLocked())
	assert.Equal(t, 0, sb.Len())
}

func TestEncryptDecrypt(t *testing.T) {
	t.Parallel()
	ciphertext, err := Encrypt([]byte("seed material"), "correct horse", 10)
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), "seed material")

	plain, err := Decrypt(ciphertext, "correct horse")
	require.NoError(t, err)
	defer plain.Destroy()
	assert.Equal(t, "seed material", string(plain.Bytes()))
}

func TestDecrypt_WrongPassword(t *testing.T) {
	t.Parallel()
	ciphertext, err := Encrypt([]byte("x"), "correct horse", 10)
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, "battery staple")
	require.ErrorIs(t, err, ilerr.ErrDecryptionFailed)
}

func TestDecrypt_Garbage(t *testing.T) {
	t.Parallel()
	_, err := Decrypt([]byte("not age"), "pw")
	require.ErrorIs(t, err, ilerr.ErrDecryptionFailed)
}

func TestEncrypt_WorkFactorTooLarge(t *testing.T) {
	t.Parallel()
	_, err := Encrypt([]byte("x"), "pw", 25)
	require.Error(t, err)
}

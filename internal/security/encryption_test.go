package security

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptor(t *testing.T) *Encryptor {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	encryptor, err := NewEncryptor(key)
	require.NoError(t, err)
	return encryptor
}

func TestEncryptor_EncryptDecrypt(t *testing.T) {
	encryptor := newTestEncryptor(t)

	testCases := []struct {
		name      string
		plaintext string
	}{
		{name: "simple text", plaintext: "Hello, World!"},
		{name: "medication ledger", plaintext: `[{"id":"1","name":"Ibuprofeno","inventory":12}]`},
		{name: "empty string", plaintext: ""},
		{name: "unicode text", plaintext: "Tomar con el estómago lleno, evitar alcohol"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, err := encryptor.Encrypt(tc.plaintext)
			require.NoError(t, err)

			if tc.plaintext == "" {
				assert.Equal(t, "", ciphertext)
				return
			}

			assert.NotEqual(t, tc.plaintext, ciphertext)
			assert.NotEmpty(t, ciphertext)

			decrypted, err := encryptor.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, decrypted)
		})
	}
}

func TestEncryptor_SealOpen(t *testing.T) {
	encryptor := newTestEncryptor(t)
	payload := []byte(`{"level":3,"currentPoints":120}`)

	sealed, err := encryptor.Seal(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "currentPoints")

	opened, err := encryptor.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, payload, opened)

	// Tampering must be detected
	sealed[len(sealed)-1] ^= 0xff
	_, err = encryptor.Open(sealed)
	assert.Error(t, err)
}

func TestEncryptor_InvalidKey(t *testing.T) {
	testCases := []struct {
		name    string
		keySize int
	}{
		{name: "too short", keySize: 16},
		{name: "too long", keySize: 64},
		{name: "empty", keySize: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key := make([]byte, tc.keySize)
			_, err := NewEncryptor(key)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "encryption key must be 32 bytes")
		})
	}
}

func TestNewEncryptorFromBase64(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	_, err = NewEncryptorFromBase64(base64.StdEncoding.EncodeToString(key))
	assert.NoError(t, err)

	_, err = NewEncryptorFromBase64("%%%")
	assert.Error(t, err)

	_, err = NewEncryptorFromBase64(base64.StdEncoding.EncodeToString(key[:8]))
	assert.Error(t, err)
}

func TestEncryptor_DifferentCiphertexts(t *testing.T) {
	encryptor := newTestEncryptor(t)
	plaintext := "sensitive medication data"

	ciphertext1, err := encryptor.Encrypt(plaintext)
	require.NoError(t, err)
	ciphertext2, err := encryptor.Encrypt(plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, ciphertext1, ciphertext2, "encrypting the same plaintext should produce different ciphertexts")

	decrypted1, err := encryptor.Decrypt(ciphertext1)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted1)

	decrypted2, err := encryptor.Decrypt(ciphertext2)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted2)
}

func TestEncryptor_InvalidCiphertext(t *testing.T) {
	encryptor := newTestEncryptor(t)

	testCases := []struct {
		name       string
		ciphertext string
	}{
		{name: "invalid base64", ciphertext: "not-valid-base64!!!"},
		{name: "too short", ciphertext: "YWJj"},
		{name: "corrupted data", ciphertext: "YWJjZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXo="},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := encryptor.Decrypt(tc.ciphertext)
			assert.Error(t, err)
		})
	}
}

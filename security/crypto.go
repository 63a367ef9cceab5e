package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32

	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
)

// ErrDecrypt is returned when a ciphertext cannot be opened with the given
// passphrase. Wrong passphrases and tampered data are indistinguishable.
var ErrDecrypt = errors.New("failed to decrypt api key")

func deriveKey(passphrase string, salt []byte) *[keySize]byte {
	var key [keySize]byte
	copy(key[:], argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keySize))
	return &key
}

// EncryptAPIKey seals apiKey with a key derived from passphrase.
// The output is base64(salt | nonce | box) so it can live in a TOML file.
func EncryptAPIKey(apiKey, passphrase string) (string, error) {
	if passphrase == "" {
		return "", fmt.Errorf("encryption passphrase is required")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+nonceSize+len(apiKey)+secretbox.Overhead)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, []byte(apiKey), &nonce, deriveKey(passphrase, salt))

	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptAPIKey reverses EncryptAPIKey.
func DecryptAPIKey(encrypted, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("invalid encrypted api key: %w", err)
	}
	if len(raw) < saltSize+nonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}

	salt := raw[:saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])

	plain, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, deriveKey(passphrase, salt))
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

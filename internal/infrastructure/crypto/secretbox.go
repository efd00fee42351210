// Package crypto encrypts individual column values at rest.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// ErrMalformedCiphertext is returned when a stored value cannot be opened
var ErrMalformedCiphertext = errors.New("crypto: malformed ciphertext")

// SecretboxCipher seals values with NaCl secretbox (XSalsa20-Poly1305).
// Output is base64(nonce|sealed).
type SecretboxCipher struct {
	key [keySize]byte
}

// NewSecretboxCipher creates a cipher from a 32-byte key
func NewSecretboxCipher(key []byte) (*SecretboxCipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("crypto: key must be %d bytes, got %d", keySize, len(key))
	}
	c := &SecretboxCipher{}
	copy(c.key[:], key)
	return c, nil
}

// Encrypt seals plaintext under a fresh random nonce
func (c *SecretboxCipher) Encrypt(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("crypto: read nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a value produced by Encrypt
func (c *SecretboxCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrMalformedCiphertext
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrMalformedCiphertext
	}
	return string(plain), nil
}

// EphemeralKey returns a random key. Development only: values sealed with it
// are unreadable after a restart.
func EphemeralKey() []byte {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Sprintf("crypto: read random key: %v", err))
	}
	return key
}

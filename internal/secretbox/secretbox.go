// Package secretbox provides authenticated symmetric encryption for secrets
// at rest (api.encrypted_secret). The ingest path never decrypts; only the
// management surface that issued the secret ever needs to read it back.
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Box seals and opens secrets with a single server-held key.
type Box struct {
	aead chacha20poly1305.AEAD
}

// NewBox builds a Box from a base64-encoded 32-byte key, as produced by
// GenerateKey. An empty key disables encryption (local development only);
// Seal/Open then operate as a transparent passthrough.
func NewBox(base64Key string) (*Box, error) {
	if base64Key == "" {
		return &Box{}, nil
	}

	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("decoding secret encryption key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secret encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("constructing cipher: %w", err)
	}

	return &Box{aead: aead}, nil
}

// GenerateKey returns a fresh base64-encoded 32-byte key suitable for NewBox.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Seal encrypts plaintext, returning nonce||ciphertext as raw bytes.
func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	if b.aead == nil {
		return plaintext, nil
	}

	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return b.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal.
func (b *Box) Open(blob []byte) ([]byte, error) {
	if b.aead == nil {
		return blob, nil
	}

	ns := b.aead.NonceSize()
	if len(blob) < ns {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := blob[:ns], blob[ns:]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting secret: %w", err)
	}
	return plaintext, nil
}

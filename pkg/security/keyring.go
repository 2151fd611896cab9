package security

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length of the symmetric key stored in the key file
const KeySize = chacha20poly1305.KeySize

// ErrMalformedCiphertext is returned when sealed data is too short or tampered with
var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// KeyRing seals and opens data with the application key.
// It is created once at startup and passed to the collaborators that need it.
type KeyRing struct {
	aead cipher.AEAD
}

// NewKeyRing creates a key ring from a raw key
func NewKeyRing(key []byte) (*KeyRing, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &KeyRing{aead: aead}, nil
}

// LoadOrCreateKeyRing reads the key file, generating it on first start
func LoadOrCreateKeyRing(path string) (*KeyRing, error) {
	key, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		key = make([]byte, KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create key directory: %w", err)
			}
		}
		if err := os.WriteFile(path, key, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write key file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return NewKeyRing(key)
}

// Seal encrypts plaintext; the random nonce is prepended to the output
func (k *KeyRing) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, k.aead.NonceSize(), k.aead.NonceSize()+len(plaintext)+k.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return k.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal
func (k *KeyRing) Open(sealed []byte) ([]byte, error) {
	ns := k.aead.NonceSize()
	if len(sealed) < ns+k.aead.Overhead() {
		return nil, ErrMalformedCiphertext
	}
	plaintext, err := k.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return plaintext, nil
}

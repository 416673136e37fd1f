package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

// Prefix marks a sealed value.
const Prefix = "enc:"

// KeySize is the secretbox key length in bytes.
const KeySize = 32

const nonceSize = 24

var (
	// ErrInvalidKey is returned when ENCRYPTION_KEY is missing or not a base64 32-byte key.
	ErrInvalidKey = errors.New("invalid encryption key: expected 32 bytes, base64 encoded")

	// ErrNotSealed is returned by Open when the value lacks the "enc:" prefix.
	ErrNotSealed = errors.New("value is not sealed")

	// ErrDecrypt is returned when the ciphertext is corrupt or the key is wrong.
	ErrDecrypt = errors.New("cannot decrypt value: wrong key or corrupt data")
)

// GenerateKey returns a new random key, base64 encoded.
func GenerateKey() (string, error) {
	var k [KeySize]byte
	if _, err := rand.Read(k[:]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(k[:]), nil
}

// ParseKey decodes a base64 key. Both URL-safe and standard alphabets are accepted.
func ParseKey(encoded string) (*[KeySize]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrInvalidKey
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.StdEncoding.DecodeString(encoded)
	}
	if err != nil || len(raw) != KeySize {
		return nil, ErrInvalidKey
	}

	var k [KeySize]byte
	copy(k[:], raw)
	return &k, nil
}

// IsSealed reports whether s carries the sealed-value prefix.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// Seal encrypts plaintext under key and returns the "enc:" form.
func Seal(key string, plaintext string) (string, error) {
	k, err := ParseKey(key)
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, k)
	return Prefix + base64.URLEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal.
func Open(key string, sealed string) (string, error) {
	if !IsSealed(sealed) {
		return "", ErrNotSealed
	}
	k, err := ParseKey(key)
	if err != nil {
		return "", err
	}

	box, err := base64.URLEncoding.DecodeString(strings.TrimPrefix(sealed, Prefix))
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])

	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, k)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// Reveal returns s unchanged unless it is sealed, in which case it is opened with key.
func Reveal(key string, s string) (string, error) {
	if !IsSealed(s) {
		return s, nil
	}
	return Open(key, s)
}

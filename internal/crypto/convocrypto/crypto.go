// Package convocrypto contains client-side primitives for conversation-log AEAD.
package convocrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Params
const (
	KeyLen   = chacha20poly1305.KeySize
	NonceLen = chacha20poly1305.NonceSize // 12
)

func Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// DeriveLogKey derives the per-user log key from root key material via
// HKDF-SHA256 using the user id as info. Binds ciphertexts to one identity
// even if root material were ever shared.
func DeriveLogKey(root []byte, userID string) ([]byte, error) {
	r := hkdf.New(sha256.New, root, nil, []byte("conversation-log/"+userID))
	key := make([]byte, KeyLen)
	_, err := r.Read(key)
	return key, err
}

// Seal encrypts plaintext with a fresh random nonce and returns
// base64(nonce||ciphertext).
func Seal(key, plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", err
	}
	nonce, err := Rand(NonceLen)
	if err != nil {
		return "", err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, nil)...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decodes and decrypts a blob produced by Seal. Any corruption,
// truncation or key mismatch yields an error, never garbage plaintext.
func Open(key []byte, blob string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, err
	}
	if len(raw) < NonceLen {
		return nil, errors.New("blob too short")
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := raw[:NonceLen]
	ct := raw[NonceLen:]
	return aead.Open(nil, nonce, ct, nil)
}

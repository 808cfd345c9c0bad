// Package conversation implements the encrypted local chat cache: the
// conversation cipher, the persisted log store and the chat session
// controller.
package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/Granville-Christopher/granalysis-sub000/internal/crypto/convocrypto"
	"github.com/Granville-Christopher/granalysis-sub000/internal/keyring"
)

// Cipher performs authenticated encryption of JSON payloads with per-user
// keys from the keyring.
type Cipher struct {
	keys *keyring.Manager
}

func NewCipher(keys *keyring.Manager) *Cipher {
	return &Cipher{keys: keys}
}

// Encrypt serializes v and seals it under the user's log key. The result is
// base64(nonce||ciphertext).
func (c *Cipher) Encrypt(userID string, v any) (string, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	root, err := c.keys.GetOrCreate(userID)
	if err != nil {
		return "", err
	}
	key, err := convocrypto.DeriveLogKey(root, userID)
	if err != nil {
		return "", err
	}
	return convocrypto.Seal(key, plain)
}

// Decrypt opens blob with the user's log key and unmarshals into dst.
// Returns false on any failure (wrong key, corrupted or tampered data,
// malformed JSON); callers must treat false exactly like "no data". It
// never panics and never surfaces an error.
func (c *Cipher) Decrypt(userID, blob string, dst any) bool {
	if blob == "" {
		return false
	}
	root, err := c.keys.GetOrCreate(userID)
	if err != nil {
		return false
	}
	key, err := convocrypto.DeriveLogKey(root, userID)
	if err != nil {
		return false
	}
	plain, err := convocrypto.Open(key, blob)
	if err != nil {
		return false
	}
	return json.Unmarshal(plain, dst) == nil
}

package conversation

import (
	"encoding/base64"
	"testing"

	"go.uber.org/zap"

	"github.com/Granville-Christopher/granalysis-sub000/internal/keyring"
	"github.com/Granville-Christopher/granalysis-sub000/internal/localstore"
	"github.com/Granville-Christopher/granalysis-sub000/internal/model"
)

func newCipher(t *testing.T) *Cipher {
	t.Helper()
	return NewCipher(keyring.New(localstore.NewMemory(), zap.NewNop()))
}

func TestCipher_Roundtrip(t *testing.T) {
	t.Parallel()
	c := newCipher(t)

	in := []model.ConversationMessage{
		{ID: "1", Role: model.RoleUser, Content: "hello", CreatedAtMs: 1000},
		{ID: "2", Role: model.RoleAssistant, Content: "hi there", CreatedAtMs: 2000},
	}
	blob, err := c.Encrypt("u1", in)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	var out []model.ConversationMessage
	if !c.Decrypt("u1", blob, &out) {
		t.Fatalf("Decrypt returned false on own blob")
	}
	if len(out) != 2 || out[0].Content != "hello" || out[1].Role != model.RoleAssistant {
		t.Fatalf("roundtrip mismatch: %+v", out)
	}
}

func TestCipher_WrongUserFailsOpen(t *testing.T) {
	t.Parallel()
	c := newCipher(t)
	blob, err := c.Encrypt("u1", []string{"secret"})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	var out []string
	if c.Decrypt("u2", blob, &out) {
		t.Fatalf("blob decrypted with another user's key")
	}
	if out != nil {
		t.Fatalf("dst mutated on failed decrypt: %v", out)
	}
}

func TestCipher_TamperFailsOpen(t *testing.T) {
	t.Parallel()
	c := newCipher(t)
	blob, _ := c.Encrypt("u1", map[string]int{"a": 1})

	raw, _ := base64.StdEncoding.DecodeString(blob)
	raw[len(raw)/2] ^= 0x80
	tampered := base64.StdEncoding.EncodeToString(raw)

	var out map[string]int
	if c.Decrypt("u1", tampered, &out) {
		t.Fatalf("tampered blob accepted")
	}
}

func TestCipher_GarbageFailsOpen(t *testing.T) {
	t.Parallel()
	c := newCipher(t)
	var out any
	if c.Decrypt("u1", "", &out) {
		t.Fatalf("empty blob accepted")
	}
	if c.Decrypt("u1", "@@@not-base64@@@", &out) {
		t.Fatalf("garbage blob accepted")
	}
}

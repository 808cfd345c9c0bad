package convocrypto

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"testing"
)

func TestRand_LengthUniq(t *testing.T) {
	t.Parallel()
	const n = 48
	a, err := Rand(n)
	if err != nil {
		t.Fatalf("Rand: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, _ := Rand(n)
	if bytes.Equal(a, b) {
		t.Fatalf("Rand produced equal slices")
	}
}

func TestDeriveLogKey_DeterministicAndUserDependent(t *testing.T) {
	t.Parallel()
	root, _ := Rand(KeyLen)
	k1, err := DeriveLogKey(root, "user-1")
	if err != nil {
		t.Fatalf("DeriveLogKey: %v", err)
	}
	k2, _ := DeriveLogKey(root, "user-1")
	if subtle.ConstantTimeCompare(k1, k2) != 1 {
		t.Fatalf("DeriveLogKey not deterministic")
	}
	k3, _ := DeriveLogKey(root, "user-2")
	if subtle.ConstantTimeCompare(k1, k3) != 0 {
		t.Fatalf("DeriveLogKey must change with user id")
	}
	root2, _ := Rand(KeyLen)
	k4, _ := DeriveLogKey(root2, "user-1")
	if subtle.ConstantTimeCompare(k1, k4) != 0 {
		t.Fatalf("DeriveLogKey must change with root material")
	}
}

func TestSealOpen_Roundtrip(t *testing.T) {
	t.Parallel()
	key, _ := Rand(KeyLen)
	pt := []byte(`[{"id":"1","role":"user","content":"hello"}]` + "\x00\x01")

	blob, err := Seal(key, pt)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if blob == string(pt) {
		t.Fatalf("ciphertext must differ from plaintext")
	}

	got, err := Open(key, blob)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, pt) {
		t.Fatalf("roundtrip mismatch")
	}
}

func TestSeal_FreshNoncePerCall(t *testing.T) {
	t.Parallel()
	key, _ := Rand(KeyLen)
	pt := []byte("same plaintext")
	b1, _ := Seal(key, pt)
	b2, _ := Seal(key, pt)
	if b1 == b2 {
		t.Fatalf("two Seal calls produced identical blobs (nonce reuse)")
	}
}

func TestOpen_RejectsWrongKey(t *testing.T) {
	t.Parallel()
	key, _ := Rand(KeyLen)
	other, _ := Rand(KeyLen)
	blob, _ := Seal(key, []byte("payload"))
	if _, err := Open(other, blob); err == nil {
		t.Fatalf("Open with wrong key must fail")
	}
}

func TestOpen_RejectsTamper(t *testing.T) {
	t.Parallel()
	key, _ := Rand(KeyLen)
	blob, _ := Seal(key, []byte("payload"))

	raw, _ := base64.StdEncoding.DecodeString(blob)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)
	if _, err := Open(key, tampered); err == nil {
		t.Fatalf("Open must reject flipped byte")
	}
}

func TestOpen_RejectsGarbage(t *testing.T) {
	t.Parallel()
	key, _ := Rand(KeyLen)
	if _, err := Open(key, "not base64 !!!"); err == nil {
		t.Fatalf("Open must reject invalid base64")
	}
	short := base64.StdEncoding.EncodeToString([]byte("tiny"))
	if _, err := Open(key, short); err == nil {
		t.Fatalf("Open must reject blob shorter than nonce")
	}
}

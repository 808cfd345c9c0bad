// Package keyring manages per-user symmetric key material for the local
// conversation cache.
package keyring

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Granville-Christopher/granalysis-sub000/internal/crypto/convocrypto"
	"github.com/Granville-Christopher/granalysis-sub000/internal/localstore"
)

const keyPrefix = "granalysis/key/"

// Manager creates and retrieves per-user key material. Keys are random,
// created on first use, never rotated automatically and never transmitted.
type Manager struct {
	kv  localstore.KV
	log *zap.Logger

	mu sync.Mutex
}

// New constructs a Manager over the given store.
func New(kv localstore.KV, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{kv: kv, log: log}
}

// GetOrCreate returns the stored key for userID, generating and persisting a
// fresh one if none exists. Creation is serialized in-process; across
// processes sharing a store the race resolves last-writer-wins, which is
// acceptable for a convenience cache.
func (m *Manager) GetOrCreate(userID string) ([]byte, error) {
	if userID == "" {
		return nil, errors.New("validation: empty userID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.kv.Get(keyPrefix + userID)
	switch {
	case err == nil:
		key, decErr := base64.StdEncoding.DecodeString(stored)
		if decErr == nil && len(key) == convocrypto.KeyLen {
			return key, nil
		}
		// unreadable key material: the cached log it protected is lost
		// anyway, so mint a replacement
		m.log.Warn("stored key material unreadable, regenerating",
			zap.String("userID", userID))
	case !errors.Is(err, localstore.ErrNoValue):
		return nil, fmt.Errorf("load key: %w", err)
	}

	key, err := convocrypto.Rand(convocrypto.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := m.kv.Set(keyPrefix+userID, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("persist key: %w", err)
	}
	return key, nil
}

package conversation

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Granville-Christopher/granalysis-sub000/internal/localstore"
	"github.com/Granville-Christopher/granalysis-sub000/internal/model"
)

const blobPrefix = "granalysis/conversation/"

// Store owns one user's conversation log. The in-memory log is the source of
// truth; every mutation re-encrypts the full log and overwrites the stored
// blob asynchronously. Saves are ordered by a monotonic version so a slow
// encrypt of an old snapshot can never overwrite a newer one.
type Store struct {
	userID string
	cipher *Cipher
	kv     localstore.KV
	log    *zap.Logger

	mu      sync.Mutex
	msgs    []model.ConversationMessage
	saveVer uint64

	persistMu sync.Mutex
	landedVer uint64

	wg sync.WaitGroup
}

// OpenStore loads the user's log from the store. A missing, corrupted or
// foreign-key blob degrades silently to an empty log; the cache is
// non-authoritative convenience data.
func OpenStore(userID string, cipher *Cipher, kv localstore.KV, log *zap.Logger) (*Store, error) {
	if userID == "" {
		return nil, errors.New("validation: empty userID")
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{userID: userID, cipher: cipher, kv: kv, log: log}

	blob, err := kv.Get(blobPrefix + userID)
	if err == nil {
		var msgs []model.ConversationMessage
		if cipher.Decrypt(userID, blob, &msgs) {
			s.msgs = msgs
		} else {
			log.Info("conversation blob undecryptable, starting empty",
				zap.String("userID", userID))
		}
	} else if !errors.Is(err, localstore.ErrNoValue) {
		return nil, err
	}
	return s, nil
}

// Messages returns a snapshot of the log.
func (s *Store) Messages() []model.ConversationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ConversationMessage(nil), s.msgs...)
}

// Len returns the current log length.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// Append adds a message to the log and schedules an asynchronous encrypted
// save of the full log.
func (s *Store) Append(msg model.ConversationMessage) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.saveVer++
	ver := s.saveVer
	snapshot := append([]model.ConversationMessage(nil), s.msgs...)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.persist(ver, snapshot)
	}()
}

// Flush waits for all scheduled saves to finish. Used at shutdown.
func (s *Store) Flush() {
	s.wg.Wait()
}

func (s *Store) persist(ver uint64, snapshot []model.ConversationMessage) {
	blob, err := s.cipher.Encrypt(s.userID, snapshot)
	if err != nil {
		// silent loss of the newest message is accepted; log only
		s.log.Warn("encrypt conversation log", zap.Error(err))
		return
	}
	s.commit(ver, blob)
}

// commit lands an encrypted snapshot unless a newer version already landed.
// The compare and the write happen under one lock so two completions cannot
// interleave.
func (s *Store) commit(ver uint64, blob string) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if ver < s.landedVer {
		return
	}
	if err := s.kv.Set(blobPrefix+s.userID, blob); err != nil {
		s.log.Warn("save conversation log", zap.Error(err))
		return
	}
	s.landedVer = ver
}

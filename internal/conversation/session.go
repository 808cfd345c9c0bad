package conversation

import (
	"context"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/Granville-Christopher/granalysis-sub000/internal/errs"
	"github.com/Granville-Christopher/granalysis-sub000/internal/model"
)

// errorReply is appended as an assistant message when the backend call
// fails; the session never surfaces a send failure as an error.
const errorReply = "Sorry, I couldn't process that right now. Please try again."

// ChatBackend is the slice of the dashboard backend the session needs.
type ChatBackend interface {
	// Ask submits a question, optionally scoped to an uploaded file.
	Ask(ctx context.Context, question string, fileID *int64) (string, error)
}

// Session orchestrates user input into the conversation log: optimistic
// local append, one backend round trip, reply (or inline error) append.
// Send is non-blocking; the caller resumes immediately.
type Session struct {
	store    *Store
	backend  ChatBackend
	log      *zap.Logger
	sanitize *bluemonday.Policy

	// OnUpdate, when set, fires after every log change.
	OnUpdate func()

	mu     sync.Mutex
	fileID *int64
	closed bool

	wg sync.WaitGroup
}

// NewSession constructs a session over an opened store.
func NewSession(store *Store, backend ChatBackend, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		store:    store,
		backend:  backend,
		log:      log,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// SetFileContext scopes subsequent questions to an uploaded file; nil clears.
func (s *Session) SetFileContext(id *int64) {
	s.mu.Lock()
	s.fileID = id
	s.mu.Unlock()
}

// Messages returns a snapshot of the conversation log.
func (s *Session) Messages() []model.ConversationMessage {
	return s.store.Messages()
}

// Send appends the user's question and fires the backend round trip in the
// background. The only error is rejection of empty input; backend failures
// surface as an inline assistant message, never as an error or panic.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errs.ErrEmptyMessage
	}
	question := s.sanitize.Sanitize(text)

	s.mu.Lock()
	fileID := s.fileID
	s.mu.Unlock()

	s.append(model.NewConversationMessage(model.RoleUser, question))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		answer, err := s.backend.Ask(ctx, question, fileID)
		if s.isClosed() {
			// session torn down while the request was in flight
			return
		}
		if err != nil {
			s.log.Warn("chat backend", zap.Error(err))
			s.append(model.NewConversationMessage(model.RoleAssistant, errorReply))
			return
		}
		s.append(model.NewConversationMessage(model.RoleAssistant, s.sanitize.Sanitize(answer)))
	}()
	return nil
}

// Close marks the session torn down: replies from still-in-flight requests
// are dropped instead of mutating the log.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Wait joins outstanding round trips; for tests and shutdown.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) append(msg model.ConversationMessage) {
	s.store.Append(msg)
	if s.OnUpdate != nil {
		s.OnUpdate()
	}
}

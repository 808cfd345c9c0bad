package ticket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Granville-Christopher/granalysis-sub000/internal/model"
)

// UnreadCount returns how many counterpart messages in t were created
// strictly after self's last read timestamp.
func UnreadCount(t model.Ticket, self model.SenderType) int {
	counterpart := self.Counterpart()
	lastRead := t.ReadBy.For(self)
	n := 0
	for _, m := range t.Messages {
		if m.SenderType == counterpart && m.CreatedAt > lastRead {
			n++
		}
	}
	return n
}

// Tracker records read timestamps when a ticket is opened. The server call
// is fire-and-forget: the local replica is marked immediately, the request
// runs in the background and a failure is logged, not retried.
type Tracker struct {
	backend Backend
	state   *State
	log     *zap.Logger

	wg sync.WaitGroup
}

func NewTracker(backend Backend, state *State, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{backend: backend, state: state, log: log}
}

// MarkRead is invoked whenever a ticket becomes the selected ticket.
func (tr *Tracker) MarkRead(ctx context.Context, ticketID string) {
	tr.state.MarkReadLocal(ticketID, time.Now().UnixMilli())

	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		if err := tr.backend.MarkRead(ctx, ticketID); err != nil {
			tr.log.Warn("mark-read", zap.String("ticketID", ticketID), zap.Error(err))
		}
	}()
}

// Wait joins outstanding mark-read calls; for tests and shutdown.
func (tr *Tracker) Wait() {
	tr.wg.Wait()
}

package ticket

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Granville-Christopher/granalysis-sub000/internal/model"
)

// Backend is the slice of the dashboard backend the synchronizer needs.
// *backend.Client satisfies it.
type Backend interface {
	ListTickets(ctx context.Context) ([]model.Ticket, error)
	GetTicket(ctx context.Context, id string) (model.Ticket, error)
	Reply(ctx context.Context, id, message string) (model.Ticket, error)
	MarkRead(ctx context.Context, id string) error
}

// UIEvents receives view-level signals from the detail loop.
type UIEvents interface {
	// ScrollToLatest asks the detail view to scroll to the newest message.
	ScrollToLatest(ticketID string)
}

// Poller runs the two interval loops that pull server ticket state and
// reconcile it into State. A failed tick is logged and swallowed; the next
// scheduled tick retries with no backoff.
type Poller struct {
	backend Backend
	state   *State
	gate    *Gate
	ui      UIEvents // optional
	log     *zap.Logger
}

func NewPoller(backend Backend, state *State, gate *Gate, ui UIEvents, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{backend: backend, state: state, gate: gate, ui: ui, log: log}
}

// RunList polls the full ticket list until ctx is cancelled. It runs
// regardless of selection; alerting for the selected ticket is deferred to
// the detail loop via the gate.
func (p *Poller) RunList(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tickList(ctx)
		}
	}
}

// RunDetail polls the selected ticket until ctx is cancelled. Ticks while
// nothing is selected are no-ops.
func (p *Poller) RunDetail(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tickDetail(ctx)
		}
	}
}

func (p *Poller) tickList(ctx context.Context) {
	tickets, err := p.backend.ListTickets(ctx)
	if err != nil {
		p.log.Warn("list poll", zap.Error(err))
		return
	}
	selected := p.state.Selected()
	for _, t := range tickets {
		p.gate.ObserveList(t, selected)
	}
	p.state.ApplyServerList(tickets)
}

func (p *Poller) tickDetail(ctx context.Context) {
	id := p.state.Selected()
	if id == "" {
		return
	}
	t, err := p.backend.GetTicket(ctx, id)
	if err != nil {
		p.log.Warn("detail poll", zap.String("ticketID", id), zap.Error(err))
		return
	}
	// selection may have moved while the fetch was in flight; the merge is
	// still valid but the cursor now belongs to the list loop
	if p.state.Selected() != id {
		p.state.ApplyServer(t)
		return
	}
	grew := p.gate.ObserveDetail(t)
	p.state.ApplyServer(t)
	if grew && p.ui != nil {
		if n := t.Newest(); n != nil && n.SenderType == model.SenderAdmin {
			p.ui.ScrollToLatest(id)
		}
	}
}

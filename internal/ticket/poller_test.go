package ticket

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Granville-Christopher/granalysis-sub000/internal/backend"
	"github.com/Granville-Christopher/granalysis-sub000/internal/backend/backendtest"
	"github.com/Granville-Christopher/granalysis-sub000/internal/model"
)

// pollerBackend is a concurrency-safe fake for loop tests.
type pollerBackend struct {
	mu      sync.Mutex
	tickets map[string]model.Ticket
	listErr error
	getErr  error
	onGet   func() // runs while a detail fetch is "in flight"
	gets    int
}

func newPollerBackend(ts ...model.Ticket) *pollerBackend {
	m := make(map[string]model.Ticket, len(ts))
	for _, t := range ts {
		m[t.ID] = t
	}
	return &pollerBackend{tickets: m}
}

func (p *pollerBackend) set(t model.Ticket) {
	p.mu.Lock()
	p.tickets[t.ID] = t
	p.mu.Unlock()
}

func (p *pollerBackend) ListTickets(context.Context) ([]model.Ticket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	out := make([]model.Ticket, 0, len(p.tickets))
	for _, t := range p.tickets {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (p *pollerBackend) GetTicket(_ context.Context, id string) (model.Ticket, error) {
	p.mu.Lock()
	p.gets++
	t, ok := p.tickets[id]
	err := p.getErr
	hook := p.onGet
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return model.Ticket{}, err
	}
	if !ok {
		return model.Ticket{}, errors.New("not found")
	}
	return t.Clone(), nil
}

func (p *pollerBackend) Reply(context.Context, string, string) (model.Ticket, error) {
	return model.Ticket{}, errors.New("not used")
}

func (p *pollerBackend) MarkRead(context.Context, string) error { return nil }

type scrollRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (s *scrollRecorder) ScrollToLatest(ticketID string) {
	s.mu.Lock()
	s.ids = append(s.ids, ticketID)
	s.mu.Unlock()
}

func (s *scrollRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func TestPoller_DetailTick_AlertAndScroll(t *testing.T) {
	t.Parallel()
	fb := newPollerBackend(ticketWith("t1", model.SenderUser))
	state := NewState()
	state.Select("t1")
	alerter := newCountAlerter()
	scroll := &scrollRecorder{}
	p := NewPoller(fb, state, NewGate(NewCursors(), alerter, zap.NewNop()), scroll, zap.NewNop())

	p.tickDetail(context.Background()) // baseline: 1 message, newest is user
	if alerter.count("t1") != 0 {
		t.Fatalf("alerted on user-newest baseline")
	}

	fb.set(ticketWith("t1", model.SenderUser, model.SenderAdmin))
	p.tickDetail(context.Background())
	if alerter.count("t1") != 1 {
		t.Fatalf("alerts=%d, want 1", alerter.count("t1"))
	}
	if scroll.count() != 1 {
		t.Fatalf("scroll not requested")
	}

	// repeated tick with no growth: nothing fires
	p.tickDetail(context.Background())
	if alerter.count("t1") != 1 || scroll.count() != 1 {
		t.Fatalf("duplicate signal on unchanged ticket")
	}

	got, _ := state.Get("t1")
	if len(got.Messages) != 2 {
		t.Fatalf("state not reconciled: %d", len(got.Messages))
	}
}

func TestPoller_DetailTick_NoSelectionNoFetch(t *testing.T) {
	t.Parallel()
	fb := newPollerBackend(ticketWith("t1", model.SenderUser))
	p := NewPoller(fb, NewState(), NewGate(NewCursors(), nil, zap.NewNop()), nil, zap.NewNop())

	p.tickDetail(context.Background())
	if fb.gets != 0 {
		t.Fatalf("detail tick fetched with no selection")
	}
}

func TestPoller_ListTick_AlertsNonSelectedOnly(t *testing.T) {
	t.Parallel()
	open := ticketWith("open", model.SenderUser, model.SenderAdmin)
	other := ticketWith("other", model.SenderUser, model.SenderAdmin)
	fb := newPollerBackend(open, other)

	state := NewState()
	state.Select("open")
	alerter := newCountAlerter()
	p := NewPoller(fb, state, NewGate(NewCursors(), alerter, zap.NewNop()), nil, zap.NewNop())

	p.tickList(context.Background())
	if alerter.count("other") != 1 {
		t.Fatalf("non-selected ticket not alerted")
	}
	if alerter.count("open") != 0 {
		t.Fatalf("list loop alerted for the open ticket")
	}
	if len(state.List()) != 2 {
		t.Fatalf("list not reconciled")
	}
}

func TestPoller_TickErrorSwallowed(t *testing.T) {
	t.Parallel()
	fb := newPollerBackend(ticketWith("t1", model.SenderUser, model.SenderAdmin))
	fb.listErr = errors.New("502 bad gateway")
	state := NewState()
	alerter := newCountAlerter()
	p := NewPoller(fb, state, NewGate(NewCursors(), alerter, zap.NewNop()), nil, zap.NewNop())

	p.tickList(context.Background())
	if len(state.List()) != 0 {
		t.Fatalf("failed tick mutated state")
	}

	// next tick recovers with no special handling
	fb.mu.Lock()
	fb.listErr = nil
	fb.mu.Unlock()
	p.tickList(context.Background())
	if len(state.List()) != 1 || alerter.count("t1") != 1 {
		t.Fatalf("recovery tick did not reconcile/alert")
	}
}

func TestPoller_DetailSupersededSelection(t *testing.T) {
	t.Parallel()
	fb := newPollerBackend(ticketWith("t1", model.SenderUser, model.SenderAdmin))
	state := NewState()
	state.Select("t1")
	cursors := NewCursors()
	alerter := newCountAlerter()
	p := NewPoller(fb, state, NewGate(cursors, alerter, zap.NewNop()), nil, zap.NewNop())

	// the ticket is deselected while the fetch is in flight
	fb.onGet = func() { state.Deselect() }
	p.tickDetail(context.Background())

	if alerter.count("t1") != 0 {
		t.Fatalf("superseded detail tick alerted")
	}
	if cursors.Get("t1") != 0 {
		t.Fatalf("superseded detail tick advanced the cursor")
	}
	// the fetched copy is still merged
	if _, ok := state.Get("t1"); !ok {
		t.Fatalf("fetched ticket discarded")
	}
}

func TestPoller_RunLoopsAgainstStub(t *testing.T) {
	t.Parallel()
	stub := backendtest.New()
	srv := httptest.NewServer(stub.Router())
	t.Cleanup(srv.Close)
	client := backend.New(backend.Config{BaseURL: srv.URL}, zap.NewNop())

	id := stub.Seed("billing", "my invoice is wrong")

	state := NewState()
	state.Select(id)
	alerter := newCountAlerter()
	p := NewPoller(client, state, NewGate(NewCursors(), alerter, zap.NewNop()), &scrollRecorder{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); p.RunDetail(ctx, 5*time.Millisecond) }()
	go func() { defer wg.Done(); p.RunList(ctx, 8*time.Millisecond) }()

	// let both loops observe the baseline, then inject admin traffic
	time.Sleep(30 * time.Millisecond)
	stub.AddAdminMessage(id, "we are on it")

	deadline := time.Now().Add(2 * time.Second)
	for alerter.count(id) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	if got := alerter.count(id); got != 1 {
		t.Fatalf("alerts=%d, want exactly 1", got)
	}
	cached, ok := state.Get(id)
	if !ok || len(cached.Messages) != 2 {
		t.Fatalf("state not reconciled: %+v", cached)
	}
}

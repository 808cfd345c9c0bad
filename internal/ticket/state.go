package ticket

import (
	"sort"
	"sync"

	"github.com/Granville-Christopher/granalysis-sub000/internal/model"
)

// State is the client's cached replica of the user's tickets plus the
// current selection. It is the only writer of ticket data; pollers and the
// reply controller mutate it exclusively through its methods.
type State struct {
	mu       sync.Mutex
	tickets  map[string]model.Ticket
	pending  map[string][]model.TicketMessage // provisional replies per ticket
	selected string
}

func NewState() *State {
	return &State{
		tickets: make(map[string]model.Ticket),
		pending: make(map[string][]model.TicketMessage),
	}
}

// Select marks a ticket as open in the detail view.
func (s *State) Select(ticketID string) {
	s.mu.Lock()
	s.selected = ticketID
	s.mu.Unlock()
}

// Deselect closes the detail view.
func (s *State) Deselect() {
	s.Select("")
}

// Selected returns the open ticket id, empty when none.
func (s *State) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Get returns a copy of the cached ticket.
func (s *State) Get(ticketID string) (model.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return model.Ticket{}, false
	}
	return t.Clone(), true
}

// List returns copies of all cached tickets ordered by creation time.
func (s *State) List() []model.Ticket {
	s.mu.Lock()
	out := make([]model.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t.Clone())
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

// ApplyServer reconciles a server-fetched ticket into the cache: the server
// copy overlays the cached fields, then any reply still in flight is
// re-appended so reconciliation never makes an optimistic message vanish
// before its request settles.
func (s *State) ApplyServer(t model.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyServerLocked(t)
}

// ApplyServerList reconciles a full list fetch.
func (s *State) ApplyServerList(ts []model.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ts {
		s.applyServerLocked(t)
	}
}

func (s *State) applyServerLocked(t model.Ticket) {
	merged := t.Clone()
	merged.Messages = append(merged.Messages, s.pending[t.ID]...)
	s.tickets[t.ID] = merged
}

// InsertProvisional appends a client-minted reply to the cached ticket and
// tracks it as pending until resolved or rolled back.
func (s *State) InsertProvisional(ticketID string, m model.TicketMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[ticketID] = append(s.pending[ticketID], m)
	t := s.tickets[ticketID]
	if t.ID == "" {
		t.ID = ticketID
	}
	t.Messages = append(t.Messages, m)
	s.tickets[ticketID] = t
}

// ResolveProvisional replaces the cached ticket with the server's
// authoritative copy after a successful reply; the server list supersedes
// the provisional entry, which stops being pending.
func (s *State) ResolveProvisional(ticketID string, id model.MessageID, server model.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropPendingLocked(ticketID, id)
	s.applyServerLocked(server)
}

// RemoveProvisional rolls back a failed reply, removing only the
// provisional entry by its id.
func (s *State) RemoveProvisional(ticketID string, id model.MessageID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropPendingLocked(ticketID, id)
	t, ok := s.tickets[ticketID]
	if !ok {
		return
	}
	kept := t.Messages[:0]
	for _, m := range t.Messages {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	t.Messages = kept
	s.tickets[ticketID] = t
}

// MarkReadLocal records the user's read timestamp on the cached replica.
func (s *State) MarkReadLocal(ticketID string, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return
	}
	t.ReadBy.Set(model.SenderUser, ts)
	s.tickets[ticketID] = t
}

func (s *State) dropPendingLocked(ticketID string, id model.MessageID) {
	kept := s.pending[ticketID][:0]
	for _, m := range s.pending[ticketID] {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		delete(s.pending, ticketID)
	} else {
		s.pending[ticketID] = kept
	}
}

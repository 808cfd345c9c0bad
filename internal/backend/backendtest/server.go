// Package backendtest is an in-memory implementation of the dashboard
// backend routes, used as a test fixture and by the local dev stub.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/Granville-Christopher/granalysis-sub000/internal/model"
)

// Server holds the in-memory ticket table. All mutators are safe for
// concurrent use.
type Server struct {
	// Answer produces the canned /ai/chat reply; defaults to an echo.
	Answer func(question string) string

	mu      sync.Mutex
	tickets map[string]*model.Ticket
	nextTkt int
	nextMsg int
}

func New() *Server {
	return &Server{tickets: make(map[string]*model.Ticket)}
}

// Router returns the HTTP handler for all backend routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Post("/ai/chat", s.handleChat)
	r.Get("/messages", s.handleList)
	r.Post("/messages", s.handleCreate)
	r.Get("/messages/{id}", s.handleGet)
	r.Post("/messages/{id}/reply", s.handleReply)
	r.Post("/messages/{id}/mark-read", s.handleMarkRead)
	return r
}

// ---- seeding hooks for tests and the dev stub ----

// Seed inserts a ticket with an opening user message and returns its id.
func (s *Server) Seed(subject, message string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.newTicketLocked(subject)
	s.appendLocked(t, model.SenderUser, "You", message)
	return t.ID
}

// AddAdminMessage appends a counterpart message, simulating admin traffic.
func (s *Server) AddAdminMessage(ticketID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[ticketID]; ok {
		s.appendLocked(t, model.SenderAdmin, "Support", text)
	}
}

// SetReadBy overrides a read mark, for unread-count scenarios.
func (s *Server) SetReadBy(ticketID string, side model.SenderType, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[ticketID]; ok {
		t.ReadBy.Set(side, ts)
	}
}

// Tickets returns deep copies of all stored tickets.
func (s *Server) Tickets() []model.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t.Clone())
	}
	return out
}

// Ticket returns a deep copy of the stored ticket.
func (s *Server) Ticket(ticketID string) (model.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return model.Ticket{}, false
	}
	return t.Clone(), true
}

func (s *Server) newTicketLocked(subject string) *model.Ticket {
	s.nextTkt++
	now := time.Now().UnixMilli()
	t := &model.Ticket{
		ID:        fmt.Sprintf("t-%d", s.nextTkt),
		Subject:   subject,
		Status:    model.TicketOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tickets[t.ID] = t
	return t
}

func (s *Server) appendLocked(t *model.Ticket, sender model.SenderType, name, text string) {
	s.nextMsg++
	ts := time.Now().UnixMilli()
	if n := t.Newest(); n != nil && n.CreatedAt >= ts {
		// keep createdAt strictly increasing within a ticket
		ts = n.CreatedAt + 1
	}
	t.Messages = append(t.Messages, model.TicketMessage{
		ID:         model.MessageID(fmt.Sprintf("m-%d", s.nextMsg)),
		SenderID:   string(sender),
		SenderType: sender,
		SenderName: name,
		Message:    text,
		CreatedAt:  ts,
	})
	t.UpdatedAt = ts
}

// ---- handlers ----

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		FileID   *int64 `json:"fileId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	answer := "echo: " + req.Question
	if s.Answer != nil {
		answer = s.Answer(req.Question)
	}
	writeJSON(w, map[string]string{"answer": answer})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]model.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t.Clone())
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	writeJSON(w, map[string]any{"status": "ok", "tickets": out})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	t := s.newTicketLocked(req.Subject)
	s.appendLocked(t, model.SenderUser, "You", req.Message)
	out := t.Clone()
	s.mu.Unlock()
	writeJSON(w, map[string]any{"status": "ok", "ticket": out})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	t, ok := s.tickets[id]
	var out model.Ticket
	if ok {
		out = t.Clone()
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"ticket": out})
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	t, ok := s.tickets[id]
	var out model.Ticket
	if ok {
		s.appendLocked(t, model.SenderUser, "You", req.Message)
		out = t.Clone()
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "ticket": out})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	t, ok := s.tickets[id]
	if ok {
		t.ReadBy.Set(model.SenderUser, time.Now().UnixMilli())
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

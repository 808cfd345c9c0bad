// Package model defines domain entities shared by the chat cache and the
// ticket synchronizer.
package model

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role identifies the author of an assistant-chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SenderType identifies a support-ticket participant.
type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAdmin SenderType = "admin"
)

// Counterpart returns the opposite side of the conversation.
func (s SenderType) Counterpart() SenderType {
	if s == SenderUser {
		return SenderAdmin
	}
	return SenderUser
}

// MessageID is a ticket-message identifier. Server-issued ids are
// authoritative; provisional ids come from NewProvisionalID and live in a
// namespace the server never issues from, so the two can never collide.
type MessageID string

const provisionalNS = "local:"

// NewProvisionalID mints a client-side id for a message not yet acknowledged
// by the server. Provisional ids must never be sent to the server.
func NewProvisionalID() MessageID {
	return MessageID(provisionalNS + uuid.Must(uuid.NewV4()).String())
}

// Provisional reports whether the id was client-minted.
func (id MessageID) Provisional() bool {
	return strings.HasPrefix(string(id), provisionalNS)
}

// ConversationMessage is one entry in the locally cached assistant chat log.
// Content is sanitized markup; CreatedAtMs is wall-clock ms since epoch.
type ConversationMessage struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	Content     string `json:"content"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// NewConversationMessage stamps a fresh log entry.
func NewConversationMessage(role Role, content string) ConversationMessage {
	return ConversationMessage{
		ID:          uuid.Must(uuid.NewV4()).String(),
		Role:        role,
		Content:     content,
		CreatedAtMs: time.Now().UnixMilli(),
	}
}

// TicketStatus is the server-owned lifecycle state of a ticket.
type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// TicketMessage is one message inside a support ticket. CreatedAt is ms
// since epoch; tickets keep messages ordered ascending by it.
type TicketMessage struct {
	ID         MessageID  `json:"id"`
	SenderID   string     `json:"senderId"`
	SenderType SenderType `json:"senderType"`
	SenderName string     `json:"senderName"`
	Message    string     `json:"message"`
	CreatedAt  int64      `json:"createdAt"`
}

// ReadMarks records, per participant, the last time that side marked the
// ticket read (ms since epoch, zero = never).
type ReadMarks struct {
	User  int64 `json:"user,omitempty"`
	Admin int64 `json:"admin,omitempty"`
}

// For returns the read timestamp recorded for the given side.
func (r ReadMarks) For(s SenderType) int64 {
	if s == SenderAdmin {
		return r.Admin
	}
	return r.User
}

// Set records a read timestamp for the given side.
func (r *ReadMarks) Set(s SenderType, ts int64) {
	if s == SenderAdmin {
		r.Admin = ts
	} else {
		r.User = ts
	}
}

// Ticket is the client's eventually-consistent replica of a server-owned
// support thread.
type Ticket struct {
	ID        string          `json:"id"`
	Subject   string          `json:"subject"`
	Status    TicketStatus    `json:"status"`
	Messages  []TicketMessage `json:"messages"`
	ReadBy    ReadMarks       `json:"readBy"`
	CreatedAt int64           `json:"createdAt"`
	UpdatedAt int64           `json:"updatedAt"`
}

// Clone returns a deep copy; the message slice is never shared.
func (t Ticket) Clone() Ticket {
	out := t
	out.Messages = append([]TicketMessage(nil), t.Messages...)
	return out
}

// Newest returns the last message or nil for an empty ticket.
func (t Ticket) Newest() *TicketMessage {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}

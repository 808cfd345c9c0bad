// Package backend is the HTTP client for the dashboard backend: the
// assistant chat endpoint and the support-ticket routes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Granville-Christopher/granalysis-sub000/internal/errs"
	"github.com/Granville-Christopher/granalysis-sub000/internal/model"
)

const defaultRequestTimeout = 15 * time.Second

// Config configures the backend client. RequestTimeout is applied per
// request; there are no retries at this layer.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	// SessionPath is the bearer-session file; empty disables auth headers.
	SessionPath string
}

// Client talks to the dashboard backend over HTTP/JSON.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

// New constructs a Client, applying config defaults.
func New(cfg Config, log *zap.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{cfg: cfg, http: &http.Client{}, log: log}
}

// ---- wire types ----

type chatRequest struct {
	Question string `json:"question"`
	FileID   *int64 `json:"fileId,omitempty"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

type ticketListResponse struct {
	Status  string         `json:"status"`
	Tickets []model.Ticket `json:"tickets"`
}

type ticketResponse struct {
	Status string       `json:"status,omitempty"`
	Ticket model.Ticket `json:"ticket"`
}

type createTicketRequest struct {
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

type replyRequest struct {
	Message string `json:"message"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// ---- operations ----

// Ask submits an assistant question, optionally scoped to an uploaded file.
func (c *Client) Ask(ctx context.Context, question string, fileID *int64) (string, error) {
	var out chatResponse
	err := c.do(ctx, http.MethodPost, "/ai/chat", chatRequest{Question: question, FileID: fileID}, &out)
	if err != nil {
		return "", err
	}
	return out.Answer, nil
}

// ListTickets fetches all of the user's tickets.
func (c *Client) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	var out ticketListResponse
	if err := c.do(ctx, http.MethodGet, "/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Tickets, nil
}

// GetTicket fetches one ticket with its full message list.
func (c *Client) GetTicket(ctx context.Context, id string) (model.Ticket, error) {
	var out ticketResponse
	if err := c.do(ctx, http.MethodGet, "/messages/"+id, nil, &out); err != nil {
		return model.Ticket{}, err
	}
	return out.Ticket, nil
}

// CreateTicket opens a new support thread.
func (c *Client) CreateTicket(ctx context.Context, subject, message string) (model.Ticket, error) {
	var out ticketResponse
	err := c.do(ctx, http.MethodPost, "/messages", createTicketRequest{Subject: subject, Message: message}, &out)
	if err != nil {
		return model.Ticket{}, err
	}
	return out.Ticket, nil
}

// Reply posts a reply and returns the server's authoritative ticket copy.
func (c *Client) Reply(ctx context.Context, id, message string) (model.Ticket, error) {
	var out ticketResponse
	err := c.do(ctx, http.MethodPost, "/messages/"+id+"/reply", replyRequest{Message: message}, &out)
	if err != nil {
		return model.Ticket{}, err
	}
	return out.Ticket, nil
}

// MarkRead records the user's read timestamp for a ticket server-side.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	var out statusResponse
	return c.do(ctx, http.MethodPost, "/messages/"+id+"/mark-read", struct{}{}, &out)
}

// do performs one JSON round trip with the configured timeout and bearer
// session, mapping well-known statuses onto sentinels.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.SessionPath != "" {
		token, err := LoadSession(c.cfg.SessionPath)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errs.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return errs.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

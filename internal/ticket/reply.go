package ticket

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Granville-Christopher/granalysis-sub000/internal/errs"
	"github.com/Granville-Christopher/granalysis-sub000/internal/model"
)

// ReplyEvents receives the outcome signals the UI needs: rollback hands the
// original text back so the input field can be restored for a retry.
type ReplyEvents interface {
	ReplyFailed(ticketID, text string, err error)
}

// ReplyController sends ticket replies with an optimistic local insert and
// rollback on failure. The caller clears its input field on Reply returning
// nil; the text comes back through ReplyFailed if the request fails.
type ReplyController struct {
	backend Backend
	state   *State
	events  ReplyEvents // optional
	log     *zap.Logger

	wg sync.WaitGroup
}

func NewReplyController(backend Backend, state *State, events ReplyEvents, log *zap.Logger) *ReplyController {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReplyController{backend: backend, state: state, events: events, log: log}
}

// Reply inserts a provisional message and fires the request in the
// background. The only error is rejection of empty input. The provisional
// id lives in a namespace disjoint from server ids and is never sent to the
// server — the request carries the text only.
func (rc *ReplyController) Reply(ctx context.Context, ticketID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errs.ErrEmptyMessage
	}

	provisional := model.TicketMessage{
		ID:         model.NewProvisionalID(),
		SenderType: model.SenderUser,
		SenderName: "You",
		Message:    text,
		CreatedAt:  time.Now().UnixMilli(),
	}
	rc.state.InsertProvisional(ticketID, provisional)

	rc.wg.Add(1)
	go func() {
		defer rc.wg.Done()
		server, err := rc.backend.Reply(ctx, ticketID, text)
		if err != nil {
			rc.log.Warn("reply", zap.String("ticketID", ticketID), zap.Error(err))
			rc.state.RemoveProvisional(ticketID, provisional.ID)
			if rc.events != nil {
				rc.events.ReplyFailed(ticketID, text, err)
			}
			return
		}
		rc.state.ResolveProvisional(ticketID, provisional.ID, server)
	}()
	return nil
}

// Wait joins outstanding replies; for tests and shutdown.
func (rc *ReplyController) Wait() {
	rc.wg.Wait()
}

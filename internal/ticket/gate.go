package ticket

import (
	"go.uber.org/zap"

	"github.com/Granville-Christopher/granalysis-sub000/internal/model"
)

// Alerter receives the audible-alert signal. Implementations belong to the
// UI layer; tests use a counter.
type Alerter interface {
	Alert(ticketID string)
}

// Gate decides, across both polling loops, whether a newly observed
// counterpart message fires an alert. The shared cursor map guarantees at
// most one alert per message no matter how the loops interleave.
type Gate struct {
	cursors *Cursors
	alerter Alerter
	log     *zap.Logger
}

func NewGate(cursors *Cursors, alerter Alerter, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{cursors: cursors, alerter: alerter, log: log}
}

// ObserveDetail handles an observation from the detail loop, which owns the
// selected ticket. Returns whether the message count grew.
func (g *Gate) ObserveDetail(t model.Ticket) bool {
	return g.observe(t)
}

// ObserveList handles an observation from the list loop. For the ticket
// currently open in the detail view it defers entirely — no alert and no
// cursor write — leaving that ticket's watermark to the detail loop;
// otherwise the two loops would race each other's observations and either
// double-fire or swallow the alert.
func (g *Gate) ObserveList(t model.Ticket, selectedID string) {
	if t.ID == selectedID {
		return
	}
	g.observe(t)
}

func (g *Gate) observe(t model.Ticket) bool {
	prev, grew := g.cursors.Advance(t.ID, len(t.Messages))
	if !grew {
		return false
	}
	newest := t.Newest()
	if newest != nil && newest.SenderType == model.SenderAdmin && g.alerter != nil {
		g.log.Debug("alert",
			zap.String("ticketID", t.ID),
			zap.Int("from", prev),
			zap.Int("to", len(t.Messages)),
		)
		g.alerter.Alert(t.ID)
	}
	return true
}

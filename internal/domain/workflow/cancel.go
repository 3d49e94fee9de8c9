package workflow

import (
	"context"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/notify"
	"stockflow/pkg/logger"
)

// CancelRequest cancels a whole ticket.
type CancelRequest struct {
	TicketID id.ID
	Reason   string
	Actor    string
}

// CancelDetailRequest cancels one detail line.
type CancelDetailRequest struct {
	TicketID id.ID
	DetailID id.ID
	Reason   string
	Actor    string
}

// CancelTicket moves every active, non-terminal detail to CANCELLED through the
// state machine (rule check and ledger effect included) and then sets the ticket
// to CANCELLED directly. Either everything is applied or nothing is.
func (e *Engine) CancelTicket(ctx context.Context, req CancelRequest) (*Ticket, error) {
	ctx, span := tracer.Start(ctx, "workflow.CancelTicket")
	defer span.End()

	if id.IsNil(req.TicketID) {
		return nil, apperror.NewValidation("ticket id is required")
	}
	if req.Actor == "" {
		return nil, apperror.NewValidation("acting user is required")
	}

	var (
		out     *Ticket
		changes []notify.StatusChange
		count   int
	)
	err := e.withTicket(ctx, req.TicketID, func(ctx context.Context, t *Ticket, def Definition) error {
		if t.Status == StatusCancelled || t.Status == def.Done {
			return apperror.NewInvalidTransition(string(t.Status), string(StatusCancelled)).
				WithDetail("domain", string(def.Domain)).
				WithDetail("ticket_id", t.ID)
		}

		var audits []StatusAudit
		for _, d := range t.Details {
			if !d.Active || def.Rules.Terminal(d.Status) {
				continue
			}
			st, err := e.transition(ctx, def, t, d, StatusCancelled, req.Reason, req.Actor)
			if err != nil {
				return err
			}
			audits = append(audits, st.audit)
			changes = append(changes, e.stepChanges(def, t, st, req.Actor)...)
			count++
		}

		prev := t.Status
		at := e.now()
		t.Status = StatusCancelled
		t.Stamp(req.Actor, at)
		ticketAudit := newAudit(t.ID, nil, statusPtr(prev), StatusCancelled, req.Reason, req.Actor, at)
		t.History = append(t.History, ticketAudit)
		audits = append(audits, ticketAudit)

		if err := e.repo.Save(ctx, t); err != nil {
			return err
		}
		if err := e.repo.AppendAudit(ctx, audits...); err != nil {
			return err
		}

		changes = append(changes, e.ticketChange(def, t, prev, req.Actor))
		out = t.Clone()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	e.dispatch(ctx, changes)

	logger.Info(ctx, "ticket cancelled",
		"ticket_id", out.ID,
		"domain", out.Domain,
		"details_cancelled", count,
		"actor", req.Actor,
	)
	return out, nil
}

// CancelTicketDetail cancels one line and re-aggregates the ticket, which is
// not necessarily cancelled as a result.
func (e *Engine) CancelTicketDetail(ctx context.Context, req CancelDetailRequest) (*TransitionResult, error) {
	return e.RequestTransition(ctx, TransitionRequest{
		TicketID: req.TicketID,
		DetailID: req.DetailID,
		Status:   StatusCancelled,
		Note:     req.Reason,
		Actor:    req.Actor,
	})
}

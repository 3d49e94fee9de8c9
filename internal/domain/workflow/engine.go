package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/numerator"
	"stockflow/internal/core/tx"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/notify"
	"stockflow/pkg/logger"
)

var tracer = otel.Tracer("stockflow/workflow")

// Deps are the collaborators of the engine.
type Deps struct {
	Repo      Repository
	Ledger    Ledger
	Catalog   catalog.ItemCatalog
	TxManager tx.Manager

	// Locker defaults to an in-process LocalLocker.
	Locker Locker

	// Notifier defaults to notify.Nop.
	Notifier notify.Notifier

	// Numbers defaults to an in-memory generator.
	Numbers numerator.Generator

	// Definitions defaults to the production, purchasing and sale domains.
	Definitions []Definition
}

// Engine is the ticket detail state machine together with the status
// aggregator and the cancellation cascade.
type Engine struct {
	defs      Registry
	repo      Repository
	ledger    Ledger
	catalog   catalog.ItemCatalog
	txManager tx.Manager
	locker    Locker
	notifier  notify.Notifier
	numbers   numerator.Generator
	now       func() time.Time
}

// NewEngine creates a new engine.
func NewEngine(d Deps) *Engine {
	if d.Locker == nil {
		d.Locker = NewLocalLocker()
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Numbers == nil {
		d.Numbers = numerator.NewMemoryGenerator()
	}
	if len(d.Definitions) == 0 {
		d.Definitions = Definitions()
	}
	return &Engine{
		defs:      NewRegistry(d.Definitions...),
		repo:      d.Repo,
		ledger:    d.Ledger,
		catalog:   d.Catalog,
		txManager: d.TxManager,
		locker:    d.Locker,
		notifier:  d.Notifier,
		numbers:   d.Numbers,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// TransitionRequest asks for a detail status change.
type TransitionRequest struct {
	TicketID id.ID
	DetailID id.ID
	Status   Status
	Note     string
	Actor    string
}

func (r TransitionRequest) validate() error {
	switch {
	case id.IsNil(r.TicketID):
		return apperror.NewValidation("ticket id is required")
	case id.IsNil(r.DetailID):
		return apperror.NewValidation("detail id is required")
	case r.Status == "":
		return apperror.NewValidation("status is required")
	case r.Actor == "":
		return apperror.NewValidation("acting user is required")
	}
	return nil
}

// TransitionResult is returned by RequestTransition.
type TransitionResult struct {
	Ticket               *Ticket        `json:"ticket"`
	Detail               *Detail        `json:"detail"`
	PreviousStatus       Status         `json:"previousStatus"`
	PreviousTicketStatus Status         `json:"previousTicketStatus"`
	TicketChanged        bool           `json:"ticketChanged"`
	Stock                *ledger.Result `json:"stock,omitempty"`
}

// step is the outcome of one detail transition inside a transaction.
type step struct {
	detail *Detail
	from   Status
	audit  StatusAudit
	stock  *ledger.Result
}

// RequestTransition validates and applies a detail status change, runs its
// ledger effect and re-aggregates the ticket status, all in one transaction.
// Notifications are dispatched after commit.
func (e *Engine) RequestTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	ctx, span := tracer.Start(ctx, "workflow.RequestTransition", trace.WithAttributes(
		attribute.String("ticket_id", req.TicketID.String()),
		attribute.String("detail_id", req.DetailID.String()),
		attribute.String("status", string(req.Status)),
	))
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	var (
		res     *TransitionResult
		changes []notify.StatusChange
	)
	err := e.withTicket(ctx, req.TicketID, func(ctx context.Context, t *Ticket, def Definition) error {
		d, err := e.detailOf(ctx, t, req.DetailID)
		if err != nil {
			return err
		}

		st, err := e.transition(ctx, def, t, d, req.Status, req.Note, req.Actor)
		if err != nil {
			return err
		}

		audits := []StatusAudit{st.audit}
		prevTicket := t.Status
		ticketAudit := e.rollup(def, t, req.Actor, req.Note)
		if ticketAudit != nil {
			audits = append(audits, *ticketAudit)
		}

		if err := e.repo.Save(ctx, t); err != nil {
			return err
		}
		if err := e.repo.AppendAudit(ctx, audits...); err != nil {
			return err
		}

		res = &TransitionResult{
			Ticket:               t.Clone(),
			Detail:               d.Clone(),
			PreviousStatus:       st.from,
			PreviousTicketStatus: prevTicket,
			TicketChanged:        ticketAudit != nil,
			Stock:                st.stock,
		}
		changes = e.stepChanges(def, t, st, req.Actor)
		if ticketAudit != nil {
			changes = append(changes, e.ticketChange(def, t, prevTicket, req.Actor))
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.CodeOf(err))
		return nil, err
	}

	e.dispatch(ctx, changes)

	logger.Info(ctx, "detail transitioned",
		"domain", res.Ticket.Domain,
		"ticket_id", res.Ticket.ID,
		"detail_id", res.Detail.ID,
		"from", res.PreviousStatus,
		"to", res.Detail.Status,
		"ticket_status", res.Ticket.Status,
		"actor", req.Actor,
	)
	return res, nil
}

// Recompute re-derives the ticket status from its active details.
// Returns false and writes nothing when the status is unchanged.
func (e *Engine) Recompute(ctx context.Context, ticketID id.ID, actor string) (bool, error) {
	var (
		changed bool
		changes []notify.StatusChange
	)
	err := e.withTicket(ctx, ticketID, func(ctx context.Context, t *Ticket, def Definition) error {
		prev := t.Status
		audit := e.rollup(def, t, actor, "")
		if audit == nil {
			return nil
		}
		if err := e.repo.Save(ctx, t); err != nil {
			return err
		}
		if err := e.repo.AppendAudit(ctx, *audit); err != nil {
			return err
		}
		changed = true
		changes = append(changes, e.ticketChange(def, t, prev, actor))
		return nil
	})
	if err != nil {
		return false, err
	}
	e.dispatch(ctx, changes)
	return changed, nil
}

// Ticket returns a ticket with details and audit trails.
func (e *Engine) Ticket(ctx context.Context, ticketID id.ID) (*Ticket, error) {
	return e.repo.Get(ctx, ticketID)
}

// Describe returns the allowed next statuses of a detail status with the rationale.
func (e *Engine) Describe(domain Domain, status Status) (Rule, error) {
	def, err := e.defs.Get(domain)
	if err != nil {
		return Rule{}, err
	}
	return def.Rules.Describe(status)
}

// Rules returns the full transition table of domain.
func (e *Engine) Rules(domain Domain) ([]Rule, error) {
	def, err := e.defs.Get(domain)
	if err != nil {
		return nil, err
	}
	return def.Rules.Rows(), nil
}

// Definitions returns the registered domain definitions.
func (e *Engine) Definitions() Registry {
	return e.defs
}

// --- internals ---

// withTicket holds the ticket lock and runs fn in a transaction with the
// ticket loaded for update.
func (e *Engine) withTicket(ctx context.Context, ticketID id.ID, fn func(context.Context, *Ticket, Definition) error) error {
	unlock, err := e.locker.Lock(ctx, ticketLockKey(ticketID))
	if err != nil {
		return err
	}
	defer unlock()

	return e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := e.repo.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if !t.Active {
			return apperror.NewNotFound("ticket", ticketID)
		}
		def, err := e.defs.Get(t.Domain)
		if err != nil {
			return err
		}
		return fn(ctx, t, def)
	})
}

func (e *Engine) detailOf(ctx context.Context, t *Ticket, detailID id.ID) (*Detail, error) {
	if d, ok := t.Detail(detailID); ok {
		if !d.Active {
			return nil, apperror.NewNotFound("ticket detail", detailID)
		}
		return d, nil
	}

	owner, err := e.repo.FindDetailOwner(ctx, detailID)
	if err != nil {
		return nil, err
	}
	return nil, apperror.NewMismatchedParent(t.ID, detailID, owner)
}

// transition checks the rule table, runs the ledger effect, then moves the
// detail and records its audit entry. A failed effect leaves the detail as is.
func (e *Engine) transition(ctx context.Context, def Definition, t *Ticket, d *Detail, next Status, note, actor string) (step, error) {
	from := d.Status
	if !def.Rules.Known(from) {
		return step{}, apperror.NewUnknownStatus(string(def.Domain), string(from))
	}
	if !def.Rules.IsValid(from, next) {
		return step{}, apperror.NewInvalidTransition(string(from), string(next)).
			WithDetail("domain", string(def.Domain)).
			WithDetail("ticket_id", t.ID).
			WithDetail("detail_id", d.ID)
	}

	st := step{detail: d, from: from}
	if m, ok := MutationFor(def.Domain, from, next); ok {
		if _, _, err := e.ledger.EnsureAccount(ctx, d.Item, actor); err != nil {
			return step{}, err
		}
		res, err := m.Apply(ctx, e.ledger, d.Item, ledger.Movement{
			Quantity:  d.Quantity,
			Note:      note,
			Reference: ledger.TicketRef(def.ReferenceType, t.ID),
			Actor:     actor,
		})
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				appErr.WithDetail("detail_id", d.ID)
			}
			return step{}, err
		}
		st.stock = &res
	}

	at := e.now()
	d.Status = next
	d.Stamp(actor, at)
	st.audit = newAudit(t.ID, id.Ptr(d.ID), statusPtr(from), next, note, actor, at)
	d.History = append(d.History, st.audit)
	return st, nil
}

// rollup applies Aggregate to t. Returns the ticket audit entry when the
// status changed, nil otherwise.
func (e *Engine) rollup(def Definition, t *Ticket, actor, note string) *StatusAudit {
	next, ok := Aggregate(def, t.ActiveStatuses())
	if !ok || next == t.Status {
		return nil
	}

	prev := t.Status
	at := e.now()
	t.Status = next
	t.Stamp(actor, at)
	a := newAudit(t.ID, nil, statusPtr(prev), next, note, actor, at)
	t.History = append(t.History, a)
	return &a
}

func (e *Engine) stepChanges(def Definition, t *Ticket, st step, actor string) []notify.StatusChange {
	at := e.now()
	users := t.AffectedUsers()
	changes := []notify.StatusChange{{
		Subject:       notify.SubjectTicketDetail,
		Domain:        string(def.Domain),
		SubjectID:     st.detail.ID,
		ParentID:      id.Ptr(t.ID),
		OldStatus:     string(st.from),
		NewStatus:     string(st.detail.Status),
		AffectedUsers: users,
		ActorID:       actor,
		OccurredAt:    at,
	}}
	if st.stock != nil && st.stock.StatusChanged() {
		changes = append(changes, notify.StatusChange{
			Subject:       notify.SubjectStockAccount,
			Domain:        string(def.Domain),
			SubjectID:     st.stock.Account.ID,
			OldStatus:     string(st.stock.PreviousStatus),
			NewStatus:     string(st.stock.Account.Status),
			AffectedUsers: users,
			ActorID:       actor,
			OccurredAt:    at,
		})
	}
	return changes
}

func (e *Engine) ticketChange(def Definition, t *Ticket, prev Status, actor string) notify.StatusChange {
	return notify.StatusChange{
		Subject:       notify.SubjectTicket,
		Domain:        string(def.Domain),
		SubjectID:     t.ID,
		OldStatus:     string(prev),
		NewStatus:     string(t.Status),
		AffectedUsers: t.AffectedUsers(),
		ActorID:       actor,
		OccurredAt:    e.now(),
	}
}

// dispatch informs the notifier. Nothing it does can fail the caller.
func (e *Engine) dispatch(ctx context.Context, changes []notify.StatusChange) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "notifier panic", "panic", r)
		}
	}()
	for _, c := range changes {
		e.notifier.NotifyStatusChange(ctx, c)
	}
}

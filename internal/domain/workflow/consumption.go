package workflow

import (
	"context"

	"github.com/shopspring/decimal"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/pkg/logger"
)

// ConsumptionRequest records how much of a planned material a production line
// actually used.
type ConsumptionRequest struct {
	TicketID id.ID
	DetailID id.ID
	LineID   id.ID
	Actual   decimal.Decimal
	Actor    string
}

func (r ConsumptionRequest) validate() error {
	switch {
	case id.IsNil(r.TicketID):
		return apperror.NewValidation("ticket id is required")
	case id.IsNil(r.DetailID):
		return apperror.NewValidation("detail id is required")
	case id.IsNil(r.LineID):
		return apperror.NewValidation("bom line id is required")
	case r.Actor == "":
		return apperror.NewValidation("acting user is required")
	case r.Actual.IsNegative():
		return apperror.NewInvalidQuantity(r.Actual, "actual consumption must not be negative")
	}
	return nil
}

// RecordConsumption sets the actual quantity of one BOM line. BOM lines are
// metadata: the material's stock account is not touched. Cancelled lines are
// frozen.
func (e *Engine) RecordConsumption(ctx context.Context, req ConsumptionRequest) (*Detail, error) {
	ctx, span := tracer.Start(ctx, "workflow.RecordConsumption")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	var out *Detail
	err := e.withTicket(ctx, req.TicketID, func(ctx context.Context, t *Ticket, def Definition) error {
		d, err := e.detailOf(ctx, t, req.DetailID)
		if err != nil {
			return err
		}
		if d.Status == StatusCancelled {
			return apperror.NewValidation("consumption of a cancelled line cannot change").
				WithDetail("detail_id", d.ID)
		}

		line := d.bomLine(req.LineID)
		if line == nil {
			return apperror.NewNotFound("bom line", req.LineID).WithDetail("detail_id", d.ID)
		}
		actual := req.Actual
		line.Actual = &actual

		at := e.now()
		d.Stamp(req.Actor, at)
		t.Stamp(req.Actor, at)
		if err := e.repo.SaveConsumption(ctx, d); err != nil {
			return err
		}
		if err := e.repo.Save(ctx, t); err != nil {
			return err
		}
		out = d.Clone()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "bom consumption recorded",
		"ticket_id", req.TicketID,
		"detail_id", req.DetailID,
		"line_id", req.LineID,
		"actual", req.Actual.String(),
		"actor", req.Actor,
	)
	return out, nil
}

package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/catalog"
	"stockflow/pkg/logger"
)

// BulkItem is one line of a bulk request.
type BulkItem struct {
	Item     catalog.ItemRef
	Quantity decimal.Decimal
	Note     string
}

// BulkRequest applies the same operation to many items.
type BulkRequest struct {
	Items           []BulkItem
	Source          SourceType
	Reference       *Reference
	Actor           string
	CreateIfMissing bool // set only
}

// BulkFailure reports why one item was not applied.
type BulkFailure struct {
	Index   int             `json:"index"`
	Item    catalog.ItemRef `json:"item"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

// BulkResult partitions the outcome in input order.
type BulkResult struct {
	Succeeded []Result      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// BulkSetCurrentStock sets current stock item by item.
func (s *Service) BulkSetCurrentStock(ctx context.Context, req BulkRequest) BulkResult {
	return s.bulk(ctx, "set", req, func(ctx context.Context, it BulkItem) (Result, error) {
		return s.SetCurrentStock(ctx, it.Item, SetInput{
			Quantity:        it.Quantity,
			Note:            it.Note,
			Reference:       req.Reference,
			Actor:           req.Actor,
			CreateIfMissing: req.CreateIfMissing,
		})
	})
}

// BulkAddToCurrentStock adds to current stock item by item.
func (s *Service) BulkAddToCurrentStock(ctx context.Context, req BulkRequest) BulkResult {
	return s.bulk(ctx, "add", req, func(ctx context.Context, it BulkItem) (Result, error) {
		return s.AddToCurrentStock(ctx, it.Item, req.movement(it))
	})
}

// BulkSubtractFromCurrentStock subtracts from current stock item by item.
func (s *Service) BulkSubtractFromCurrentStock(ctx context.Context, req BulkRequest) BulkResult {
	return s.bulk(ctx, "subtract", req, func(ctx context.Context, it BulkItem) (Result, error) {
		return s.SubtractFromCurrentStock(ctx, it.Item, req.movement(it))
	})
}

func (r BulkRequest) movement(it BulkItem) Movement {
	return Movement{
		Quantity:  it.Quantity,
		Source:    r.Source,
		Note:      it.Note,
		Reference: r.Reference,
		Actor:     r.Actor,
	}
}

// bulk runs each item in its own transaction. A failing item never aborts the others.
func (s *Service) bulk(ctx context.Context, op string, req BulkRequest, fn func(context.Context, BulkItem) (Result, error)) BulkResult {
	type outcome struct {
		res Result
		err error
	}
	outcomes := make([]outcome, len(req.Items))

	var g errgroup.Group
	g.SetLimit(s.cfg.BulkConcurrency)
	for i, it := range req.Items {
		g.Go(func() error {
			res, err := fn(ctx, it)
			outcomes[i] = outcome{res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := BulkResult{
		Succeeded: make([]Result, 0, len(req.Items)),
		Failed:    make([]BulkFailure, 0),
	}
	for i, o := range outcomes {
		if o.err == nil {
			result.Succeeded = append(result.Succeeded, o.res)
			continue
		}
		failure := BulkFailure{
			Index:   i,
			Item:    req.Items[i].Item,
			Code:    apperror.CodeOf(o.err),
			Message: o.err.Error(),
		}
		if appErr, ok := apperror.AsAppError(o.err); ok {
			failure.Message = appErr.Message
		}
		result.Failed = append(result.Failed, failure)
	}

	logger.Info(ctx, "bulk stock operation finished",
		"operation", op,
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
		"actor", req.Actor,
	)
	return result
}

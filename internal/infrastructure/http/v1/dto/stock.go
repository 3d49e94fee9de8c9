package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/ledger"
)

// --- Requests ---

// CreateAccountRequest opens a stock account.
type CreateAccountRequest struct {
	Kind           string           `json:"kind" binding:"required,itemkind"`
	ItemID         string           `json:"itemId" binding:"required,uuid"`
	InitialCurrent decimal.Decimal  `json:"initialCurrent" binding:"gte=0"`
	MinAlertStock  *decimal.Decimal `json:"minAlertStock" binding:"omitempty,gte=0"`
	MaxStockLevel  *decimal.Decimal `json:"maxStockLevel" binding:"omitempty,gte=0"`
	Note           string           `json:"note" binding:"max=1000"`
}

// Item returns the referenced item. ItemID is validated by binding.
func (r CreateAccountRequest) Item() catalog.ItemRef {
	return catalog.ItemRef{Kind: catalog.VariantKind(r.Kind), ID: id.MustParse(r.ItemID)}
}

// SetStockRequest replaces current stock.
type SetStockRequest struct {
	Quantity        decimal.Decimal   `json:"quantity" binding:"gte=0"`
	Note            string            `json:"note" binding:"max=1000"`
	Reference       *ReferenceRequest `json:"reference"`
	CreateIfMissing bool              `json:"createIfMissing"`
}

// MovementRequest is the body of relative stock mutations.
type MovementRequest struct {
	Quantity  decimal.Decimal   `json:"quantity" binding:"gt=0"`
	Source    string            `json:"source" binding:"omitempty,max=64"`
	Note      string            `json:"note" binding:"max=1000"`
	Reference *ReferenceRequest `json:"reference"`
}

// ToMovement converts the request. The reference id is validated by binding.
func (r MovementRequest) ToMovement(actor string) ledger.Movement {
	return ledger.Movement{
		Quantity:  r.Quantity,
		Source:    ledger.SourceType(r.Source),
		Note:      r.Note,
		Reference: ToReference(r.Reference),
		Actor:     actor,
	}
}

// ThresholdsRequest replaces the alert and max levels. Null clears a level.
type ThresholdsRequest struct {
	MinAlertStock *decimal.Decimal `json:"minAlertStock" binding:"omitempty,gte=0"`
	MaxStockLevel *decimal.Decimal `json:"maxStockLevel" binding:"omitempty,gte=0"`
}

// IsEnoughQuery is the query of the availability check.
type IsEnoughQuery struct {
	Planned string `form:"planned" binding:"required"`
}

// Quantity parses the planned quantity.
func (q IsEnoughQuery) Quantity() (decimal.Decimal, error) {
	planned, err := types.ParseQuantity(q.Planned)
	if err != nil {
		return decimal.Zero, apperror.NewValidation(err.Error()).WithDetail("field", "planned")
	}
	if planned.IsNegative() {
		return decimal.Zero, apperror.NewInvalidQuantity(planned, "Planned quantity cannot be negative")
	}
	return planned, nil
}

// HistoryQuery filters the transaction log.
type HistoryQuery struct {
	PaginationRequest
	Dimension string `form:"dimension" binding:"omitempty,oneof=CURRENT FUTURE ALLOCATED"`
}

// Filter converts the query.
func (q HistoryQuery) Filter() ledger.TransactionFilter {
	f := ledger.TransactionFilter{Limit: q.PageSize, Offset: q.Offset()}
	if q.Dimension != "" {
		d := ledger.Dimension(q.Dimension)
		f.Dimension = &d
	}
	return f
}

// BulkItemRequest is one line of a bulk request.
type BulkItemRequest struct {
	Kind     string          `json:"kind" binding:"required,itemkind"`
	ItemID   string          `json:"itemId" binding:"required,uuid"`
	Quantity decimal.Decimal `json:"quantity" binding:"gte=0"`
	Note     string          `json:"note" binding:"max=1000"`
}

// BulkStockRequest applies one operation to many items.
type BulkStockRequest struct {
	Items           []BulkItemRequest `json:"items" binding:"required,min=1,max=1000,dive"`
	Source          string            `json:"source" binding:"omitempty,max=64"`
	Reference       *ReferenceRequest `json:"reference"`
	CreateIfMissing bool              `json:"createIfMissing"`
}

// ToBulk converts the request.
func (r BulkStockRequest) ToBulk(actor string) ledger.BulkRequest {
	req := ledger.BulkRequest{
		Items:           make([]ledger.BulkItem, len(r.Items)),
		Source:          ledger.SourceType(r.Source),
		Reference:       ToReference(r.Reference),
		Actor:           actor,
		CreateIfMissing: r.CreateIfMissing,
	}
	for i, it := range r.Items {
		req.Items[i] = ledger.BulkItem{
			Item:     catalog.ItemRef{Kind: catalog.VariantKind(it.Kind), ID: id.MustParse(it.ItemID)},
			Quantity: it.Quantity,
			Note:     it.Note,
		}
	}
	return req
}

// ToReference converts an optional reference. The id is validated by binding.
func ToReference(r *ReferenceRequest) *ledger.Reference {
	if r == nil {
		return nil
	}
	return &ledger.Reference{Type: r.Type, ID: id.MustParse(r.ID)}
}

// --- Responses ---

// AccountResponse represents a stock account in API responses.
type AccountResponse struct {
	ID             string           `json:"id"`
	Kind           string           `json:"kind"`
	ItemID         string           `json:"itemId"`
	CurrentStock   decimal.Decimal  `json:"currentStock"`
	FutureStock    decimal.Decimal  `json:"futureStock"`
	AllocatedStock decimal.Decimal  `json:"allocatedStock"`
	Available      decimal.Decimal  `json:"available"`
	MinAlertStock  *decimal.Decimal `json:"minAlertStock,omitempty"`
	MaxStockLevel  *decimal.Decimal `json:"maxStockLevel,omitempty"`
	Status         string           `json:"status"`
	StatusLabel    string           `json:"statusLabel"`
	Active         bool             `json:"active"`
	Version        int              `json:"version"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	UpdatedBy      string           `json:"updatedBy"`
}

// StatusLabeler resolves display labels of enum values.
type StatusLabeler func(enum, value string) string

// FromAccount converts an account.
func FromAccount(a ledger.Account, label StatusLabeler) AccountResponse {
	resp := AccountResponse{
		ID:             a.ID.String(),
		Kind:           string(a.Item.Kind),
		ItemID:         a.Item.ID.String(),
		CurrentStock:   a.CurrentStock,
		FutureStock:    a.FutureStock,
		AllocatedStock: a.AllocatedStock,
		Available:      a.Available(),
		MinAlertStock:  a.MinAlertStock,
		MaxStockLevel:  a.MaxStockLevel,
		Status:         string(a.Status),
		StatusLabel:    string(a.Status),
		Active:         a.Active,
		Version:        a.Version,
		UpdatedAt:      a.UpdatedAt,
		UpdatedBy:      a.UpdatedBy,
	}
	if label != nil {
		resp.StatusLabel = label(ledger.EnumStockStatus, string(a.Status))
	}
	return resp
}

// TransactionResponse represents one log entry.
type TransactionResponse struct {
	ID               string           `json:"id"`
	Kind             string           `json:"kind"`
	Source           string           `json:"source"`
	Dimension        string           `json:"dimension"`
	Quantity         decimal.Decimal  `json:"quantity"`
	Before           decimal.Decimal  `json:"before"`
	After            decimal.Decimal  `json:"after"`
	CounterDimension string           `json:"counterDimension,omitempty"`
	CounterBefore    *decimal.Decimal `json:"counterBefore,omitempty"`
	CounterAfter     *decimal.Decimal `json:"counterAfter,omitempty"`
	Note             string           `json:"note,omitempty"`
	RefType          string           `json:"refType,omitempty"`
	RefID            string           `json:"refId,omitempty"`
	ActorID          string           `json:"actorId"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// FromTransaction converts a log entry.
func FromTransaction(t ledger.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:        t.ID.String(),
		Kind:      string(t.Kind),
		Source:    string(t.Source),
		Dimension: string(t.Dimension),
		Quantity:  t.Quantity,
		Before:    t.Before,
		After:     t.After,
		Note:      t.Note,
		ActorID:   t.ActorID,
		CreatedAt: t.CreatedAt,
	}
	if t.Counter != nil {
		before, after := t.Counter.Before, t.Counter.After
		resp.CounterDimension = string(t.Counter.Dimension)
		resp.CounterBefore = &before
		resp.CounterAfter = &after
	}
	if t.Reference != nil {
		resp.RefType = t.Reference.Type
		resp.RefID = t.Reference.ID.String()
	}
	return resp
}

// StockResultResponse is returned by stock mutations.
type StockResultResponse struct {
	Account        AccountResponse      `json:"account"`
	Transaction    *TransactionResponse `json:"transaction,omitempty"`
	PreviousStatus string               `json:"previousStatus"`
	StatusChanged  bool                 `json:"statusChanged"`
}

// FromResult converts a mutation result.
func FromResult(r ledger.Result, label StatusLabeler) StockResultResponse {
	resp := StockResultResponse{
		Account:        FromAccount(r.Account, label),
		PreviousStatus: string(r.PreviousStatus),
		StatusChanged:  r.StatusChanged(),
	}
	if r.Transaction != nil {
		t := FromTransaction(*r.Transaction)
		resp.Transaction = &t
	}
	return resp
}

// IsEnoughResponse answers the availability check.
type IsEnoughResponse struct {
	Kind    string          `json:"kind"`
	ItemID  string          `json:"itemId"`
	Planned decimal.Decimal `json:"planned"`
	Enough  bool            `json:"enough"`
}

// BulkResultResponse partitions a bulk outcome.
type BulkResultResponse struct {
	Succeeded []StockResultResponse `json:"succeeded"`
	Failed    []ledger.BulkFailure  `json:"failed"`
}

// FromBulkResult converts a bulk outcome.
func FromBulkResult(r ledger.BulkResult, label StatusLabeler) BulkResultResponse {
	resp := BulkResultResponse{
		Succeeded: make([]StockResultResponse, len(r.Succeeded)),
		Failed:    r.Failed,
	}
	for i, res := range r.Succeeded {
		resp.Succeeded[i] = FromResult(res, label)
	}
	return resp
}

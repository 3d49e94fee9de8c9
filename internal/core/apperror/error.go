// Package apperror defines the errors stockflow returns to its callers.
// Every error a client may act on is an *AppError with a stable code; the
// HTTP layer renders code, message and details as the response body.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

const (
	CodeInternal = "INTERNAL_ERROR"

	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidQuantity = "INVALID_QUANTITY"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeNotFound        = "NOT_FOUND"

	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeLocked                 = "RESOURCE_LOCKED"

	// Ledger and workflow rule violations.
	CodeItemUnavailable   = "ITEM_UNAVAILABLE"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeMismatchedParent  = "MISMATCHED_PARENT"
	CodeUnknownStatus     = "UNKNOWN_STATUS"
)

var statusByCode = map[string]int{
	CodeInternal:               http.StatusInternalServerError,
	CodeValidation:             http.StatusBadRequest,
	CodeInvalidQuantity:        http.StatusBadRequest,
	CodeUnauthorized:           http.StatusUnauthorized,
	CodeNotFound:               http.StatusNotFound,
	CodeAlreadyExists:          http.StatusConflict,
	CodeConcurrentModification: http.StatusConflict,
	CodeLocked:                 http.StatusConflict,
	CodeItemUnavailable:        http.StatusUnprocessableEntity,
	CodeInsufficientStock:      http.StatusUnprocessableEntity,
	CodeInvalidTransition:      http.StatusUnprocessableEntity,
	CodeMismatchedParent:       http.StatusUnprocessableEntity,
	CodeUnknownStatus:          http.StatusUnprocessableEntity,
}

// AppError carries a code, a client-facing message and structured details.
// Err is logged but never rendered.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"`
}

func newError(code, message string, details map[string]any) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail sets one detail and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

// WithCause attaches the underlying error and returns e.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func NewValidation(message string) *AppError {
	return newError(CodeValidation, message, nil)
}

func NewUnauthorized(message string) *AppError {
	return newError(CodeUnauthorized, message, nil)
}

// NewInternal hides err from the client; it is only logged.
func NewInternal(err error) *AppError {
	return newError(CodeInternal, "Internal server error", nil).WithCause(err)
}

func NewNotFound(entity string, id any) *AppError {
	return newError(CodeNotFound, entity+" not found", map[string]any{"entity": entity, "id": id})
}

func NewAlreadyExists(entity string, key any) *AppError {
	return newError(CodeAlreadyExists, entity+" already exists", map[string]any{"entity": entity, "key": key})
}

// NewConcurrentModification reports a failed optimistic version check.
func NewConcurrentModification(entity string, id any) *AppError {
	return newError(CodeConcurrentModification, "Record was changed concurrently, reload and retry",
		map[string]any{"entity": entity, "id": id})
}

// NewLocked reports a ticket lock or idempotency key that is held elsewhere.
func NewLocked(resource string) *AppError {
	return newError(CodeLocked, "Resource is being modified, retry later", map[string]any{"resource": resource})
}

// NewItemUnavailable reports an item that was soft-deleted in the catalog.
func NewItemUnavailable(item any) *AppError {
	return newError(CodeItemUnavailable, "Item is not available for stock tracking", map[string]any{"item": item})
}

// NewInvalidQuantity reports a negative, zero or malformed quantity.
// reason becomes the message.
func NewInvalidQuantity(quantity decimal.Decimal, reason string) *AppError {
	return newError(CodeInvalidQuantity, reason, map[string]any{"quantity": quantity.String()})
}

// NewInsufficientStock reports a mutation that would drive dimension
// (current, future or allocated) below zero, or an allocation beyond what is on hand.
func NewInsufficientStock(item any, dimension string, requested, available decimal.Decimal) *AppError {
	return newError(CodeInsufficientStock, "Insufficient "+dimension+" stock", map[string]any{
		"item":      item,
		"dimension": dimension,
		"requested": requested.String(),
		"available": available.String(),
	})
}

func NewInvalidTransition(current, requested string) *AppError {
	return newError(CodeInvalidTransition,
		fmt.Sprintf("Transition from %s to %s is not allowed", current, requested),
		map[string]any{"current_status": current, "requested_status": requested})
}

// NewMismatchedParent reports a detail addressed through a ticket it does not belong to.
func NewMismatchedParent(ticketID, detailID, actualTicketID any) *AppError {
	return newError(CodeMismatchedParent, "Detail does not belong to the referenced ticket", map[string]any{
		"ticket_id":        ticketID,
		"detail_id":        detailID,
		"actual_ticket_id": actualTicketID,
	})
}

// NewUnknownStatus reports a status without a row in the domain's rule table.
func NewUnknownStatus(domain, status string) *AppError {
	return newError(CodeUnknownStatus, fmt.Sprintf("Unknown %s status %q", domain, status),
		map[string]any{"domain": domain, "status": status})
}

// AsAppError finds the first *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// GetHTTPStatus is 500 for anything that is not an AppError.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// CodeOf is CodeInternal for anything that is not an AppError.
func CodeOf(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries code.
func Is(err error, code string) bool {
	return CodeOf(err) == code && IsAppError(err)
}

func IsNotFound(err error) bool {
	return Is(err, CodeNotFound)
}

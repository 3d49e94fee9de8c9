package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatuses(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewValidation("bad"), http.StatusBadRequest},
		{NewInvalidQuantity(decimal.NewFromInt(-1), "negative"), http.StatusBadRequest},
		{NewNotFound("ticket", "1"), http.StatusNotFound},
		{NewAlreadyExists("stock account", "x"), http.StatusConflict},
		{NewConcurrentModification("ticket", "1"), http.StatusConflict},
		{NewLocked("ticket:1"), http.StatusConflict},
		{NewItemUnavailable("product:1"), http.StatusUnprocessableEntity},
		{NewInsufficientStock("product:1", "current", decimal.NewFromInt(5), decimal.NewFromInt(2)), http.StatusUnprocessableEntity},
		{NewInvalidTransition("NEW", "DONE"), http.StatusUnprocessableEntity},
		{NewMismatchedParent("a", "b", "c"), http.StatusUnprocessableEntity},
		{NewUnknownStatus("sale", "BOGUS"), http.StatusUnprocessableEntity},
		{NewUnauthorized("no token"), http.StatusUnauthorized},
		{NewInternal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.err))
		})
	}
}

func TestWrappedErrors(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("load ticket: %w", NewNotFound("ticket", "42").WithCause(cause))

	assert.True(t, IsNotFound(err))
	assert.True(t, IsAppError(err))
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.ErrorIs(t, err, cause)

	plain := errors.New("plain")
	assert.False(t, IsAppError(plain))
	assert.Equal(t, CodeInternal, CodeOf(plain))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(plain))
}

func TestInsufficientStockDetails(t *testing.T) {
	err := NewInsufficientStock("product:1", "allocated", decimal.RequireFromString("2.5"), decimal.NewFromInt(1)).
		WithDetail("account_id", "acc-1")

	assert.Equal(t, "Insufficient allocated stock", err.Message)
	assert.Equal(t, "2.5", err.Details["requested"])
	assert.Equal(t, "1", err.Details["available"])
	assert.Equal(t, "acc-1", err.Details["account_id"])
	assert.Contains(t, err.Error(), CodeInsufficientStock)
}

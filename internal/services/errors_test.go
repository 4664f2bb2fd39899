package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	t.Run("kind survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("approve payment: %w", InsufficientFundsf("insufficient balance on account %s", "900011112222"))
		assert.Equal(t, KindInsufficientFunds, KindOf(err))
	})

	t.Run("plain errors are unknown", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	})

	t.Run("stable kind strings", func(t *testing.T) {
		assert.Equal(t, "NOT_FOUND", KindNotFound.String())
		assert.Equal(t, "VALIDATION_ERROR", KindValidation.String())
		assert.Equal(t, "INSUFFICIENT_FUNDS", KindInsufficientFunds.String())
		assert.Equal(t, "INVALID_STATE", KindInvalidState.String())
		assert.Equal(t, "DUPLICATE_RESOURCE", KindDuplicate.String())
		assert.Equal(t, "EXTERNAL_SERVICE_FAILURE", KindExternal.String())
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Run("unique_violation matches", func(t *testing.T) {
		assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	})

	t.Run("wrapped unique_violation matches", func(t *testing.T) {
		err := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
		assert.True(t, isUniqueViolation(err))
	})

	t.Run("other pq codes do not", func(t *testing.T) {
		assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
		assert.False(t, isUniqueViolation(errors.New("boom")))
		assert.False(t, isUniqueViolation(nil))
	})
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFoundf("payment 5 not found"), http.StatusNotFound},
		{Validationf("amount must be positive"), http.StatusBadRequest},
		{InsufficientFundsf("insufficient balance"), http.StatusUnprocessableEntity},
		{InvalidStatef("payment is approved"), http.StatusConflict},
		{Duplicatef("period already disbursed"), http.StatusConflict},
		{Internal("db down", errors.New("conn refused")), http.StatusInternalServerError},
		{errors.New("untyped"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err))
	}
}

func TestUserMessage(t *testing.T) {
	t.Run("typed message passes through", func(t *testing.T) {
		assert.Equal(t, "payment 5 not found", UserMessage(NotFoundf("payment 5 not found")))
	})

	t.Run("internal cause never leaks", func(t *testing.T) {
		msg := UserMessage(Internal("failed to update balance", errors.New("pq: connection reset")))
		assert.Equal(t, "An internal error occurred", msg)
		assert.NotContains(t, msg, "pq:")
	})
}

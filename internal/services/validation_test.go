package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/xpenbox/backend/internal/models"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid create request", func(t *testing.T) {
		req := models.TransactionCreateRequest{
			TransactionType:          "EXPENSE",
			Description:              "Groceries",
			TransactionDateTimestamp: 1735689600,
			AccountResourceCode:      "acc-1",
		}

		assert.NoError(t, vh.ValidateStruct(&req))
	})

	t.Run("missing required fields", func(t *testing.T) {
		req := models.TransactionCreateRequest{}

		err := vh.ValidateStruct(&req)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 3) // type, description, timestamp
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Invalid request body", resp.Error)
		assert.Empty(t, resp.Details)
	})

	t.Run("validation error carries field details", func(t *testing.T) {
		vh := NewValidationHelper()
		err := vh.ValidateStruct(&models.TransactionCreateRequest{})

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Details, "Description")
	})
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &ValidationError{Entity: "Transaction", Field: "amount", Reason: "must be positive"}, http.StatusBadRequest},
		{"insufficient funds", &InsufficientFundsError{Reason: "insufficient funds for the transaction"}, http.StatusBadRequest},
		{"not found", &NotFoundError{Entity: "Account", ResourceCode: "acc-1"}, http.StatusNotFound},
		{"unauthorized", &UnauthorizedError{Email: "someone@example.com"}, http.StatusUnauthorized},
		{"unknown", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, statusForError(tt.err))
		})
	}
}

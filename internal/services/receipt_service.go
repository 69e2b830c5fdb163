package services

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/xpenbox/backend/internal/middleware"
)

// ReceiptService renders a scannable receipt for a recorded transaction.
type ReceiptService struct {
	db *sql.DB
}

func NewReceiptService(db *sql.DB) *ReceiptService {
	return &ReceiptService{db: db}
}

// TransactionReceipt godoc
// @Summary Render a transaction receipt QR code
// @Description Returns a PNG QR code encoding the transaction's resource code
// @Tags Transactions
// @Produce png
// @Param resourceCode path string true "Transaction resource code"
// @Success 200 {file} png
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{resourceCode}/receipt [get]
func (rs *ReceiptService) TransactionReceipt(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.PrincipalEmail(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	resourceCode := chi.URLParam(r, "resourceCode")
	user, err := findUserByEmail(rs.db, email)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	// Ownership check before rendering anything.
	txn, err := findTransaction(rs.db, resourceCode, user.ID)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	png, err := qrcode.Encode(txn.ResourceCode, qrcode.Medium, 256)
	if err != nil {
		log.Printf("[RECEIPT] QR encoding failed for %s: %v", resourceCode, err)
		sendDomainError(w, fmt.Errorf("encode receipt: %w", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xpenbox/backend/internal/middleware"
	"github.com/xpenbox/backend/internal/models"
)

var (
	minLatitude  = decimal.NewFromInt(-90)
	maxLatitude  = decimal.NewFromInt(90)
	minLongitude = decimal.NewFromInt(-180)
	maxLongitude = decimal.NewFromInt(180)
)

// TransactionService is the ledger engine. Every create and rollback runs
// inside a single database transaction so balance effects and the ledger
// record commit or fail together.
type TransactionService struct {
	db        *sql.DB
	redis     *redis.Client
	balances  *BalanceStore
	validator *ValidationHelper
}

func NewTransactionService(db *sql.DB, redisClient *redis.Client) *TransactionService {
	return &TransactionService{
		db:        db,
		redis:     redisClient,
		balances:  NewBalanceStore(db),
		validator: NewValidationHelper(),
	}
}

// resolvedRefs collects the entities a create touched, so the response view
// can echo their resource codes without re-querying.
type resolvedRefs struct {
	category           *models.Category
	income             *models.Income
	account            *models.Account
	creditCard         *models.CreditCard
	destinationAccount *models.Account
}

// CreateTransaction godoc
// @Summary Record a ledger transaction
// @Description Records an income, expense, transfer or credit payment and applies its balance effects atomically
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body models.TransactionCreateRequest true "Transaction payload"
// @Success 201 {object} models.TransactionView
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions [post]
func (ts *TransactionService) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.PrincipalEmail(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req models.TransactionCreateRequest
	if err := decoder.Decode(&req); err != nil {
		log.Printf("[LEDGER] Invalid request body: %v", err)
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := ts.validator.ValidateStruct(req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	view, err := ts.createTransaction(&req, email)
	if err != nil {
		log.Printf("[LEDGER] Create transaction failed for %s: %v", email, err)
		sendDomainError(w, err)
		return
	}

	log.Printf("[LEDGER] Recorded %s transaction %s for %s", view.TransactionType, view.ResourceCode, email)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(view)
}

func (ts *TransactionService) createTransaction(req *models.TransactionCreateRequest, email string) (*models.TransactionView, error) {
	txType := models.TransactionType(req.TransactionType)
	if !txType.Valid() {
		return nil, &ValidationError{Entity: "Transaction", Field: "transactionType", Reason: "is not a supported transaction type"}
	}
	if !req.Amount.IsPositive() {
		return nil, &ValidationError{Entity: "Transaction", Field: "amount", Reason: "must be greater than zero"}
	}
	if req.Amount.Exponent() < -2 {
		return nil, &ValidationError{Entity: "Transaction", Field: "amount", Reason: "must have at most two decimal places"}
	}
	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	tx, err := ts.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := findUserByEmail(tx, email)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		ResourceCode:    uuid.NewString(),
		Description:     req.Description,
		Type:            txType,
		Amount:          req.Amount,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		TransactionDate: req.TransactionDate(),
		UserID:          user.ID,
	}

	refs := &resolvedRefs{}
	if req.CategoryResourceCode != "" {
		category, err := findCategory(tx, req.CategoryResourceCode, user.ID)
		if err != nil {
			return nil, err
		}
		if category != nil {
			refs.category = category
			txn.CategoryID = &category.ID
		}
	}

	switch txType {
	case models.TypeExpense:
		err = ts.applyExpense(tx, txn, req, user, refs)
	case models.TypeIncome:
		err = ts.applyIncome(tx, txn, req, user, refs)
	case models.TypeTransfer:
		err = ts.applyTransfer(tx, txn, req, user, refs)
	case models.TypeCreditPayment:
		err = ts.applyCreditPayment(tx, txn, req, user, refs)
	}
	if err != nil {
		return nil, err
	}

	if err := insertTransaction(tx, txn); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	ts.invalidateDashboard(user.ID)
	return viewFromRefs(txn, refs), nil
}

// applyExpense debits exactly one funding source. An account expense reduces
// the balance immediately; a card expense raises the owed amount against the
// card's limit.
func (ts *TransactionService) applyExpense(tx *sql.Tx, txn *models.Transaction, req *models.TransactionCreateRequest, user *models.User, refs *resolvedRefs) error {
	hasAccount := req.AccountResourceCode != ""
	hasCard := req.CreditCardResourceCode != ""
	if hasAccount == hasCard {
		return &ValidationError{Entity: "Transaction", Field: "accountResourceCode", Reason: "exactly one of account or credit card is required for an expense"}
	}

	if hasAccount {
		account, err := findAccount(tx, req.AccountResourceCode, user.ID)
		if err != nil {
			return err
		}
		if err := ts.balances.SubtractFromAccount(tx, account.ID, txn.Amount); err != nil {
			return err
		}
		if err := markAccountUsed(tx, account.ID, txn.TransactionDate); err != nil {
			return err
		}
		refs.account = account
		txn.AccountID = &account.ID
	} else {
		card, err := findCreditCard(tx, req.CreditCardResourceCode, user.ID)
		if err != nil {
			return err
		}
		if err := ts.balances.ChargeCard(tx, card.ID, txn.Amount); err != nil {
			return err
		}
		if err := markCardUsed(tx, card.ID, txn.TransactionDate); err != nil {
			return err
		}
		refs.creditCard = card
		txn.CreditCardID = &card.ID
	}

	return ts.bumpCategory(tx, txn)
}

// applyIncome credits an account from an income source, capped at the
// source's declared total across all of its income transactions.
func (ts *TransactionService) applyIncome(tx *sql.Tx, txn *models.Transaction, req *models.TransactionCreateRequest, user *models.User, refs *resolvedRefs) error {
	if req.IncomeResourceCode == "" {
		return &ValidationError{Entity: "Transaction", Field: "incomeResourceCode", Reason: "is required for an income transaction"}
	}
	if req.AccountResourceCode == "" {
		return &ValidationError{Entity: "Transaction", Field: "accountResourceCode", Reason: "is required for an income transaction"}
	}

	income, err := findIncome(tx, req.IncomeResourceCode, user.ID)
	if err != nil {
		return err
	}
	account, err := findAccount(tx, req.AccountResourceCode, user.ID)
	if err != nil {
		return err
	}

	if err := checkIncomeCap(tx, income, user.ID, txn.Amount); err != nil {
		return err
	}
	if err := ts.balances.AddToAccount(tx, account.ID, txn.Amount); err != nil {
		return err
	}
	if err := markAccountUsed(tx, account.ID, txn.TransactionDate); err != nil {
		return err
	}

	refs.income = income
	refs.account = account
	txn.IncomeID = &income.ID
	txn.AccountID = &account.ID
	return nil
}

// applyTransfer moves funds between two accounts of the same user. The
// source debit is overdraft-guarded, so the credit only lands when the
// source can cover it.
func (ts *TransactionService) applyTransfer(tx *sql.Tx, txn *models.Transaction, req *models.TransactionCreateRequest, user *models.User, refs *resolvedRefs) error {
	if req.AccountResourceCode == "" {
		return &ValidationError{Entity: "Transaction", Field: "accountResourceCode", Reason: "is required for a transfer"}
	}
	if req.DestinationAccountResourceCode == "" {
		return &ValidationError{Entity: "Transaction", Field: "destinationAccountResourceCode", Reason: "is required for a transfer"}
	}

	source, err := findAccount(tx, req.AccountResourceCode, user.ID)
	if err != nil {
		return err
	}
	destination, err := findAccount(tx, req.DestinationAccountResourceCode, user.ID)
	if err != nil {
		return err
	}

	if err := ts.balances.SubtractFromAccount(tx, source.ID, txn.Amount); err != nil {
		return err
	}
	if err := ts.balances.AddToAccount(tx, destination.ID, txn.Amount); err != nil {
		return err
	}
	if err := markAccountUsed(tx, source.ID, txn.TransactionDate); err != nil {
		return err
	}

	refs.account = source
	refs.destinationAccount = destination
	txn.AccountID = &source.ID
	txn.DestinationAccountID = &destination.ID
	return nil
}

// applyCreditPayment pays a card from an account. The account debit is
// overdraft-guarded; the card owed amount is reduced without flooring at
// zero, so overpayment leaves a negative owed balance.
func (ts *TransactionService) applyCreditPayment(tx *sql.Tx, txn *models.Transaction, req *models.TransactionCreateRequest, user *models.User, refs *resolvedRefs) error {
	if req.AccountResourceCode == "" {
		return &ValidationError{Entity: "Transaction", Field: "accountResourceCode", Reason: "is required for a credit payment"}
	}
	if req.CreditCardResourceCode == "" {
		return &ValidationError{Entity: "Transaction", Field: "creditCardResourceCode", Reason: "is required for a credit payment"}
	}

	account, err := findAccount(tx, req.AccountResourceCode, user.ID)
	if err != nil {
		return err
	}
	card, err := findCreditCard(tx, req.CreditCardResourceCode, user.ID)
	if err != nil {
		return err
	}

	if err := ts.balances.SubtractFromAccount(tx, account.ID, txn.Amount); err != nil {
		return err
	}
	if err := ts.balances.PayCard(tx, card.ID, txn.Amount); err != nil {
		return err
	}
	if err := markAccountUsed(tx, account.ID, txn.TransactionDate); err != nil {
		return err
	}

	refs.account = account
	refs.creditCard = card
	txn.AccountID = &account.ID
	txn.CreditCardID = &card.ID
	return ts.bumpCategory(tx, txn)
}

func (ts *TransactionService) bumpCategory(tx *sql.Tx, txn *models.Transaction) error {
	if txn.CategoryID == nil {
		return nil
	}
	return markCategoryUsed(tx, *txn.CategoryID, txn.TransactionDate)
}

// checkIncomeCap rejects an income transaction that would push the sum of
// amounts drawn from the source past its declared total.
func checkIncomeCap(tx *sql.Tx, income *models.Income, userID int64, amount decimal.Decimal) error {
	var assigned decimal.Decimal
	err := tx.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM tbl_transaction
		 WHERE income_id = $1 AND user_id = $2 AND transaction_type = $3`,
		income.ID, userID, models.TypeIncome,
	).Scan(&assigned)
	if err != nil {
		return fmt.Errorf("sum income assignments: %w", err)
	}
	if assigned.Add(amount).GreaterThan(income.TotalAmount) {
		return &ValidationError{Entity: "Transaction", Field: "amount", Reason: "exceeds the remaining total of the income source"}
	}
	return nil
}

func insertTransaction(tx *sql.Tx, txn *models.Transaction) error {
	return tx.QueryRow(
		`INSERT INTO tbl_transaction
		 (resource_code, description, transaction_type, amount, latitude, longitude, transaction_date,
		  category_id, income_id, account_id, credit_card_id, destination_account_id, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at`,
		txn.ResourceCode, txn.Description, txn.Type, txn.Amount, txn.Latitude, txn.Longitude,
		txn.TransactionDate, txn.CategoryID, txn.IncomeID, txn.AccountID, txn.CreditCardID,
		txn.DestinationAccountID, txn.UserID,
	).Scan(&txn.ID, &txn.CreatedAt)
}

// RollbackTransaction godoc
// @Summary Roll back a ledger transaction
// @Description Reverses the balance effects of a transaction and deletes its record
// @Tags Transactions
// @Produce json
// @Param resourceCode path string true "Transaction resource code"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{resourceCode} [delete]
func (ts *TransactionService) RollbackTransaction(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.PrincipalEmail(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	resourceCode := chi.URLParam(r, "resourceCode")
	if err := ts.rollbackTransaction(resourceCode, email); err != nil {
		log.Printf("[LEDGER] Rollback of %s failed for %s: %v", resourceCode, email, err)
		sendDomainError(w, err)
		return
	}

	log.Printf("[LEDGER] Rolled back transaction %s for %s", resourceCode, email)
	w.WriteHeader(http.StatusNoContent)
}

func (ts *TransactionService) rollbackTransaction(resourceCode, email string) error {
	tx, err := ts.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := findUserByEmail(tx, email)
	if err != nil {
		return err
	}
	txn, err := findTransaction(tx, resourceCode, user.ID)
	if err != nil {
		return err
	}

	switch txn.Type {
	case models.TypeExpense:
		err = ts.reverseExpense(tx, txn)
	case models.TypeIncome:
		err = ts.reverseIncome(tx, txn)
	case models.TypeTransfer:
		err = ts.reverseTransfer(tx, txn)
	case models.TypeCreditPayment:
		err = ts.reverseCreditPayment(tx, txn)
	default:
		err = &ValidationError{Entity: "Transaction", Field: "transactionType", Reason: "is not a supported transaction type"}
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM tbl_transaction WHERE id = $1`, txn.ID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rollback: %w", err)
	}

	ts.invalidateDashboard(user.ID)
	return nil
}

func (ts *TransactionService) reverseExpense(tx *sql.Tx, txn *models.Transaction) error {
	switch {
	case txn.AccountID != nil:
		if err := ts.balances.AddToAccount(tx, *txn.AccountID, txn.Amount); err != nil {
			return err
		}
		if err := unmarkAccountUsed(tx, *txn.AccountID); err != nil {
			return err
		}
	case txn.CreditCardID != nil:
		if err := ts.balances.PayCard(tx, *txn.CreditCardID, txn.Amount); err != nil {
			return err
		}
		if err := unmarkCardUsed(tx, *txn.CreditCardID); err != nil {
			return err
		}
	default:
		return &ValidationError{Entity: "Transaction", Field: "accountResourceCode", Reason: "has no funding source to restore"}
	}
	return ts.unbumpCategory(tx, txn)
}

func (ts *TransactionService) reverseIncome(tx *sql.Tx, txn *models.Transaction) error {
	if txn.AccountID == nil {
		return &ValidationError{Entity: "Transaction", Field: "accountResourceCode", Reason: "has no credited account to debit"}
	}
	if err := ts.balances.SubtractFromAccount(tx, *txn.AccountID, txn.Amount); err != nil {
		return err
	}
	return unmarkAccountUsed(tx, *txn.AccountID)
}

func (ts *TransactionService) reverseTransfer(tx *sql.Tx, txn *models.Transaction) error {
	if txn.AccountID == nil || txn.DestinationAccountID == nil {
		return &ValidationError{Entity: "Transaction", Field: "accountResourceCode", Reason: "has no transfer legs to restore"}
	}
	if err := ts.balances.SubtractFromAccount(tx, *txn.DestinationAccountID, txn.Amount); err != nil {
		return err
	}
	if err := ts.balances.AddToAccount(tx, *txn.AccountID, txn.Amount); err != nil {
		return err
	}
	return unmarkAccountUsed(tx, *txn.AccountID)
}

// reverseCreditPayment re-raises the owed amount through the limit-checked
// charge path, so a rollback that would push the card past its limit fails
// instead of silently exceeding it.
func (ts *TransactionService) reverseCreditPayment(tx *sql.Tx, txn *models.Transaction) error {
	if txn.AccountID == nil || txn.CreditCardID == nil {
		return &ValidationError{Entity: "Transaction", Field: "accountResourceCode", Reason: "has no payment legs to restore"}
	}
	if err := ts.balances.AddToAccount(tx, *txn.AccountID, txn.Amount); err != nil {
		return err
	}
	if err := ts.balances.ChargeCard(tx, *txn.CreditCardID, txn.Amount); err != nil {
		return err
	}
	if err := unmarkAccountUsed(tx, *txn.AccountID); err != nil {
		return err
	}
	return ts.unbumpCategory(tx, txn)
}

func (ts *TransactionService) unbumpCategory(tx *sql.Tx, txn *models.Transaction) error {
	if txn.CategoryID == nil {
		return nil
	}
	return unmarkCategoryUsed(tx, *txn.CategoryID)
}

// GetTransaction godoc
// @Summary Fetch a single transaction
// @Tags Transactions
// @Produce json
// @Param resourceCode path string true "Transaction resource code"
// @Success 200 {object} models.TransactionView
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{resourceCode} [get]
func (ts *TransactionService) GetTransaction(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.PrincipalEmail(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	resourceCode := chi.URLParam(r, "resourceCode")
	user, err := findUserByEmail(ts.db, email)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	view, err := fetchTransactionView(ts.db, resourceCode, user.ID)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// ListTransactions godoc
// @Summary List transactions
// @Description Lists the caller's transactions, newest first, optionally filtered by type and date range
// @Tags Transactions
// @Produce json
// @Param type query string false "Transaction type filter"
// @Param from query string false "Start date (RFC 3339)"
// @Param to query string false "End date (RFC 3339)"
// @Param limit query int false "Maximum rows (default 50, max 200)"
// @Success 200 {array} models.TransactionView
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions [get]
func (ts *TransactionService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.PrincipalEmail(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	user, err := findUserByEmail(ts.db, email)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	views, err := fetchTransactionViews(ts.db, user.ID, filter)
	if err != nil {
		log.Printf("[LEDGER] List transactions failed for %s: %v", email, err)
		sendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

type listFilter struct {
	txType string
	from   *time.Time
	to     *time.Time
	limit  int
}

func parseListFilter(r *http.Request) (listFilter, error) {
	filter := listFilter{limit: 50}

	if raw := r.URL.Query().Get("type"); raw != "" {
		if !models.TransactionType(raw).Valid() {
			return filter, &ValidationError{Entity: "Transaction", Field: "type", Reason: "is not a supported transaction type"}
		}
		filter.txType = raw
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, &ValidationError{Entity: "Transaction", Field: "from", Reason: "must be an RFC 3339 timestamp"}
		}
		filter.from = &from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, &ValidationError{Entity: "Transaction", Field: "to", Reason: "must be an RFC 3339 timestamp"}
		}
		filter.to = &to
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 200 {
			return filter, &ValidationError{Entity: "Transaction", Field: "limit", Reason: "must be between 1 and 200"}
		}
		filter.limit = limit
	}
	return filter, nil
}

const transactionViewColumns = `
	t.resource_code, t.description, t.transaction_type, t.amount, t.latitude, t.longitude, t.transaction_date,
	c.resource_code, i.resource_code, a.resource_code, cc.resource_code, da.resource_code`

const transactionViewJoins = `
	FROM tbl_transaction t
	LEFT JOIN tbl_category c ON c.id = t.category_id
	LEFT JOIN tbl_income i ON i.id = t.income_id
	LEFT JOIN tbl_account a ON a.id = t.account_id
	LEFT JOIN tbl_credit_card cc ON cc.id = t.credit_card_id
	LEFT JOIN tbl_account da ON da.id = t.destination_account_id`

func fetchTransactionView(q rowQuerier, resourceCode string, userID int64) (*models.TransactionView, error) {
	row := q.QueryRow(
		`SELECT`+transactionViewColumns+transactionViewJoins+
			` WHERE t.resource_code = $1 AND t.user_id = $2`,
		resourceCode, userID,
	)

	view, err := scanTransactionView(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "Transaction", ResourceCode: resourceCode}
	}
	if err != nil {
		return nil, fmt.Errorf("fetch transaction %s: %w", resourceCode, err)
	}
	return view, nil
}

func fetchTransactionViews(db *sql.DB, userID int64, filter listFilter) ([]models.TransactionView, error) {
	conditions := []string{"t.user_id = $1"}
	args := []any{userID}

	if filter.txType != "" {
		args = append(args, filter.txType)
		conditions = append(conditions, fmt.Sprintf("t.transaction_type = $%d", len(args)))
	}
	if filter.from != nil {
		args = append(args, *filter.from)
		conditions = append(conditions, fmt.Sprintf("t.transaction_date >= $%d", len(args)))
	}
	if filter.to != nil {
		args = append(args, *filter.to)
		conditions = append(conditions, fmt.Sprintf("t.transaction_date <= $%d", len(args)))
	}
	args = append(args, filter.limit)

	query := `SELECT` + transactionViewColumns + transactionViewJoins +
		` WHERE ` + strings.Join(conditions, " AND ") +
		fmt.Sprintf(` ORDER BY t.transaction_date DESC, t.id DESC LIMIT $%d`, len(args))

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	views := []models.TransactionView{}
	for rows.Next() {
		view, err := scanTransactionView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		views = append(views, *view)
	}
	return views, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransactionView(row rowScanner) (*models.TransactionView, error) {
	var view models.TransactionView
	err := row.Scan(
		&view.ResourceCode, &view.Description, &view.TransactionType, &view.Amount,
		&view.Latitude, &view.Longitude, &view.TransactionDate,
		&view.CategoryResourceCode, &view.IncomeResourceCode, &view.AccountResourceCode,
		&view.CreditCardResourceCode, &view.DestinationAccountResourceCode,
	)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func viewFromRefs(txn *models.Transaction, refs *resolvedRefs) *models.TransactionView {
	view := &models.TransactionView{
		ResourceCode:    txn.ResourceCode,
		Description:     txn.Description,
		TransactionType: txn.Type,
		Amount:          txn.Amount,
		Latitude:        txn.Latitude,
		Longitude:       txn.Longitude,
		TransactionDate: txn.TransactionDate,
	}
	if refs.category != nil {
		view.CategoryResourceCode = &refs.category.ResourceCode
	}
	if refs.income != nil {
		view.IncomeResourceCode = &refs.income.ResourceCode
	}
	if refs.account != nil {
		view.AccountResourceCode = &refs.account.ResourceCode
	}
	if refs.creditCard != nil {
		view.CreditCardResourceCode = &refs.creditCard.ResourceCode
	}
	if refs.destinationAccount != nil {
		view.DestinationAccountResourceCode = &refs.destinationAccount.ResourceCode
	}
	return view
}

func validateCoordinates(latitude, longitude *decimal.Decimal) error {
	if (latitude == nil) != (longitude == nil) {
		return &ValidationError{Entity: "Transaction", Field: "latitude", Reason: "latitude and longitude must be provided together"}
	}
	if latitude == nil {
		return nil
	}
	if latitude.LessThan(minLatitude) || latitude.GreaterThan(maxLatitude) {
		return &ValidationError{Entity: "Transaction", Field: "latitude", Reason: "must be between -90 and 90"}
	}
	if longitude.LessThan(minLongitude) || longitude.GreaterThan(maxLongitude) {
		return &ValidationError{Entity: "Transaction", Field: "longitude", Reason: "must be between -180 and 180"}
	}
	return nil
}

func markAccountUsed(tx *sql.Tx, accountID int64, usedAt time.Time) error {
	_, err := tx.Exec(
		`UPDATE tbl_account SET usage_count = usage_count + 1, last_used_date = $1 WHERE id = $2`,
		usedAt, accountID,
	)
	return err
}

func unmarkAccountUsed(tx *sql.Tx, accountID int64) error {
	_, err := tx.Exec(
		`UPDATE tbl_account SET usage_count = GREATEST(usage_count - 1, 0) WHERE id = $1`,
		accountID,
	)
	return err
}

func markCardUsed(tx *sql.Tx, cardID int64, usedAt time.Time) error {
	_, err := tx.Exec(
		`UPDATE tbl_credit_card SET usage_count = usage_count + 1, last_used_date = $1 WHERE id = $2`,
		usedAt, cardID,
	)
	return err
}

func unmarkCardUsed(tx *sql.Tx, cardID int64) error {
	_, err := tx.Exec(
		`UPDATE tbl_credit_card SET usage_count = GREATEST(usage_count - 1, 0) WHERE id = $1`,
		cardID,
	)
	return err
}

func markCategoryUsed(tx *sql.Tx, categoryID int64, usedAt time.Time) error {
	_, err := tx.Exec(
		`UPDATE tbl_category SET usage_count = usage_count + 1, last_used_date = $1 WHERE id = $2`,
		usedAt, categoryID,
	)
	return err
}

func unmarkCategoryUsed(tx *sql.Tx, categoryID int64) error {
	_, err := tx.Exec(
		`UPDATE tbl_category SET usage_count = GREATEST(usage_count - 1, 0) WHERE id = $1`,
		categoryID,
	)
	return err
}

func (ts *TransactionService) invalidateDashboard(userID int64) {
	if ts.redis == nil {
		return
	}
	keys := make([]string, 0, len(AllPeriodFilters))
	for _, filter := range AllPeriodFilters {
		keys = append(keys, dashboardCacheKey(userID, filter))
	}
	if err := ts.redis.Del(context.Background(), keys...).Err(); err != nil {
		log.Printf("[LEDGER] Failed to invalidate dashboard cache for user %d: %v", userID, err)
	}
}

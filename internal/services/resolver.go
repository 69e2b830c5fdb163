package services

import (
	"database/sql"
	"errors"

	"github.com/xpenbox/backend/internal/models"
)

// rowQuerier is satisfied by both *sql.DB and *sql.Tx so lookups run either
// standalone or inside the engine's unit of work.
type rowQuerier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// findUserByEmail resolves the acting principal. Absence is an
// authorization failure, not a plain not-found.
func findUserByEmail(q rowQuerier, email string) (*models.User, error) {
	var user models.User
	err := q.QueryRow(`
		SELECT id, email, first_name, last_name, created_at
		FROM tbl_user
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &UnauthorizedError{Email: email}
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Every entity lookup below filters by (resource_code, user_id): a code
// owned by a different user resolves to NotFound, never to the record.

func findAccount(q rowQuerier, resourceCode string, userID int64) (*models.Account, error) {
	var account models.Account
	err := q.QueryRow(`
		SELECT id, resource_code, name, balance, closing_date, usage_count, last_used_date, user_id
		FROM tbl_account
		WHERE resource_code = $1 AND user_id = $2
	`, resourceCode, userID).Scan(
		&account.ID, &account.ResourceCode, &account.Name, &account.Balance,
		&account.ClosingDate, &account.UsageCount, &account.LastUsedDate, &account.UserID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "Account", ResourceCode: resourceCode}
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func findCreditCard(q rowQuerier, resourceCode string, userID int64) (*models.CreditCard, error) {
	var card models.CreditCard
	err := q.QueryRow(`
		SELECT id, resource_code, name, credit_limit, current_balance, state, billing_day, payment_day, closing_date, usage_count, last_used_date, user_id
		FROM tbl_credit_card
		WHERE resource_code = $1 AND user_id = $2
	`, resourceCode, userID).Scan(
		&card.ID, &card.ResourceCode, &card.Name, &card.CreditLimit, &card.CurrentBalance,
		&card.State, &card.BillingDay, &card.PaymentDay, &card.ClosingDate,
		&card.UsageCount, &card.LastUsedDate, &card.UserID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "CreditCard", ResourceCode: resourceCode}
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func findIncome(q rowQuerier, resourceCode string, userID int64) (*models.Income, error) {
	var income models.Income
	err := q.QueryRow(`
		SELECT id, resource_code, concept, income_date, total_amount, user_id
		FROM tbl_income
		WHERE resource_code = $1 AND user_id = $2
	`, resourceCode, userID).Scan(
		&income.ID, &income.ResourceCode, &income.Concept,
		&income.IncomeDate, &income.TotalAmount, &income.UserID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "Income", ResourceCode: resourceCode}
	}
	if err != nil {
		return nil, err
	}
	return &income, nil
}

// findCategory tolerates absence: a missing category maps to (nil, nil) so
// the transaction lands uncategorized, matching the optional semantics.
func findCategory(q rowQuerier, resourceCode string, userID int64) (*models.Category, error) {
	var category models.Category
	err := q.QueryRow(`
		SELECT id, resource_code, name, color, state, usage_count, last_used_date, user_id
		FROM tbl_category
		WHERE resource_code = $1 AND user_id = $2
	`, resourceCode, userID).Scan(
		&category.ID, &category.ResourceCode, &category.Name, &category.Color,
		&category.State, &category.UsageCount, &category.LastUsedDate, &category.UserID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func findTransaction(q rowQuerier, resourceCode string, userID int64) (*models.Transaction, error) {
	var (
		txn       models.Transaction
		category  sql.NullInt64
		income    sql.NullInt64
		account   sql.NullInt64
		card      sql.NullInt64
		destAcct  sql.NullInt64
	)
	err := q.QueryRow(`
		SELECT id, resource_code, description, transaction_type, amount, latitude, longitude, transaction_date,
		       category_id, income_id, account_id, credit_card_id, destination_account_id, user_id, created_at
		FROM tbl_transaction
		WHERE resource_code = $1 AND user_id = $2
	`, resourceCode, userID).Scan(
		&txn.ID, &txn.ResourceCode, &txn.Description, &txn.Type, &txn.Amount,
		&txn.Latitude, &txn.Longitude, &txn.TransactionDate,
		&category, &income, &account, &card, &destAcct, &txn.UserID, &txn.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "Transaction", ResourceCode: resourceCode}
	}
	if err != nil {
		return nil, err
	}
	txn.CategoryID = nullableID(category)
	txn.IncomeID = nullableID(income)
	txn.AccountID = nullableID(account)
	txn.CreditCardID = nullableID(card)
	txn.DestinationAccountID = nullableID(destAcct)
	return &txn, nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

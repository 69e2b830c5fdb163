package services

import (
	"database/sql"

	"github.com/shopspring/decimal"
	"github.com/xpenbox/backend/internal/models"
)

// BalanceStore is the single point of balance mutation for accounts and
// credit cards. Every mutation runs inside the caller's transaction and is
// guarded in SQL, so concurrent writers against the same row serialize on
// the row lock and never lose updates.
type BalanceStore struct {
	db *sql.DB
}

func NewBalanceStore(db *sql.DB) *BalanceStore {
	return &BalanceStore{db: db}
}

// AddToAccount credits amount to the account balance.
func (s *BalanceStore) AddToAccount(tx *sql.Tx, accountID int64, amount decimal.Decimal) error {
	_, err := tx.Exec(`
		UPDATE tbl_account
		SET balance = balance + $1
		WHERE id = $2`,
		amount, accountID)
	return err
}

// SubtractFromAccount debits amount from the account balance. The guard in
// the WHERE clause rejects overdraft; the caller has already resolved the
// account inside this transaction, so zero rows affected means
// insufficient funds, not a missing row.
func (s *BalanceStore) SubtractFromAccount(tx *sql.Tx, accountID int64, amount decimal.Decimal) error {
	result, err := tx.Exec(`
		UPDATE tbl_account
		SET balance = balance - $1
		WHERE id = $2 AND balance >= $1`,
		amount, accountID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return &InsufficientFundsError{Reason: "insufficient funds for the transaction"}
	}
	return nil
}

// ChargeCard raises the card's owed balance, refusing to cross the credit
// limit.
func (s *BalanceStore) ChargeCard(tx *sql.Tx, cardID int64, amount decimal.Decimal) error {
	result, err := tx.Exec(`
		UPDATE tbl_credit_card
		SET current_balance = current_balance + $1
		WHERE id = $2 AND current_balance + $1 <= credit_limit`,
		amount, cardID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return &InsufficientFundsError{Reason: "credit limit exceeded"}
	}
	return nil
}

// PayCard lowers the card's owed balance. Payments are not floored at
// zero: the owed balance may go negative, matching the ledger's
// permissive payment semantics.
func (s *BalanceStore) PayCard(tx *sql.Tx, cardID int64, amount decimal.Decimal) error {
	_, err := tx.Exec(`
		UPDATE tbl_credit_card
		SET current_balance = current_balance - $1
		WHERE id = $2`,
		amount, cardID)
	return err
}

// ListAccountsForUser returns a snapshot of the user's accounts for
// dashboard reads.
func (s *BalanceStore) ListAccountsForUser(userID int64) ([]models.Account, error) {
	rows, err := s.db.Query(`
		SELECT id, resource_code, name, balance, closing_date, usage_count, last_used_date, user_id
		FROM tbl_account
		WHERE user_id = $1
		ORDER BY name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(
			&account.ID, &account.ResourceCode, &account.Name, &account.Balance,
			&account.ClosingDate, &account.UsageCount, &account.LastUsedDate, &account.UserID,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// ListCreditCardsForUser returns a snapshot of the user's credit cards.
func (s *BalanceStore) ListCreditCardsForUser(userID int64) ([]models.CreditCard, error) {
	rows, err := s.db.Query(`
		SELECT id, resource_code, name, credit_limit, current_balance, state, billing_day, payment_day, closing_date, usage_count, last_used_date, user_id
		FROM tbl_credit_card
		WHERE user_id = $1
		ORDER BY name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []models.CreditCard{}
	for rows.Next() {
		var card models.CreditCard
		if err := rows.Scan(
			&card.ID, &card.ResourceCode, &card.Name, &card.CreditLimit, &card.CurrentBalance,
			&card.State, &card.BillingDay, &card.PaymentDay, &card.ClosingDate,
			&card.UsageCount, &card.LastUsedDate, &card.UserID,
		); err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

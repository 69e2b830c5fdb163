package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType discriminates which references a transaction carries and
// which balance effects it applies.
type TransactionType string

const (
	TypeIncome        TransactionType = "INCOME"
	TypeExpense       TransactionType = "EXPENSE"
	TypeTransfer      TransactionType = "TRANSFER"
	TypeCreditPayment TransactionType = "CREDIT_PAYMENT"
)

// Valid reports whether t is one of the four known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer, TypeCreditPayment:
		return true
	}
	return false
}

// Transaction is the immutable-after-creation record of a financial event.
// Which optional references are populated is determined by Type. Rollback
// deletes the record after reversing its balance effects; there is no other
// mutation.
type Transaction struct {
	ID                   int64            `json:"-" db:"id"`
	ResourceCode         string           `json:"resourceCode" db:"resource_code"`
	Description          string           `json:"description" db:"description"`
	Type                 TransactionType  `json:"transactionType" db:"transaction_type"`
	Amount               decimal.Decimal  `json:"amount" db:"amount"`
	Latitude             *decimal.Decimal `json:"latitude,omitempty" db:"latitude"`
	Longitude            *decimal.Decimal `json:"longitude,omitempty" db:"longitude"`
	TransactionDate      time.Time        `json:"transactionDate" db:"transaction_date"`
	CategoryID           *int64           `json:"-" db:"category_id"`
	IncomeID             *int64           `json:"-" db:"income_id"`
	AccountID            *int64           `json:"-" db:"account_id"`
	CreditCardID         *int64           `json:"-" db:"credit_card_id"`
	DestinationAccountID *int64           `json:"-" db:"destination_account_id"`
	UserID               int64            `json:"-" db:"user_id"`
	CreatedAt            time.Time        `json:"createdAt" db:"created_at"`
}

// PeriodTransaction pairs a transaction with its category, as fetched for
// dashboard aggregation. Category is nil for uncategorized transactions.
type PeriodTransaction struct {
	Transaction
	Category *Category
}

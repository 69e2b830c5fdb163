package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a cash-holding entity. Balance carries two fractional digits
// and is only ever mutated through the balance store.
type Account struct {
	ID           int64           `json:"-" db:"id"`
	ResourceCode string          `json:"resourceCode" db:"resource_code"`
	Name         string          `json:"name" db:"name"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	ClosingDate  *time.Time      `json:"closingDate,omitempty" db:"closing_date"`
	UsageCount   int             `json:"usageCount" db:"usage_count"`
	LastUsedDate *time.Time      `json:"lastUsedDate,omitempty" db:"last_used_date"`
	UserID       int64           `json:"-" db:"user_id"`
}

// CreditCard is a liability entity. CurrentBalance is the amount owed:
// it rises with expenses charged to the card and falls with payments.
type CreditCard struct {
	ID             int64           `json:"-" db:"id"`
	ResourceCode   string          `json:"resourceCode" db:"resource_code"`
	Name           string          `json:"name" db:"name"`
	CreditLimit    decimal.Decimal `json:"creditLimit" db:"credit_limit"`
	CurrentBalance decimal.Decimal `json:"currentBalance" db:"current_balance"`
	State          bool            `json:"state" db:"state"`
	BillingDay     int             `json:"billingDay" db:"billing_day"`
	PaymentDay     int             `json:"paymentDay" db:"payment_day"`
	ClosingDate    *time.Time      `json:"closingDate,omitempty" db:"closing_date"`
	UsageCount     int             `json:"usageCount" db:"usage_count"`
	LastUsedDate   *time.Time      `json:"lastUsedDate,omitempty" db:"last_used_date"`
	UserID         int64           `json:"-" db:"user_id"`
}

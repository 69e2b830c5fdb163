package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionCreateRequest is the wire shape for creating a transaction.
// Resource codes irrelevant to the declared type are tolerated and ignored;
// only the ones the type requires drive balance mutation.
type TransactionCreateRequest struct {
	TransactionType          string           `json:"transactionType" validate:"required"`
	Description              string           `json:"description" validate:"required,max=500"`
	Amount                   decimal.Decimal  `json:"amount"`
	Latitude                 *decimal.Decimal `json:"latitude,omitempty"`
	Longitude                *decimal.Decimal `json:"longitude,omitempty"`
	TransactionDateTimestamp int64            `json:"transactionDateTimestamp" validate:"required,gt=0"`

	CategoryResourceCode           string `json:"categoryResourceCode,omitempty" validate:"omitempty,max=100"`
	IncomeResourceCode             string `json:"incomeResourceCode,omitempty" validate:"omitempty,max=100"`
	AccountResourceCode            string `json:"accountResourceCode,omitempty" validate:"omitempty,max=100"`
	CreditCardResourceCode         string `json:"creditCardResourceCode,omitempty" validate:"omitempty,max=100"`
	DestinationAccountResourceCode string `json:"destinationAccountResourceCode,omitempty" validate:"omitempty,max=100"`
}

// TransactionDate converts the request timestamp (unix seconds) to UTC.
func (r TransactionCreateRequest) TransactionDate() time.Time {
	return time.Unix(r.TransactionDateTimestamp, 0).UTC()
}

// TransactionView is the outward projection of a transaction. All entity
// references are resource codes; internal ids never cross the boundary.
type TransactionView struct {
	ResourceCode    string           `json:"resourceCode"`
	Description     string           `json:"description"`
	TransactionType TransactionType  `json:"transactionType"`
	Amount          decimal.Decimal  `json:"amount"`
	Latitude        *decimal.Decimal `json:"latitude,omitempty"`
	Longitude       *decimal.Decimal `json:"longitude,omitempty"`
	TransactionDate time.Time        `json:"transactionDate"`

	CategoryResourceCode           *string `json:"categoryResourceCode,omitempty"`
	IncomeResourceCode             *string `json:"incomeResourceCode,omitempty"`
	AccountResourceCode            *string `json:"accountResourceCode,omitempty"`
	CreditCardResourceCode         *string `json:"creditCardResourceCode,omitempty"`
	DestinationAccountResourceCode *string `json:"destinationAccountResourceCode,omitempty"`
}

// CategoryReport is one row of the dashboard category breakdown.
type CategoryReport struct {
	ResourceCode string          `json:"resourceCode"`
	Name         string          `json:"name"`
	Color        string          `json:"color"`
	Amount       decimal.Decimal `json:"amount"`
}

// DashboardCurrentPeriod holds the balance-centric half of the dashboard.
type DashboardCurrentPeriod struct {
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	DeltaBalance   decimal.Decimal `json:"deltaBalance"`
	CreditUsed     decimal.Decimal `json:"creditUsed"`
	CreditLimit    decimal.Decimal `json:"creditLimit"`
	CreditCards    []CreditCard    `json:"creditCards"`
}

// DashboardPeriodFilter holds the transaction-derived half of the dashboard.
type DashboardPeriodFilter struct {
	IncomeTotal      decimal.Decimal   `json:"incomeTotal"`
	ExpenseTotal     decimal.Decimal   `json:"expenseTotal"`
	NetCashflow      decimal.Decimal   `json:"netCashflow"`
	Categories       []CategoryReport  `json:"categories"`
	LastTransactions []TransactionView `json:"lastTransactions"`
}

// DashboardResponse is the full dashboard payload for one period filter.
type DashboardResponse struct {
	CurrentPeriod DashboardCurrentPeriod `json:"currentPeriod"`
	PeriodFilter  DashboardPeriodFilter  `json:"periodFilter"`
}

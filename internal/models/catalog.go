package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Income is a catalog entry for an expected income source. TotalAmount caps
// the sum of INCOME transactions that may be assigned to it; it is not a
// running balance.
type Income struct {
	ID           int64           `json:"-" db:"id"`
	ResourceCode string          `json:"resourceCode" db:"resource_code"`
	Concept      string          `json:"concept" db:"concept"`
	IncomeDate   time.Time       `json:"incomeDate" db:"income_date"`
	TotalAmount  decimal.Decimal `json:"totalAmount" db:"total_amount"`
	UserID       int64           `json:"-" db:"user_id"`
}

// Category is a descriptive label used for dashboard grouping.
type Category struct {
	ID           int64      `json:"-" db:"id"`
	ResourceCode string     `json:"resourceCode" db:"resource_code"`
	Name         string     `json:"name" db:"name"`
	Color        string     `json:"color" db:"color"`
	State        bool       `json:"state" db:"state"`
	UsageCount   int        `json:"usageCount" db:"usage_count"`
	LastUsedDate *time.Time `json:"lastUsedDate,omitempty" db:"last_used_date"`
	UserID       int64      `json:"-" db:"user_id"`
}

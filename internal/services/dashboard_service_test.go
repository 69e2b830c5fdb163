package services

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/xpenbox/backend/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func periodTxn(txType models.TransactionType, amount string, accountID *int64, category *models.Category) dashboardTxn {
	txn := dashboardTxn{}
	txn.Type = txType
	txn.Amount = dec(amount)
	txn.AccountID = accountID
	txn.Category = category
	txn.View.TransactionType = txType
	txn.View.Amount = txn.Amount
	return txn
}

func ptrID(id int64) *int64 { return &id }

func TestNetCashflow(t *testing.T) {
	food := &models.Category{ResourceCode: "cat-food", Name: "Food", Color: "#ff0000"}

	t.Run("empty period is zero", func(t *testing.T) {
		assert.True(t, netCashflow(nil).IsZero())
	})

	t.Run("income adds, eligible spending subtracts", func(t *testing.T) {
		transactions := []dashboardTxn{
			periodTxn(models.TypeIncome, "100.00", ptrID(1), nil),
			periodTxn(models.TypeExpense, "30.00", ptrID(1), food),
			periodTxn(models.TypeCreditPayment, "20.00", ptrID(1), nil),
		}
		assert.True(t, netCashflow(transactions).Equal(dec("50.00")))
	})

	t.Run("card expenses and transfers contribute nothing", func(t *testing.T) {
		transactions := []dashboardTxn{
			periodTxn(models.TypeExpense, "40.00", nil, food),
			periodTxn(models.TypeTransfer, "500.00", ptrID(1), nil),
		}
		assert.True(t, netCashflow(transactions).IsZero())
	})
}

func TestExpenseAndIncomeTotals(t *testing.T) {
	transactions := []dashboardTxn{
		periodTxn(models.TypeIncome, "200.00", ptrID(1), nil),
		periodTxn(models.TypeExpense, "30.00", ptrID(1), nil),
		periodTxn(models.TypeExpense, "40.00", nil, nil),
		periodTxn(models.TypeCreditPayment, "25.00", ptrID(1), nil),
		periodTxn(models.TypeTransfer, "100.00", ptrID(1), nil),
	}

	assert.True(t, incomeTotal(transactions).Equal(dec("200.00")))
	// The card expense is deferred spending and the transfer is internal;
	// only the account expense and the credit payment count.
	assert.True(t, expenseTotal(transactions).Equal(dec("55.00")))
}

func TestGroupByCategory(t *testing.T) {
	food := &models.Category{ResourceCode: "cat-food", Name: "Food", Color: "#ff0000"}
	rent := &models.Category{ResourceCode: "cat-rent", Name: "Rent", Color: "#00ff00"}

	t.Run("sums per category largest first", func(t *testing.T) {
		transactions := []dashboardTxn{
			periodTxn(models.TypeExpense, "30.00", ptrID(1), food),
			periodTxn(models.TypeExpense, "700.00", ptrID(1), rent),
			periodTxn(models.TypeCreditPayment, "20.00", ptrID(1), food),
		}

		reports := groupByCategory(transactions)
		assert.Len(t, reports, 2)
		assert.Equal(t, "Rent", reports[0].Name)
		assert.True(t, reports[0].Amount.Equal(dec("700.00")))
		assert.Equal(t, "Food", reports[1].Name)
		assert.True(t, reports[1].Amount.Equal(dec("50.00")))
	})

	t.Run("skips uncategorized and ineligible spending", func(t *testing.T) {
		transactions := []dashboardTxn{
			periodTxn(models.TypeExpense, "30.00", ptrID(1), nil),
			periodTxn(models.TypeExpense, "40.00", nil, food),
			periodTxn(models.TypeIncome, "100.00", ptrID(1), food),
		}
		assert.Empty(t, groupByCategory(transactions))
	})

	t.Run("equal totals order by name", func(t *testing.T) {
		transactions := []dashboardTxn{
			periodTxn(models.TypeExpense, "10.00", ptrID(1), rent),
			periodTxn(models.TypeExpense, "10.00", ptrID(1), food),
		}

		reports := groupByCategory(transactions)
		assert.Equal(t, "Food", reports[0].Name)
		assert.Equal(t, "Rent", reports[1].Name)
	})
}

func TestLastTransactions(t *testing.T) {
	transactions := []dashboardTxn{}
	for i := 0; i < 15; i++ {
		transactions = append(transactions, periodTxn(models.TypeExpense, "1.00", ptrID(1), nil))
	}
	transactions = append(transactions, periodTxn(models.TypeIncome, "100.00", ptrID(1), nil))

	views := lastTransactions(transactions, 10)
	assert.Len(t, views, 10)
	for _, view := range views {
		assert.Equal(t, models.TypeExpense, view.TransactionType)
	}

	assert.Empty(t, lastTransactions(nil, 10))
}

func TestSortCardsByOwed(t *testing.T) {
	cards := []models.CreditCard{
		{Name: "Low", CurrentBalance: dec("10.00")},
		{Name: "High", CurrentBalance: dec("900.00")},
		{Name: "Mid", CurrentBalance: dec("100.00")},
	}

	sorted := sortCardsByOwed(cards)
	assert.Equal(t, "High", sorted[0].Name)
	assert.Equal(t, "Mid", sorted[1].Name)
	assert.Equal(t, "Low", sorted[2].Name)
	// Input order is untouched.
	assert.Equal(t, "Low", cards[0].Name)
}

func TestDashboardService_GenerateDashboard(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewDashboardService(db, nil)
	service.now = func() time.Time {
		return time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)
	}

	// The three snapshot reads run concurrently.
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("SELECT (.+) FROM tbl_account WHERE user_id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "resource_code", "name", "balance", "closing_date", "usage_count", "last_used_date", "user_id"}).
			AddRow(1, "acc-1", "Checking", "70.00", nil, 1, nil, 1).
			AddRow(2, "acc-2", "Savings", "500.00", nil, 0, nil, 1))
	mock.ExpectQuery("SELECT (.+) FROM tbl_credit_card WHERE user_id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "resource_code", "name", "credit_limit", "current_balance", "state", "billing_day", "payment_day", "closing_date", "usage_count", "last_used_date", "user_id"}).
			AddRow(3, "card-1", "Visa", "1000.00", "300.00", true, 1, 15, nil, 0, nil, 1).
			AddRow(4, "card-2", "Amex", "2000.00", "50.00", true, 1, 15, nil, 0, nil, 1))
	mock.ExpectQuery("SELECT (.+) FROM tbl_transaction t").
		WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"resource_code", "description", "transaction_type", "amount", "transaction_date",
			"account_id", "credit_card_id", "category_code", "category_name", "category_color",
			"account_code", "card_code",
		}).
			AddRow("txn-1", "Salary", "INCOME", "100.00", time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), 1, nil, nil, nil, nil, "acc-1", nil).
			AddRow("txn-2", "Groceries", "EXPENSE", "30.00", time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC), 1, nil, "cat-food", "Food", "#ff0000", "acc-1", nil).
			AddRow("txn-3", "Card splurge", "EXPENSE", "40.00", time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC), nil, 3, "cat-food", "Food", "#ff0000", nil, "card-1"))

	dashboard, err := service.generateDashboard(1, PeriodCurrentMonth)
	assert.NoError(t, err)

	current := dashboard.CurrentPeriod
	assert.True(t, current.CurrentBalance.Equal(dec("570.00")))
	// Net cashflow is +100 income -30 account expense; the card expense
	// is excluded, so opening is 570 - 70 = 500.
	assert.True(t, current.OpeningBalance.Equal(dec("500.00")))
	assert.True(t, current.DeltaBalance.Equal(dec("70.00")))
	assert.True(t, current.CreditUsed.Equal(dec("350.00")))
	assert.True(t, current.CreditLimit.Equal(dec("3000.00")))
	assert.Len(t, current.CreditCards, 2)
	assert.Equal(t, "Visa", current.CreditCards[0].Name)

	period := dashboard.PeriodFilter
	assert.True(t, period.IncomeTotal.Equal(dec("100.00")))
	assert.True(t, period.ExpenseTotal.Equal(dec("30.00")))
	assert.True(t, period.NetCashflow.Equal(dec("70.00")))
	assert.Len(t, period.Categories, 1)
	assert.True(t, period.Categories[0].Amount.Equal(dec("30.00")))
	assert.Len(t, period.LastTransactions, 1)
	assert.Equal(t, "txn-2", period.LastTransactions[0].ResourceCode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardService_GenerateDashboardEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewDashboardService(db, nil)

	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("SELECT (.+) FROM tbl_account WHERE user_id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "resource_code", "name", "balance", "closing_date", "usage_count", "last_used_date", "user_id"}))
	mock.ExpectQuery("SELECT (.+) FROM tbl_credit_card WHERE user_id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "resource_code", "name", "credit_limit", "current_balance", "state", "billing_day", "payment_day", "closing_date", "usage_count", "last_used_date", "user_id"}))
	mock.ExpectQuery("SELECT (.+) FROM tbl_transaction t").
		WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"resource_code", "description", "transaction_type", "amount", "transaction_date",
			"account_id", "credit_card_id", "category_code", "category_name", "category_color",
			"account_code", "card_code",
		}))

	dashboard, err := service.generateDashboard(1, PeriodCurrentMonth)
	assert.NoError(t, err)

	assert.True(t, dashboard.CurrentPeriod.CurrentBalance.IsZero())
	assert.True(t, dashboard.CurrentPeriod.OpeningBalance.IsZero())
	assert.True(t, dashboard.PeriodFilter.NetCashflow.IsZero())
	assert.NotNil(t, dashboard.PeriodFilter.Categories)
	assert.Empty(t, dashboard.PeriodFilter.Categories)
	assert.NotNil(t, dashboard.PeriodFilter.LastTransactions)
	assert.Empty(t, dashboard.PeriodFilter.LastTransactions)
}

func TestDashboardService_HandlerServesCachedPayload(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewDashboardService(db, redisClient)

	cached, err := json.Marshal(models.DashboardResponse{})
	assert.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM tbl_user").
		WithArgs(testEmail).
		WillReturnRows(userRows())
	redisMock.ExpectGet(dashboardCacheKey(1, PeriodCurrentMonth)).SetVal(string(cached))

	r := newLedgerRequest(t, "GET", "/api/v1/dashboard?periodFilter=CURRENT_MONTH", nil)
	w := httptest.NewRecorder()

	service.GenerateDashboard(w, r)

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, string(cached), w.Body.String())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestDashboardService_HandlerRejectsBadFilter(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewDashboardService(db, nil)

	r := newLedgerRequest(t, "GET", "/api/v1/dashboard?periodFilter=SOMETIME", nil)
	w := httptest.NewRecorder()

	service.GenerateDashboard(w, r)

	assert.Equal(t, 400, w.Code)
}

package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xpenbox/backend/internal/middleware"
	"github.com/xpenbox/backend/internal/models"
)

const dashboardCacheTTL = 5 * time.Minute

func dashboardCacheKey(userID int64, filter PeriodFilter) string {
	return fmt.Sprintf("dashboard:%d:%s", userID, filter)
}

// DashboardService aggregates accounts, credit cards and period transactions
// into a single snapshot. Aggregation is read-only: the helpers derive every
// figure from one consistent fetch, so the same inputs always produce the
// same dashboard.
type DashboardService struct {
	db       *sql.DB
	redis    *redis.Client
	balances *BalanceStore
	now      func() time.Time
}

func NewDashboardService(db *sql.DB, redisClient *redis.Client) *DashboardService {
	return &DashboardService{
		db:       db,
		redis:    redisClient,
		balances: NewBalanceStore(db),
		now:      time.Now,
	}
}

// dashboardTxn is one period transaction with the resource-code projection
// needed for the recent-transactions list.
type dashboardTxn struct {
	models.PeriodTransaction
	View models.TransactionView
}

// GenerateDashboard godoc
// @Summary Generate the dashboard for a period
// @Description Aggregates balances, credit usage, cashflow and category breakdown for the requested period filter
// @Tags Dashboard
// @Produce json
// @Param periodFilter query string false "CURRENT_MONTH, LAST_MONTH, LAST_3_MONTHS, LAST_6_MONTHS, CURRENT_YEAR or LAST_YEAR"
// @Success 200 {object} models.DashboardResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /dashboard [get]
func (ds *DashboardService) GenerateDashboard(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.PrincipalEmail(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	filter, err := ParsePeriodFilter(r.URL.Query().Get("periodFilter"))
	if err != nil {
		sendDomainError(w, err)
		return
	}

	user, err := findUserByEmail(ds.db, email)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	if cached, ok := ds.cachedDashboard(r.Context(), user.ID, filter); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(cached)
		return
	}

	dashboard, err := ds.generateDashboard(user.ID, filter)
	if err != nil {
		log.Printf("[DASHBOARD] Generation failed for %s (%s): %v", email, filter, err)
		sendDomainError(w, err)
		return
	}

	payload, err := json.Marshal(dashboard)
	if err != nil {
		sendDomainError(w, err)
		return
	}
	ds.cacheDashboard(r.Context(), user.ID, filter, payload)

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (ds *DashboardService) generateDashboard(userID int64, filter PeriodFilter) (*models.DashboardResponse, error) {
	from, to := filter.DateRange(ds.now())

	var (
		accounts     []models.Account
		cards        []models.CreditCard
		transactions []dashboardTxn
	)

	g := &errgroup.Group{}
	g.Go(func() error {
		var err error
		accounts, err = ds.balances.ListAccountsForUser(userID)
		return err
	})
	g.Go(func() error {
		var err error
		cards, err = ds.balances.ListCreditCardsForUser(userID)
		return err
	})
	g.Go(func() error {
		var err error
		transactions, err = fetchPeriodTransactions(ds.db, userID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	currentBalance := sumAccountBalances(accounts)
	net := netCashflow(transactions)
	opening := currentBalance.Sub(net)

	return &models.DashboardResponse{
		CurrentPeriod: models.DashboardCurrentPeriod{
			CurrentBalance: currentBalance,
			OpeningBalance: opening,
			DeltaBalance:   currentBalance.Sub(opening),
			CreditUsed:     sumCardOwed(cards),
			CreditLimit:    sumCardLimits(cards),
			CreditCards:    sortCardsByOwed(cards),
		},
		PeriodFilter: models.DashboardPeriodFilter{
			IncomeTotal:      incomeTotal(transactions),
			ExpenseTotal:     expenseTotal(transactions),
			NetCashflow:      net,
			Categories:       groupByCategory(transactions),
			LastTransactions: lastTransactions(transactions, 10),
		},
	}, nil
}

func fetchPeriodTransactions(db *sql.DB, userID int64, from, to time.Time) ([]dashboardTxn, error) {
	rows, err := db.Query(
		`SELECT t.resource_code, t.description, t.transaction_type, t.amount, t.transaction_date,
		        t.account_id, t.credit_card_id,
		        c.resource_code, c.name, c.color,
		        a.resource_code, cc.resource_code
		 FROM tbl_transaction t
		 LEFT JOIN tbl_category c ON c.id = t.category_id
		 LEFT JOIN tbl_account a ON a.id = t.account_id
		 LEFT JOIN tbl_credit_card cc ON cc.id = t.credit_card_id
		 WHERE t.user_id = $1 AND t.transaction_date BETWEEN $2 AND $3
		 ORDER BY t.transaction_date DESC, t.id DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch period transactions: %w", err)
	}
	defer rows.Close()

	transactions := []dashboardTxn{}
	for rows.Next() {
		var (
			txn          dashboardTxn
			accountID    sql.NullInt64
			creditCardID sql.NullInt64
			catCode      *string
			catName      *string
			catColor     *string
		)
		err := rows.Scan(
			&txn.ResourceCode, &txn.Description, &txn.Type, &txn.Amount, &txn.TransactionDate,
			&accountID, &creditCardID,
			&catCode, &catName, &catColor,
			&txn.View.AccountResourceCode, &txn.View.CreditCardResourceCode,
		)
		if err != nil {
			return nil, fmt.Errorf("scan period transaction: %w", err)
		}

		txn.AccountID = nullableID(accountID)
		txn.CreditCardID = nullableID(creditCardID)
		if catCode != nil {
			txn.Category = &models.Category{ResourceCode: *catCode, Name: *catName, Color: *catColor}
			txn.View.CategoryResourceCode = catCode
		}

		txn.View.ResourceCode = txn.ResourceCode
		txn.View.Description = txn.Description
		txn.View.TransactionType = txn.Type
		txn.View.Amount = txn.Amount
		txn.View.TransactionDate = txn.TransactionDate
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// spendingEligible reports whether a transaction counts as spending for the
// dashboard. Card expenses are deferred spending and transfers move money
// between own accounts, so neither qualifies.
func spendingEligible(txn *models.PeriodTransaction) bool {
	switch txn.Type {
	case models.TypeCreditPayment:
		return true
	case models.TypeExpense:
		return txn.AccountID != nil
	}
	return false
}

func sumAccountBalances(accounts []models.Account) decimal.Decimal {
	total := decimal.Zero
	for _, account := range accounts {
		total = total.Add(account.Balance)
	}
	return total
}

func sumCardOwed(cards []models.CreditCard) decimal.Decimal {
	total := decimal.Zero
	for _, card := range cards {
		total = total.Add(card.CurrentBalance)
	}
	return total
}

func sumCardLimits(cards []models.CreditCard) decimal.Decimal {
	total := decimal.Zero
	for _, card := range cards {
		total = total.Add(card.CreditLimit)
	}
	return total
}

func sortCardsByOwed(cards []models.CreditCard) []models.CreditCard {
	sorted := make([]models.CreditCard, len(cards))
	copy(sorted, cards)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CurrentBalance.GreaterThan(sorted[j].CurrentBalance)
	})
	return sorted
}

func incomeTotal(transactions []dashboardTxn) decimal.Decimal {
	total := decimal.Zero
	for i := range transactions {
		if transactions[i].Type == models.TypeIncome {
			total = total.Add(transactions[i].Amount)
		}
	}
	return total
}

func expenseTotal(transactions []dashboardTxn) decimal.Decimal {
	total := decimal.Zero
	for i := range transactions {
		if spendingEligible(&transactions[i].PeriodTransaction) {
			total = total.Add(transactions[i].Amount)
		}
	}
	return total
}

// netCashflow is income in, eligible spending out. Transfers and card
// expenses contribute nothing.
func netCashflow(transactions []dashboardTxn) decimal.Decimal {
	total := decimal.Zero
	for i := range transactions {
		switch {
		case transactions[i].Type == models.TypeIncome:
			total = total.Add(transactions[i].Amount)
		case spendingEligible(&transactions[i].PeriodTransaction):
			total = total.Sub(transactions[i].Amount)
		}
	}
	return total
}

// groupByCategory breaks eligible categorized spending down per category,
// largest first. Ties order by name so the output is deterministic.
func groupByCategory(transactions []dashboardTxn) []models.CategoryReport {
	totals := map[string]*models.CategoryReport{}
	for i := range transactions {
		txn := &transactions[i]
		if txn.Category == nil || !spendingEligible(&txn.PeriodTransaction) {
			continue
		}
		report, ok := totals[txn.Category.ResourceCode]
		if !ok {
			report = &models.CategoryReport{
				ResourceCode: txn.Category.ResourceCode,
				Name:         txn.Category.Name,
				Color:        txn.Category.Color,
			}
			totals[txn.Category.ResourceCode] = report
		}
		report.Amount = report.Amount.Add(txn.Amount)
	}

	reports := make([]models.CategoryReport, 0, len(totals))
	for _, report := range totals {
		reports = append(reports, *report)
	}
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].Amount.Equal(reports[j].Amount) {
			return reports[i].Amount.GreaterThan(reports[j].Amount)
		}
		return reports[i].Name < reports[j].Name
	})
	return reports
}

// lastTransactions returns the most recent eligible spending, newest first.
// The input is already sorted by date descending.
func lastTransactions(transactions []dashboardTxn, limit int) []models.TransactionView {
	views := []models.TransactionView{}
	for i := range transactions {
		if !spendingEligible(&transactions[i].PeriodTransaction) {
			continue
		}
		views = append(views, transactions[i].View)
		if len(views) == limit {
			break
		}
	}
	return views
}

func (ds *DashboardService) cachedDashboard(ctx context.Context, userID int64, filter PeriodFilter) ([]byte, bool) {
	if ds.redis == nil {
		return nil, false
	}
	payload, err := ds.redis.Get(ctx, dashboardCacheKey(userID, filter)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[DASHBOARD] Cache read failed for user %d: %v", userID, err)
		}
		return nil, false
	}
	return payload, true
}

func (ds *DashboardService) cacheDashboard(ctx context.Context, userID int64, filter PeriodFilter, payload []byte) {
	if ds.redis == nil {
		return
	}
	if err := ds.redis.Set(ctx, dashboardCacheKey(userID, filter), payload, dashboardCacheTTL).Err(); err != nil {
		log.Printf("[DASHBOARD] Cache write failed for user %d: %v", userID, err)
	}
}

package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestFindUserByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("resolves the principal", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM tbl_user").
			WithArgs(testEmail).
			WillReturnRows(userRows())

		user, err := findUserByEmail(db, testEmail)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, testEmail, user.Email)
	})

	t.Run("unknown principal is unauthorized", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM tbl_user").
			WithArgs("ghost@example.com").
			WillReturnError(sql.ErrNoRows)

		_, err := findUserByEmail(db, "ghost@example.com")
		var unauthorizedErr *UnauthorizedError
		assert.ErrorAs(t, err, &unauthorizedErr)
	})
}

func TestFindCategory(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("resolves the category", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "resource_code", "name", "color", "state", "usage_count", "last_used_date", "user_id"}).
			AddRow(7, "cat-food", "Food", "#ff0000", true, 3, time.Now(), 1)
		mock.ExpectQuery("SELECT (.+) FROM tbl_category").
			WithArgs("cat-food", int64(1)).
			WillReturnRows(rows)

		category, err := findCategory(db, "cat-food", 1)
		assert.NoError(t, err)
		assert.Equal(t, "Food", category.Name)
	})

	t.Run("missing category is tolerated", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM tbl_category").
			WithArgs("cat-gone", int64(1)).
			WillReturnError(sql.ErrNoRows)

		category, err := findCategory(db, "cat-gone", 1)
		assert.NoError(t, err)
		assert.Nil(t, category)
	})
}

func TestFindTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("maps nullable references", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"id", "resource_code", "description", "transaction_type", "amount", "latitude", "longitude",
			"transaction_date", "category_id", "income_id", "account_id", "credit_card_id",
			"destination_account_id", "user_id", "created_at",
		}).AddRow(42, "txn-1", "Groceries", "EXPENSE", "30.00", nil, nil, time.Now(), 7, nil, 10, nil, nil, 1, time.Now())
		mock.ExpectQuery("SELECT (.+) FROM tbl_transaction").
			WithArgs("txn-1", int64(1)).
			WillReturnRows(rows)

		txn, err := findTransaction(db, "txn-1", 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), *txn.CategoryID)
		assert.Equal(t, int64(10), *txn.AccountID)
		assert.Nil(t, txn.IncomeID)
		assert.Nil(t, txn.CreditCardID)
		assert.Nil(t, txn.Latitude)
	})

	t.Run("foreign code is not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM tbl_transaction").
			WithArgs("txn-foreign", int64(1)).
			WillReturnError(sql.ErrNoRows)

		_, err := findTransaction(db, "txn-foreign", 1)
		var notFoundErr *NotFoundError
		assert.ErrorAs(t, err, &notFoundErr)
	})
}

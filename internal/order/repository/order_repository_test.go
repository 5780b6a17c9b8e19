package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/testutil"
)

var orderRowColumns = []string{
	"id", "orderType", "status", "customerName", "customerPhone", "customerAddress", "notes", "tableId",
	"totalAmount", "paymentMethod", "amountPaid", "changeDue", "autoProgress", "currentProgressPercent",
	"nextAutoTransitionTime", "lastStatusChangeTime", "orderTime", "cashRegisterSessionId",
}

func newMockOrderRepository(t *testing.T) (*MySQLOrderRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLOrderRepository(db), mock
}

// Unit Tests

func TestNewMySQLOrderRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLOrderRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestOrderRepository_FindByID_ScansNullableColumns(t *testing.T) {
	repo, mock := newMockOrderRepository(t)
	now := time.Date(2024, 4, 2, 20, 0, 0, 0, time.UTC)
	next := now.Add(10 * time.Minute)

	rows := sqlmock.NewRows(orderRowColumns).AddRow(
		"order-1", "DELIVERY", "PREPARING", "Ana", "555-0101", "Rua A, 10", nil, nil,
		"45.50", "CASH", "50.00", "4.50", true, 30,
		next, now, now, "session-1",
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM Orders")).WithArgs("order-1").WillReturnRows(rows)

	order, err := repo.FindByID(context.Background(), "order-1")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderTypeDelivery, order.OrderType)
	assert.Equal(t, domain.OrderStatusPreparing, order.Status)
	assert.True(t, decimal.RequireFromString("45.50").Equal(order.TotalAmount))
	require.NotNil(t, order.PaymentMethod)
	assert.Equal(t, domain.PaymentMethodCash, *order.PaymentMethod)
	assert.True(t, order.AmountPaid.Valid)
	assert.True(t, decimal.RequireFromString("4.50").Equal(order.ChangeDue.Decimal))
	assert.Nil(t, order.Notes)
	assert.Nil(t, order.TableID)
	require.NotNil(t, order.NextAutoTransitionTime)
	assert.Equal(t, next, *order.NextAutoTransitionTime)
	assert.Equal(t, "session-1", *order.CashRegisterSessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_FindByID_NotFound(t *testing.T) {
	repo, mock := newMockOrderRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM Orders")).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	order, err := repo.FindByID(context.Background(), "missing")

	assert.Nil(t, order)
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestOrderRepository_FindRecent(t *testing.T) {
	repo, mock := newMockOrderRepository(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(orderRowColumns).
		AddRow("b", "COUNTER", "PENDING", "Bia", nil, nil, nil, nil, "10.00", nil, nil, nil, false, 100, nil, now, now, nil).
		AddRow("a", "DINE_IN", "PREPARING", "Table 4", nil, nil, nil, "table-4", "22.00", nil, nil, nil, true, 10, now, now, now.Add(-time.Minute), nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY orderTime DESC")).WithArgs(100).WillReturnRows(rows)

	orders, err := repo.FindRecent(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "b", orders[0].ID)
	assert.Nil(t, orders[0].PaymentMethod)
	assert.False(t, orders[0].AmountPaid.Valid)
	assert.Equal(t, "table-4", *orders[1].TableID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Insert(t *testing.T) {
	repo, mock := newMockOrderRepository(t)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO Orders")).
		WithArgs("order-1", "COUNTER", "PENDING", "Caio", nil, nil, nil, nil,
			sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg(), true, 0,
			sqlmock.AnyArg(), now, now, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	next := now.Add(time.Minute)
	err := repo.Insert(context.Background(), domain.Order{
		ID:                     "order-1",
		OrderType:              domain.OrderTypeCounter,
		Status:                 domain.OrderStatusPending,
		CustomerName:           "Caio",
		TotalAmount:            decimal.NewFromInt(30),
		AutoProgress:           true,
		NextAutoTransitionTime: &next,
		LastStatusChangeTime:   now,
		OrderTime:              now,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Update_MissingRow(t *testing.T) {
	repo, mock := newMockOrderRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE Orders SET")).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), domain.Order{ID: "gone", Status: domain.OrderStatusPreparing})

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Update(t *testing.T) {
	repo, mock := newMockOrderRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE Orders SET")).
		WithArgs("PREPARING", "Caio", sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg(),
			false, 100, nil, sqlmock.AnyArg(), nil, "order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), domain.Order{
		ID:                     "order-1",
		Status:                 domain.OrderStatusPreparing,
		CustomerName:           "Caio",
		CurrentProgressPercent: 100,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Update_WrapsDriverError(t *testing.T) {
	repo, mock := newMockOrderRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE Orders SET")).WillReturnError(errors.New("connection reset"))

	err := repo.Update(context.Background(), domain.Order{ID: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "updating order: connection reset")
}

func TestOrderRepository_Delete(t *testing.T) {
	repo, mock := newMockOrderRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM Orders")).WithArgs("order-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM Orders")).WithArgs("order-2").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), "order-1"))
	_, ok := apperrors.IsNotFoundError(repo.Delete(context.Background(), "order-2"))
	assert.True(t, ok)
}

// Integration Tests

func TestOrderRepository_InsertAndFind_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	now := time.Now().UTC().Truncate(time.Millisecond)
	phone := "555-0199"

	err := repo.Insert(context.Background(), domain.Order{
		ID:                     "it-order-1",
		OrderType:              domain.OrderTypeDelivery,
		Status:                 domain.OrderStatusPending,
		CustomerName:           "Integration",
		CustomerPhone:          &phone,
		TotalAmount:            decimal.RequireFromString("99.90"),
		CurrentProgressPercent: 100,
		LastStatusChangeTime:   now,
		OrderTime:              now,
	})
	require.NoError(t, err)

	order, err := repo.FindByID(context.Background(), "it-order-1")
	require.NoError(t, err)
	assert.Equal(t, "Integration", order.CustomerName)
	assert.True(t, decimal.RequireFromString("99.90").Equal(order.TotalAmount))
	assert.Equal(t, "555-0199", *order.CustomerPhone)
}

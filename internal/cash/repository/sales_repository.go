package repository

import (
	"context"
	"database/sql"
	"fmt"

	"comanda/internal/domain"
)

// MySQLSalesRepository reads the orders settled into a cash session.
type MySQLSalesRepository struct {
	db *sql.DB
}

func NewMySQLSalesRepository(db *sql.DB) *MySQLSalesRepository {
	return &MySQLSalesRepository{db: db}
}

// FindSettledOrders returns DELIVERED orders attached to sessionID with only the columns
// reconciliation needs.
func (r *MySQLSalesRepository) FindSettledOrders(ctx context.Context, tx *sql.Tx, sessionID string) ([]domain.Order, error) {
	query := `
		SELECT id, status, paymentMethod, totalAmount, cashRegisterSessionId
		FROM Orders
		WHERE cashRegisterSessionId = ? AND status = 'DELIVERED'
	`

	rows, err := tx.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session sales: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Status, &o.PaymentMethod, &o.TotalAmount, &o.CashRegisterSessionID); err != nil {
			return nil, fmt.Errorf("scanning session sale: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session sales: %w", err)
	}

	return orders, nil
}

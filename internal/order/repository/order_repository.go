package repository

import (
	"context"
	"database/sql"
	"fmt"

	"comanda/internal/domain"
	"comanda/internal/errors"
)

const orderColumns = `
	id, orderType, status, customerName, customerPhone, customerAddress, notes, tableId,
	totalAmount, paymentMethod, amountPaid, changeDue, autoProgress, currentProgressPercent,
	nextAutoTransitionTime, lastStatusChangeTime, orderTime, cashRegisterSessionId`

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.OrderType, &order.Status, &order.CustomerName, &order.CustomerPhone,
		&order.CustomerAddress, &order.Notes, &order.TableID, &order.TotalAmount,
		&order.PaymentMethod, &order.AmountPaid, &order.ChangeDue, &order.AutoProgress,
		&order.CurrentProgressPercent, &order.NextAutoTransitionTime, &order.LastStatusChangeTime,
		&order.OrderTime, &order.CashRegisterSessionID,
	)
	return order, err
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM Orders
		WHERE id = ?
	`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	return &order, nil
}

// FindRecent returns up to limit orders, newest first, without items.
func (r *MySQLOrderRepository) FindRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM Orders
		ORDER BY orderTime DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}

	return orders, nil
}

func (r *MySQLOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	query := `
		INSERT INTO Orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		order.ID, order.OrderType, order.Status, order.CustomerName, order.CustomerPhone,
		order.CustomerAddress, order.Notes, order.TableID, order.TotalAmount,
		order.PaymentMethod, order.AmountPaid, order.ChangeDue, order.AutoProgress,
		order.CurrentProgressPercent, order.NextAutoTransitionTime, order.LastStatusChangeTime,
		order.OrderTime, order.CashRegisterSessionID,
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

// Update writes every mutable column of order. The last writer wins.
func (r *MySQLOrderRepository) Update(ctx context.Context, order domain.Order) error {
	query := `
		UPDATE Orders SET
			status = ?, customerName = ?, totalAmount = ?, paymentMethod = ?, amountPaid = ?,
			changeDue = ?, autoProgress = ?, currentProgressPercent = ?,
			nextAutoTransitionTime = ?, lastStatusChangeTime = ?, cashRegisterSessionId = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		order.Status, order.CustomerName, order.TotalAmount, order.PaymentMethod, order.AmountPaid,
		order.ChangeDue, order.AutoProgress, order.CurrentProgressPercent,
		order.NextAutoTransitionTime, order.LastStatusChangeTime, order.CashRegisterSessionID,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("updating order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", order.ID))
	}

	return nil
}

func (r *MySQLOrderRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM Orders WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}

	return nil
}

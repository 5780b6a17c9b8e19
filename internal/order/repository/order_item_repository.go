package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"comanda/internal/domain"
)

type MySQLOrderItemRepository struct {
	db *sql.DB
}

func NewMySQLOrderItemRepository(db *sql.DB) *MySQLOrderItemRepository {
	return &MySQLOrderItemRepository{db: db}
}

// InsertBatch writes all items in a single statement so a failure leaves none behind.
func (r *MySQLOrderItemRepository) InsertBatch(ctx context.Context, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*10)
	for _, item := range items {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			item.ID, item.OrderID, item.MenuItemID, item.Name, item.Quantity, item.Price,
			item.SelectedSizeID, item.SelectedCrustID, item.IsHalfAndHalf, item.Notes,
		)
	}

	query := `INSERT INTO OrderItems
		(id, orderId, menuItemId, name, quantity, price, selectedSizeId, selectedCrustId, isHalfAndHalf, notes)
		VALUES ` + strings.Join(placeholders, ", ")

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting order items: %w", err)
	}

	return nil
}

// DeleteByIDs removes the given items. It undoes an InsertBatch whose order update failed.
func (r *MySQLOrderItemRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	query := `DELETE FROM OrderItems WHERE id IN (` + placeholders + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting order items: %w", err)
	}

	return nil
}

func (r *MySQLOrderItemRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	query := `
		SELECT id, orderId, menuItemId, name, quantity, price, selectedSizeId, selectedCrustId,
		       isHalfAndHalf, notes, createdAt
		FROM OrderItems
		WHERE orderId = ?
		ORDER BY createdAt ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.MenuItemID, &item.Name, &item.Quantity, &item.Price,
			&item.SelectedSizeID, &item.SelectedCrustID, &item.IsHalfAndHalf, &item.Notes, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order items: %w", err)
	}

	return items, nil
}

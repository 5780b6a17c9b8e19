package repository

import (
	"context"
	"database/sql"
	"fmt"

	"comanda/internal/domain"
	"comanda/internal/errors"
)

type MySQLTableRepository struct {
	db *sql.DB
}

func NewMySQLTableRepository(db *sql.DB) *MySQLTableRepository {
	return &MySQLTableRepository{db: db}
}

func (r *MySQLTableRepository) FindAll(ctx context.Context) ([]domain.Table, error) {
	query := `
		SELECT id, name, capacity, status, currentOrderId, createdAt
		FROM DiningTables
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	defer rows.Close()

	tables := []domain.Table{}
	for rows.Next() {
		var table domain.Table
		if err := rows.Scan(&table.ID, &table.Name, &table.Capacity, &table.Status, &table.CurrentOrderID, &table.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning table: %w", err)
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tables: %w", err)
	}

	return tables, nil
}

func (r *MySQLTableRepository) FindByID(ctx context.Context, id string) (*domain.Table, error) {
	query := `
		SELECT id, name, capacity, status, currentOrderId, createdAt
		FROM DiningTables
		WHERE id = ?
	`

	var table domain.Table
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&table.ID, &table.Name, &table.Capacity, &table.Status, &table.CurrentOrderID, &table.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("table with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying table by id: %w", err)
	}

	return &table, nil
}

func (r *MySQLTableRepository) UpdateStatus(ctx context.Context, id string, status domain.TableStatus, currentOrderID *string) error {
	query := `UPDATE DiningTables SET status = ?, currentOrderId = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, status, currentOrderID, id)
	if err != nil {
		return fmt.Errorf("updating table status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("table with id %s not found", id))
	}

	return nil
}

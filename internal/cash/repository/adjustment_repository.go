package repository

import (
	"context"
	"database/sql"
	"fmt"

	"comanda/internal/domain"
)

type MySQLAdjustmentRepository struct {
	db *sql.DB
}

func NewMySQLAdjustmentRepository(db *sql.DB) *MySQLAdjustmentRepository {
	return &MySQLAdjustmentRepository{db: db}
}

func (r *MySQLAdjustmentRepository) Insert(ctx context.Context, a domain.CashAdjustment) error {
	query := `INSERT INTO CashAdjustments (id, cashRegisterSessionId, adjustmentType, amount, reason, adjustedAt)
		VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, a.ID, a.SessionID, a.Type, a.Amount, a.Reason, a.AdjustedAt); err != nil {
		return fmt.Errorf("inserting cash adjustment: %w", err)
	}

	return nil
}

// FindBySession reads within tx so the figures match the locked session row.
func (r *MySQLAdjustmentRepository) FindBySession(ctx context.Context, tx *sql.Tx, sessionID string) ([]domain.CashAdjustment, error) {
	query := `SELECT id, cashRegisterSessionId, adjustmentType, amount, reason, adjustedAt
		FROM CashAdjustments
		WHERE cashRegisterSessionId = ?
		ORDER BY adjustedAt DESC`

	rows, err := tx.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying cash adjustments: %w", err)
	}
	return scanAdjustments(rows)
}

func (r *MySQLAdjustmentRepository) FindAll(ctx context.Context) ([]domain.CashAdjustment, error) {
	query := `SELECT id, cashRegisterSessionId, adjustmentType, amount, reason, adjustedAt
		FROM CashAdjustments
		ORDER BY adjustedAt DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying cash adjustments: %w", err)
	}
	return scanAdjustments(rows)
}

func scanAdjustments(rows *sql.Rows) ([]domain.CashAdjustment, error) {
	defer rows.Close()

	adjustments := []domain.CashAdjustment{}
	for rows.Next() {
		var a domain.CashAdjustment
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Type, &a.Amount, &a.Reason, &a.AdjustedAt); err != nil {
			return nil, fmt.Errorf("scanning cash adjustment: %w", err)
		}
		adjustments = append(adjustments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cash adjustments: %w", err)
	}

	return adjustments, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"comanda/internal/domain"
	"comanda/internal/errors"
)

const sessionColumns = `id, openingBalance, status, openedAt, closedAt, closingBalanceInformed,
	calculatedSales, expectedInCash, differenceCash, notesOpening, notesClosing`

type MySQLSessionRepository struct {
	db *sql.DB
}

func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.CashRegisterSession, error) {
	var s domain.CashRegisterSession
	err := row.Scan(
		&s.ID, &s.OpeningBalance, &s.Status, &s.OpenedAt, &s.ClosedAt, &s.ClosingBalanceInformed,
		&s.CalculatedSales, &s.ExpectedInCash, &s.DifferenceCash, &s.NotesOpening, &s.NotesClosing,
	)
	return s, err
}

func (r *MySQLSessionRepository) FindAll(ctx context.Context) ([]domain.CashRegisterSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM CashRegisterSessions ORDER BY openedAt DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying cash sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.CashRegisterSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning cash session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cash sessions: %w", err)
	}

	return sessions, nil
}

// FindOpenForUpdate locks and returns the OPEN session, if any.
func (r *MySQLSessionRepository) FindOpenForUpdate(ctx context.Context, tx *sql.Tx) (*domain.CashRegisterSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM CashRegisterSessions
		WHERE status = 'OPEN'
		LIMIT 1
		FOR UPDATE
	`

	s, err := scanSession(tx.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("no open cash register session")
	}
	if err != nil {
		return nil, fmt.Errorf("querying open cash session: %w", err)
	}

	return &s, nil
}

func (r *MySQLSessionRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.CashRegisterSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM CashRegisterSessions
		WHERE id = ?
		FOR UPDATE
	`

	s, err := scanSession(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("cash session with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying cash session by id: %w", err)
	}

	return &s, nil
}

func (r *MySQLSessionRepository) Insert(ctx context.Context, tx *sql.Tx, s domain.CashRegisterSession) error {
	query := `INSERT INTO CashRegisterSessions (id, openingBalance, status, openedAt, notesOpening)
		VALUES (?, ?, ?, ?, ?)`

	if _, err := tx.ExecContext(ctx, query, s.ID, s.OpeningBalance, s.Status, s.OpenedAt, s.NotesOpening); err != nil {
		return fmt.Errorf("inserting cash session: %w", err)
	}

	return nil
}

// Close stores the closing figures of s.
func (r *MySQLSessionRepository) Close(ctx context.Context, tx *sql.Tx, s domain.CashRegisterSession) error {
	query := `
		UPDATE CashRegisterSessions SET
			status = ?, closedAt = ?, closingBalanceInformed = ?, calculatedSales = ?,
			expectedInCash = ?, differenceCash = ?, notesClosing = ?
		WHERE id = ? AND status = 'OPEN'
	`

	result, err := tx.ExecContext(ctx, query,
		s.Status, s.ClosedAt, s.ClosingBalanceInformed, s.CalculatedSales,
		s.ExpectedInCash, s.DifferenceCash, s.NotesClosing, s.ID,
	)
	if err != nil {
		return fmt.Errorf("closing cash session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewConflictError(fmt.Sprintf("cash session %s is not open", s.ID))
	}

	return nil
}

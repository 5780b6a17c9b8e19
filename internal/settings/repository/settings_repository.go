package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"comanda/internal/errors"
)

// DefaultSettingsID is the key of the single settings row.
const DefaultSettingsID = "default_settings"

// Document is the JSON stored in AppSettings.settingsData.
type Document struct {
	OrderFlow map[string]map[string]int64 `json:"orderFlow,omitempty"`
	Store     *StoreDocument              `json:"store,omitempty"`
}

// StoreDocument is the online store's opening schedule.
type StoreDocument struct {
	Timezone     string            `json:"timezone"`
	OpeningHours map[string]string `json:"openingHours"`
}

type MySQLSettingsRepository struct {
	db *sql.DB
}

func NewMySQLSettingsRepository(db *sql.DB) *MySQLSettingsRepository {
	return &MySQLSettingsRepository{db: db}
}

func (r *MySQLSettingsRepository) Find(ctx context.Context) (*Document, error) {
	query := `SELECT settingsData FROM AppSettings WHERE id = ?`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, DefaultSettingsID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("settings not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	return &doc, nil
}

func (r *MySQLSettingsRepository) Save(ctx context.Context, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	query := `
		INSERT INTO AppSettings (id, settingsData)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE settingsData = VALUES(settingsData)
	`

	if _, err := r.db.ExecContext(ctx, query, DefaultSettingsID, raw); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	return nil
}

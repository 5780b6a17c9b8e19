package mysql

import (
	"database/sql"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"

	"comanda/internal/config"
)

// DSN builds the driver configuration. clientFoundRows makes UPDATE report matched rows,
// so rewriting a row with identical values is not mistaken for a missing row.
func DSN(cfg config.DatabaseConfig, multiStatements bool) string {
	driverCfg := gomysql.NewConfig()
	driverCfg.User = cfg.User
	driverCfg.Passwd = cfg.Password
	driverCfg.Net = "tcp"
	driverCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	driverCfg.DBName = cfg.Name
	driverCfg.ParseTime = true
	driverCfg.ClientFoundRows = true
	driverCfg.MultiStatements = multiStatements
	return driverCfg.FormatDSN()
}

func NewConnection(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg, false))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

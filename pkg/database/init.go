package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/allodoc/allodoc-backend/config"
)

// InitializeDatabase creates the application database if it doesn't exist.
// It connects to the default 'postgres' database to create it. This should
// be called once during startup, before migrations run.
func InitializeDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.DBName == "" {
		return fmt.Errorf("no database name provided")
	}

	adminCfg := FromCentralConfig(cfg.Database)
	adminCfg.DBName = "postgres"

	conn, err := pgx.Connect(ctx, adminCfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer conn.Close(ctx)

	return createDatabaseIfNotExists(ctx, conn, cfg.Database.DBName)
}

func createDatabaseIfNotExists(ctx context.Context, conn *pgx.Conn, dbName string) error {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`
	if err := conn.QueryRow(ctx, query, dbName).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}

	if exists {
		return nil
	}

	createCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// CREATE DATABASE cannot be parameterized; dbName comes from config.
	if _, err := conn.Exec(createCtx, fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		return fmt.Errorf("failed to create database %q: %w", dbName, err)
	}

	return nil
}

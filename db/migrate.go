package db

import (
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFs embed.FS

func Migrate(direction string, db *sqlx.DB) error {
	goose.SetBaseFS(migrationsFs)
	if err := goose.SetDialect(db.DriverName()); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	migrateMethod := goose.Up
	if direction == "down" {
		migrateMethod = goose.Down
	}
	if err := migrateMethod(db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate %v: %w", direction, err)
	}
	return nil
}

package db

import (
	"strings"

	"gorm.io/gorm"
)

// Schemas used by the backend's tables.
const (
	SchemaAuth  = "app_auth"
	SchemaInbox = "inbox"
)

// EnsureSchema creates the Postgres schema if it does not exist yet.
func EnsureSchema(d *gorm.DB, schema string) error {
	quoted := `"` + strings.ReplaceAll(schema, `"`, `""`) + `"`
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS ` + quoted).Error
}

// Migrate ensures schema exists and auto-migrates models into it.
func Migrate(d *gorm.DB, schema string, models ...any) error {
	if err := EnsureSchema(d, schema); err != nil {
		return err
	}
	return d.AutoMigrate(models...)
}

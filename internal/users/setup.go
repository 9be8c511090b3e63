package users

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/lhclegal/lhc-backend/internal/db"
)

// Init creates the app_auth schema and the users table.
func Init(d *gorm.DB) error {
	if err := db.Migrate(d, db.SchemaAuth, &User{}); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

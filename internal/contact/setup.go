package contact

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/lhclegal/lhc-backend/internal/db"
)

// Init creates the inbox schema and the contact_messages table.
func Init(d *gorm.DB) error {
	if err := db.Migrate(d, db.SchemaInbox, &Message{}); err != nil {
		return fmt.Errorf("migrate contact messages: %w", err)
	}
	return nil
}

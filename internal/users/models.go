package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string `gorm:"size:30;not null;index" json:"username"`
	LastName     string `gorm:"size:50" json:"last_name"`
	Email        string `gorm:"size:120;not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"size:256;not null" json:"-"`
	IsAdmin      bool   `gorm:"not null;default:false" json:"is_admin"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	// Sessions issued before this instant are rejected when revocation is on.
	TokensValidAfter *time.Time `json:"-"`
}

func (User) TableName() string { return "app_auth.users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// Role is the access-token role claim for u.
func (u *User) Role() string {
	if u.IsAdmin {
		return "admin"
	}
	return "user"
}

// Public is the external view of a user. It never carries secrets.
type Public struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	IsAdmin   *bool      `json:"is_admin,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Serialize returns the external view. Privileged views also include
// is_admin and created_at.
func (u *User) Serialize(privileged bool) Public {
	p := Public{
		ID:       u.ID,
		Username: u.Username,
		LastName: u.LastName,
		Email:    u.Email,
	}
	if privileged {
		isAdmin := u.IsAdmin
		createdAt := u.CreatedAt
		p.IsAdmin = &isAdmin
		p.CreatedAt = &createdAt
	}
	return p
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Revoked reports whether a token issued at iat predates the user's
// revocation watermark. Both sides are compared in milliseconds.
func (u *User) Revoked(iat time.Time) bool {
	return u.TokensValidAfter != nil && iat.Truncate(time.Millisecond).Before(*u.TokensValidAfter)
}

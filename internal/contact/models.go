package contact

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a stored contact lead.
type Message struct {
	ID              string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          *string    `gorm:"type:uuid;index" json:"user_id,omitempty"`
	FullName        string     `gorm:"size:240;not null" json:"full_name"`
	Email           string     `gorm:"size:120;not null;index" json:"email"`
	Phone           string     `gorm:"size:30" json:"phone,omitempty"`
	Subject         string     `gorm:"size:200" json:"subject"`
	Body            string     `gorm:"column:message;type:text;not null" json:"message"`
	PrivacyAccepted bool       `gorm:"not null;default:true" json:"privacy_accepted"`
	Revoked         bool       `gorm:"not null;default:false;index" json:"revoked"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt       *time.Time `json:"revoked_at"`

	// Source is "form" for the site's contact form and "webhook" for
	// submissions pushed by an external form provider.
	Source       string  `gorm:"size:20;not null;default:form" json:"source"`
	SubmissionID *string `gorm:"size:120;uniqueIndex" json:"-"`
}

const (
	SourceForm    = "form"
	SourceWebhook = "webhook"
)

func (Message) TableName() string { return "inbox.contact_messages" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Status filters for List.
const (
	StatusAll     = "all"
	StatusActive  = "active"
	StatusRevoked = "revoked"
)

// Filter selects and orders leads. Use NewFilter to get defaults for
// invalid values.
type Filter struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	Sort   string `json:"sort"`
	Order  string `json:"order"`
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"email":      "email",
	"full_name":  "full_name",
}

// NewFilter normalises raw query values, falling back to created_at desc
// over all leads.
func NewFilter(email, status, sort, order string) Filter {
	f := Filter{
		Email:  strings.TrimSpace(email),
		Status: status,
		Sort:   sort,
		Order:  order,
	}
	switch f.Status {
	case StatusAll, StatusActive, StatusRevoked:
	default:
		f.Status = StatusAll
	}
	if _, ok := sortColumns[f.Sort]; !ok {
		f.Sort = "created_at"
	}
	if f.Order != "asc" && f.Order != "desc" {
		f.Order = "desc"
	}
	return f
}

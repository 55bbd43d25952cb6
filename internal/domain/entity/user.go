package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account that issues receipts. Company logo and
// signature are stored as data URIs so they can flow straight into rendered
// documents without a fetch.
type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	FirstName       string         `gorm:"size:255;not null" json:"first_name"`
	LastName        string         `gorm:"size:255;not null" json:"last_name"`
	Email           string         `gorm:"size:255;unique;not null" json:"email"`
	Password        string         `gorm:"size:255" json:"-"`
	Provider        string         `gorm:"size:50;default:'local'" json:"provider"`
	ProviderID      *string        `gorm:"size:255" json:"-"`
	Photo           *string        `gorm:"size:255" json:"photo,omitempty"`
	CompanyName     *string        `gorm:"size:255" json:"company_name,omitempty"`
	CompanyAddress  *string        `gorm:"type:text" json:"company_address,omitempty"`
	CompanyPhone    *string        `gorm:"size:50" json:"company_phone,omitempty"`
	CompanyLogo     *string        `gorm:"type:text" json:"company_logo,omitempty"`
	Signature       *string        `gorm:"type:text" json:"signature,omitempty"`
	DefaultCurrency string         `gorm:"size:10;default:'USD'" json:"default_currency"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Receipts []Receipt `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// FullName joins the first and last name for display.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// CompanyDisplayName returns the company name, falling back to the user's
// own name when no company is set.
func (u *User) CompanyDisplayName() string {
	if u.CompanyName != nil && *u.CompanyName != "" {
		return *u.CompanyName
	}
	return u.FullName()
}

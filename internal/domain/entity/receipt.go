package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Delivery channels a receipt can be sent through.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// ReceiptItem represents a single line item on a receipt.
type ReceiptItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// ReceiptItems is the jsonb column holding a receipt's line items.
type ReceiptItems []ReceiptItem

// Value implements driver.Valuer, serializing the items to jsonb.
func (items ReceiptItems) Value() (driver.Value, error) {
	return json.Marshal(items)
}

// Scan implements sql.Scanner, deserializing the items from jsonb.
func (items *ReceiptItems) Scan(value interface{}) error {
	if value == nil {
		*items = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("receipt items: unsupported column type")
	}
	return json.Unmarshal(data, items)
}

// Receipt is an issued receipt. The row is persisted before delivery is
// attempted, so a failed delivery never loses the receipt itself.
type Receipt struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	ReceiptNo       string         `gorm:"size:50;not null;index" json:"receipt_no"`
	CustomerName    string         `gorm:"size:255;not null" json:"customer_name"`
	CustomerEmail   *string        `gorm:"size:255" json:"customer_email,omitempty"`
	CustomerPhone   *string        `gorm:"size:50" json:"customer_phone,omitempty"`
	CustomerAddress *string        `gorm:"type:text" json:"customer_address,omitempty"`
	Date            string         `gorm:"size:50;not null" json:"date"`
	Items           ReceiptItems   `gorm:"type:jsonb;not null" json:"items"`
	Currency        string         `gorm:"size:10;not null" json:"currency"`
	Subtotal        float64        `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxRate         float64        `gorm:"type:decimal(5,2);default:0" json:"tax_rate"`
	Tax             float64        `gorm:"type:decimal(12,2);default:0" json:"tax"`
	Total           float64        `gorm:"type:decimal(12,2);not null" json:"total"`
	PaymentMethod   string         `gorm:"size:50" json:"payment_method"`
	SentVia         string         `gorm:"size:20;not null" json:"sent_via"`
	Signature       *string        `gorm:"type:text" json:"signature,omitempty"`
	Title           *string        `gorm:"size:255" json:"title,omitempty"`
	Delivered       bool           `gorm:"default:false" json:"delivered"`
	PDFURL          *string        `gorm:"size:512" json:"pdf_url,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new receipt
func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Receipt model
func (Receipt) TableName() string {
	return "receipts"
}

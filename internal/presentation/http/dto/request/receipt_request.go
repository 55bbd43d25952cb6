package request

// ReceiptItemRequest represents a single line item on a receipt
type ReceiptItemRequest struct {
	Name     string  `json:"name" binding:"required"`
	Quantity int     `json:"quantity" binding:"required,gt=0"`
	Price    float64 `json:"price" binding:"gte=0"`
}

// SendReceiptRequest represents a send receipt request
type SendReceiptRequest struct {
	CustomerName    string               `json:"customer_name" binding:"required"`
	CustomerEmail   *string              `json:"customer_email" binding:"omitempty,email"`
	CustomerPhone   *string              `json:"customer_phone"`
	CustomerAddress *string              `json:"customer_address"`
	Date            string               `json:"date"`
	Items           []ReceiptItemRequest `json:"items" binding:"required,min=1,dive"`
	Currency        string               `json:"currency"`
	Subtotal        float64              `json:"subtotal" binding:"gte=0"`
	TaxRate         float64              `json:"tax_rate" binding:"gte=0"`
	Tax             float64              `json:"tax" binding:"gte=0"`
	Total           float64              `json:"total" binding:"gte=0"`
	PaymentMethod   string               `json:"payment_method"`
	SentVia         string               `json:"sent_via" binding:"required,oneof=email whatsapp"`
	Signature       *string              `json:"signature"`
	Title           *string              `json:"title"`
	PDFContent      string               `json:"pdf_content"`
}

package service

import (
	"context"
	"time"

	"github.com/biishnuthapa/easyreceipt/internal/domain/entity"
	"github.com/biishnuthapa/easyreceipt/internal/domain/repository"
	"github.com/biishnuthapa/easyreceipt/pkg/apperror"
	"github.com/biishnuthapa/easyreceipt/pkg/mailer"
	"github.com/biishnuthapa/easyreceipt/pkg/pagination"
	"github.com/biishnuthapa/easyreceipt/pkg/pdf"
	"github.com/biishnuthapa/easyreceipt/pkg/storage"
	"github.com/biishnuthapa/easyreceipt/pkg/utils"
	"github.com/biishnuthapa/easyreceipt/pkg/whatsapp"
	"github.com/google/uuid"
)

// EmailDispatcher sends receipts by email. Satisfied by mailer.Service.
type EmailDispatcher interface {
	SendReceipt(ctx context.Context, to string, r *mailer.Receipt, doc *pdf.Document) mailer.Result
}

// WhatsAppDispatcher sends receipts over WhatsApp. Satisfied by whatsapp.Service.
type WhatsAppDispatcher interface {
	SendReceipt(ctx context.Context, to string, r *whatsapp.Receipt, doc *pdf.Document) whatsapp.Result
}

// ReceiptService issues receipts: it persists the receipt, renders the PDF
// and hands it to the channel dispatcher.
type ReceiptService struct {
	receiptRepo repository.ReceiptRepository
	userRepo    repository.UserRepository
	email       EmailDispatcher
	whatsApp    WhatsAppDispatcher
}

// NewReceiptService creates a new receipt service
func NewReceiptService(
	receiptRepo repository.ReceiptRepository,
	userRepo repository.UserRepository,
	email EmailDispatcher,
	whatsApp WhatsAppDispatcher,
) *ReceiptService {
	return &ReceiptService{
		receiptRepo: receiptRepo,
		userRepo:    userRepo,
		email:       email,
		whatsApp:    whatsApp,
	}
}

// SendReceiptInput represents the send receipt input
type SendReceiptInput struct {
	UserID          uuid.UUID
	CustomerName    string
	CustomerEmail   *string
	CustomerPhone   *string
	CustomerAddress *string
	Date            string
	Items           []entity.ReceiptItem
	Currency        string
	// Subtotal, Tax and Total are computed by the caller and stored
	// verbatim; the service does not recompute them from the items.
	Subtotal      float64
	TaxRate       float64
	Tax           float64
	Total         float64
	PaymentMethod string
	SentVia       string
	// Signature and Title are free-form extras printed at the bottom of the
	// document; the signature defaults to the one on the user's profile.
	Signature *string
	Title     *string
	// PDFContent optionally carries a client-rendered document as a data
	// URI; when empty the receipt is rendered server-side.
	PDFContent string
}

// SendReceiptOutput represents the send receipt output. DeliveryError is set
// when the receipt was stored but could not be delivered.
type SendReceiptOutput struct {
	Receipt       *entity.Receipt
	Delivered     bool
	DeliveryError error
}

// SendReceipt stores a receipt and delivers it through the requested
// channel. The row is persisted before any delivery attempt, so a provider
// failure never loses the receipt.
func (s *ReceiptService) SendReceipt(ctx context.Context, input *SendReceiptInput) (*SendReceiptOutput, error) {
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.ErrNotFound
	}

	if len(input.Items) == 0 {
		return nil, apperror.NewBadRequestError("Receipt must have at least one item")
	}

	destination, err := resolveDestination(input)
	if err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = user.DefaultCurrency
	}
	date := input.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	// Snapshot the signature on the row so later downloads reproduce the
	// document even after the profile changes
	signature := input.Signature
	if signature == nil {
		signature = user.Signature
	}

	receipt := &entity.Receipt{
		UserID:          user.ID,
		ReceiptNo:       utils.GenerateReceiptNo("RCP"),
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		CustomerPhone:   input.CustomerPhone,
		CustomerAddress: input.CustomerAddress,
		Date:            date,
		Items:           input.Items,
		Currency:        currency,
		Subtotal:        input.Subtotal,
		TaxRate:         input.TaxRate,
		Tax:             input.Tax,
		Total:           input.Total,
		PaymentMethod:   input.PaymentMethod,
		SentVia:         input.SentVia,
		Signature:       signature,
		Title:           input.Title,
	}

	if err := s.receiptRepo.Create(ctx, receipt); err != nil {
		return nil, err
	}

	doc, err := s.document(receipt, user, input.PDFContent)
	if err != nil {
		// The receipt row survives; the caller learns delivery never ran.
		return &SendReceiptOutput{Receipt: receipt, DeliveryError: err}, nil
	}

	out := &SendReceiptOutput{Receipt: receipt}
	switch input.SentVia {
	case entity.ChannelEmail:
		res := s.email.SendReceipt(ctx, destination, emailModel(receipt, user), doc)
		out.Delivered = res.Success
		out.DeliveryError = res.Error
	case entity.ChannelWhatsApp:
		ctx = storage.WithSession(ctx, storage.Session{UserID: user.ID})
		res := s.whatsApp.SendReceipt(ctx, destination, whatsAppModel(receipt, user), doc)
		out.Delivered = res.Success
		out.DeliveryError = res.Error
		if res.DocumentURL != "" {
			receipt.PDFURL = &res.DocumentURL
		}
	}

	if out.Delivered {
		receipt.Delivered = true
		if err := s.receiptRepo.Update(ctx, receipt); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func resolveDestination(input *SendReceiptInput) (string, error) {
	switch input.SentVia {
	case entity.ChannelEmail:
		if input.CustomerEmail == nil || *input.CustomerEmail == "" {
			return "", apperror.NewBadRequestError("Customer email is required for email delivery")
		}
		return *input.CustomerEmail, nil
	case entity.ChannelWhatsApp:
		if input.CustomerPhone == nil || *input.CustomerPhone == "" {
			return "", apperror.NewBadRequestError("Customer phone is required for WhatsApp delivery")
		}
		return *input.CustomerPhone, nil
	default:
		return "", apperror.NewBadRequestError("Delivery channel must be email or whatsapp")
	}
}

// document returns the client-supplied PDF when present, otherwise renders
// the receipt server-side.
func (s *ReceiptService) document(receipt *entity.Receipt, user *entity.User, pdfContent string) (*pdf.Document, error) {
	if pdfContent != "" {
		doc, err := pdf.FromDataURI(pdfContent)
		if err != nil {
			return nil, apperror.NewBadRequestError("Invalid pdf_content payload")
		}
		return doc, nil
	}

	doc, err := pdf.Render(renderModel(receipt, user))
	if err != nil {
		return nil, apperror.ErrRenderFailed
	}
	return doc, nil
}

func renderModel(r *entity.Receipt, u *entity.User) *pdf.Receipt {
	model := &pdf.Receipt{
		ReceiptNumber: r.ReceiptNo,
		Date:          r.Date,
		CustomerName:  r.CustomerName,
		CompanyName:   u.CompanyDisplayName(),
		Currency:      r.Currency,
		Subtotal:      r.Subtotal,
		TaxRate:       r.TaxRate,
		Tax:           r.Tax,
		Total:         r.Total,
		PaymentMethod: r.PaymentMethod,
	}
	if r.CustomerPhone != nil {
		model.CustomerNumber = *r.CustomerPhone
	}
	if r.CustomerAddress != nil {
		model.CustomerAddress = *r.CustomerAddress
	}
	if u.CompanyLogo != nil {
		model.CompanyLogo = *u.CompanyLogo
	}
	if r.Signature != nil {
		model.Signature = *r.Signature
	}
	if r.Title != nil {
		model.Title = *r.Title
	}
	for _, it := range r.Items {
		model.Items = append(model.Items, pdf.Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return model
}

func emailModel(r *entity.Receipt, u *entity.User) *mailer.Receipt {
	model := &mailer.Receipt{
		ReceiptNumber: r.ReceiptNo,
		Date:          r.Date,
		CustomerName:  r.CustomerName,
		CompanyName:   u.CompanyDisplayName(),
		Currency:      r.Currency,
		Subtotal:      r.Subtotal,
		TaxRate:       r.TaxRate,
		Tax:           r.Tax,
		Total:         r.Total,
		PaymentMethod: r.PaymentMethod,
	}
	for _, it := range r.Items {
		model.Items = append(model.Items, mailer.Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return model
}

func whatsAppModel(r *entity.Receipt, u *entity.User) *whatsapp.Receipt {
	model := &whatsapp.Receipt{
		ReceiptNumber: r.ReceiptNo,
		Date:          r.Date,
		CustomerName:  r.CustomerName,
		CompanyName:   u.CompanyDisplayName(),
		Currency:      r.Currency,
		Subtotal:      r.Subtotal,
		TaxRate:       r.TaxRate,
		Tax:           r.Tax,
		Total:         r.Total,
		PaymentMethod: r.PaymentMethod,
	}
	for _, it := range r.Items {
		model.Items = append(model.Items, whatsapp.Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return model
}

// ListReceipts returns the user's receipts, newest first
func (s *ReceiptService) ListReceipts(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string) ([]entity.Receipt, int64, error) {
	return s.receiptRepo.List(ctx, userID, params, search)
}

// GetReceipt returns a single receipt owned by the user
func (s *ReceiptService) GetReceipt(ctx context.Context, userID, id uuid.UUID) (*entity.Receipt, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}
	return receipt, nil
}

// DownloadReceipt re-renders a stored receipt as a PDF document
func (s *ReceiptService) DownloadReceipt(ctx context.Context, userID, id uuid.UUID) (*entity.Receipt, *pdf.Document, error) {
	receipt, err := s.GetReceipt(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, apperror.ErrNotFound
	}

	doc, err := pdf.Render(renderModel(receipt, user))
	if err != nil {
		return nil, nil, apperror.ErrRenderFailed
	}
	return receipt, doc, nil
}

// DeleteReceipt removes a receipt owned by the user
func (s *ReceiptService) DeleteReceipt(ctx context.Context, userID, id uuid.UUID) error {
	receipt, err := s.receiptRepo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if receipt == nil {
		return apperror.NewNotFoundError("Receipt")
	}
	return s.receiptRepo.Delete(ctx, userID, id)
}

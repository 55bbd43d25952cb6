package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/biishnuthapa/easyreceipt/pkg/pdf"
)

const sendGridHost = "https://api.sendgrid.com"

// Config holds the SendGrid credentials and sender identity.
type Config struct {
	APIKey    string
	FromEmail string
}

// Item is a line item as it appears in the email body.
type Item struct {
	Name     string
	Quantity int
	Price    float64
}

// Receipt is the subset of receipt data the email body needs.
type Receipt struct {
	ReceiptNumber string
	Date          string
	CustomerName  string
	CompanyName   string
	Items         []Item
	Currency      string
	Subtotal      float64
	TaxRate       float64
	Tax           float64
	Total         float64
	PaymentMethod string
}

// ProviderError carries the provider's response when a send is rejected.
type ProviderError struct {
	Status  int
	Body    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("mailer: provider returned status %d: %s", e.Status, e.Body)
	}
	return "mailer: " + e.Message
}

// Result is the outcome of a dispatch attempt. Error is nil when Success.
type Result struct {
	Success bool
	Error   error
}

// Service sends receipt emails through SendGrid.
type Service struct {
	cfg  Config
	send func(ctx context.Context, req rest.Request) (*rest.Response, error)
}

func New(cfg Config) *Service {
	return &Service{
		cfg:  cfg,
		send: sendgrid.MakeRequestWithContext,
	}
}

// SendReceipt emails the rendered receipt as a PDF attachment. It never
// panics; any failure is reported in the result.
func (s *Service) SendReceipt(ctx context.Context, to string, r *Receipt, doc *pdf.Document) Result {
	msg := s.buildMessage(to, r, doc)

	req := sendgrid.GetRequest(s.cfg.APIKey, "/v3/mail/send", sendGridHost)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(msg)

	resp, err := s.send(ctx, req)
	if err != nil {
		return Result{Error: &ProviderError{Message: err.Error()}}
	}
	if resp.StatusCode >= 400 {
		return Result{Error: &ProviderError{Status: resp.StatusCode, Body: resp.Body}}
	}
	return Result{Success: true}
}

// SendPasswordReset emails a password reset link.
func (s *Service) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	msg := mail.NewV3Mail()
	msg.SetFrom(mail.NewEmail("EasyReceipt", s.cfg.FromEmail))
	msg.Subject = "Reset your password"

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", to))
	msg.AddPersonalizations(p)

	body := "We received a request to reset your password.\n\n" +
		"Open the link below to choose a new one. The link expires in one hour.\n\n" +
		resetURL + "\n\n" +
		"If you did not request this, you can ignore this email."
	msg.AddContent(mail.NewContent("text/plain", body))

	req := sendgrid.GetRequest(s.cfg.APIKey, "/v3/mail/send", sendGridHost)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(msg)

	resp, err := s.send(ctx, req)
	if err != nil {
		return &ProviderError{Message: err.Error()}
	}
	if resp.StatusCode >= 400 {
		return &ProviderError{Status: resp.StatusCode, Body: resp.Body}
	}
	return nil
}

func (s *Service) buildMessage(to string, r *Receipt, doc *pdf.Document) *mail.SGMailV3 {
	msg := mail.NewV3Mail()
	msg.SetFrom(mail.NewEmail(r.CompanyName, s.cfg.FromEmail))
	msg.Subject = fmt.Sprintf("Receipt #%s from %s", r.ReceiptNumber, r.CompanyName)

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(r.CustomerName, to))
	msg.AddPersonalizations(p)

	msg.AddContent(
		mail.NewContent("text/plain", textBody(r)),
		mail.NewContent("text/html", htmlBody(r)),
	)

	// A missing document is not an error; the email simply goes out
	// without the attachment
	if doc != nil {
		attachment := mail.NewAttachment()
		attachment.SetContent(base64.StdEncoding.EncodeToString(doc.Bytes()))
		attachment.SetType(pdf.ContentType)
		attachment.SetFilename(fmt.Sprintf("receipt-%s.pdf", r.ReceiptNumber))
		attachment.SetDisposition("attachment")
		msg.AddAttachment(attachment)
	}

	return msg
}

func textBody(r *Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", r.CustomerName)
	fmt.Fprintf(&b, "Thank you for your purchase. Your receipt #%s from %s is attached.\n\n", r.ReceiptNumber, r.CompanyName)
	fmt.Fprintf(&b, "Date: %s\n\n", r.Date)
	b.WriteString("Items:\n")
	for _, it := range r.Items {
		fmt.Fprintf(&b, "%s x %d - %s %.2f\n", it.Name, it.Quantity, r.Currency, it.Price*float64(it.Quantity))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s %.2f\n", r.Currency, r.Subtotal)
	fmt.Fprintf(&b, "Tax (%s%%): %s %.2f\n", formatRate(r.TaxRate), r.Currency, r.Tax)
	fmt.Fprintf(&b, "Total: %s %.2f\n", r.Currency, r.Total)
	fmt.Fprintf(&b, "Payment Method: %s\n\n", r.PaymentMethod)
	fmt.Fprintf(&b, "Best regards,\n%s\n", r.CompanyName)
	return b.String()
}

var htmlTemplate = template.Must(template.New("receipt").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>{{.CompanyName}}</h2>
  <p>Dear {{.CustomerName}},</p>
  <p>Thank you for your purchase. Your receipt <strong>#{{.ReceiptNumber}}</strong> is attached as a PDF.</p>
  <p><strong>Date:</strong> {{.Date}}</p>
  <table style="width: 100%; border-collapse: collapse;">
    <thead>
      <tr style="background-color: #f8f9fa;">
        <th style="padding: 8px; border: 1px solid #dee2e6; text-align: left;">Description</th>
        <th style="padding: 8px; border: 1px solid #dee2e6; text-align: right;">Quantity</th>
        <th style="padding: 8px; border: 1px solid #dee2e6; text-align: right;">Unit Price</th>
        <th style="padding: 8px; border: 1px solid #dee2e6; text-align: right;">Total</th>
      </tr>
    </thead>
    <tbody>
      {{- range .Items}}
      <tr>
        <td style="padding: 8px; border: 1px solid #dee2e6;">{{.Name}}</td>
        <td style="padding: 8px; border: 1px solid #dee2e6; text-align: right;">{{.Quantity}}</td>
        <td style="padding: 8px; border: 1px solid #dee2e6; text-align: right;">{{.UnitPrice}}</td>
        <td style="padding: 8px; border: 1px solid #dee2e6; text-align: right;">{{.LineTotal}}</td>
      </tr>
      {{- end}}
    </tbody>
  </table>
  <p style="text-align: right;">
    Subtotal: {{.Subtotal}}<br>
    Tax ({{.TaxRate}}%): {{.Tax}}<br>
    <strong>Total: {{.Total}}</strong>
  </p>
  <p>Payment Method: {{.PaymentMethod}}</p>
  <p>Best regards,<br>{{.CompanyName}}</p>
</div>`))

type htmlItem struct {
	Name      string
	Quantity  int
	UnitPrice string
	LineTotal string
}

type htmlData struct {
	CompanyName   string
	CustomerName  string
	ReceiptNumber string
	Date          string
	Items         []htmlItem
	Subtotal      string
	TaxRate       string
	Tax           string
	Total         string
	PaymentMethod string
}

func htmlBody(r *Receipt) string {
	data := htmlData{
		CompanyName:   r.CompanyName,
		CustomerName:  r.CustomerName,
		ReceiptNumber: r.ReceiptNumber,
		Date:          r.Date,
		Subtotal:      money(r.Currency, r.Subtotal),
		TaxRate:       formatRate(r.TaxRate),
		Tax:           money(r.Currency, r.Tax),
		Total:         money(r.Currency, r.Total),
		PaymentMethod: r.PaymentMethod,
	}
	for _, it := range r.Items {
		data.Items = append(data.Items, htmlItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: money(r.Currency, it.Price),
			LineTotal: money(r.Currency, it.Price*float64(it.Quantity)),
		})
	}

	var b strings.Builder
	if err := htmlTemplate.Execute(&b, data); err != nil {
		// The template is static and the data plain values; execution
		// cannot fail at runtime, but fall back to the text body anyway.
		return textBody(r)
	}
	return b.String()
}

func money(currency string, v float64) string {
	return fmt.Sprintf("%s %.2f", currency, v)
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

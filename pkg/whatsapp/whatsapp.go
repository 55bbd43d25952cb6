package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/biishnuthapa/easyreceipt/pkg/pdf"
)

// ErrInvalidDestination is returned when the destination number contains no
// digits after normalization.
var ErrInvalidDestination = errors.New("whatsapp: destination has no digits")

// MessageAPI is the slice of the Twilio REST client the dispatcher uses.
type MessageAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Uploader publishes the rendered document at a public URL so Twilio can
// fetch it as message media.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Item is a line item as it appears in the summary message.
type Item struct {
	Name     string
	Quantity int
	Price    float64
}

// Receipt is the subset of receipt data the summary message needs.
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

// ProviderError carries Twilio's error details when a send is rejected.
type ProviderError struct {
	Message string
	Code    int
	Status  int
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("whatsapp: provider error %d: %s", e.Code, e.Message)
	}
	return "whatsapp: " + e.Message
}

// Result is the outcome of a dispatch attempt. The text summary and the
// document media are separate messages: the send as a whole succeeds once
// the text is delivered, even if the document leg fails afterwards.
type Result struct {
	Success      bool
	TextSent     bool
	DocumentSent bool
	// DocumentURL is the public URL the uploaded PDF was published at,
	// set whenever the upload leg succeeded.
	DocumentURL string
	Error       error
}

// Service sends receipt summaries and document media over WhatsApp.
type Service struct {
	api      MessageAPI
	uploader Uploader
	from     string
}

// New builds a dispatcher. uploader may be nil, in which case the document
// leg is skipped and only text summaries go out.
func New(api MessageAPI, uploader Uploader, from string) *Service {
	return &Service{api: api, uploader: uploader, from: from}
}

type sendState int

const (
	stateStart sendState = iota
	stateTextSent
	stateDone
)

// SendReceipt delivers the receipt in two legs: a formatted text summary,
// then the PDF as message media fetched from a public URL. It never panics;
// any failure is reported in the result.
func (s *Service) SendReceipt(ctx context.Context, to string, r *Receipt, doc *pdf.Document) Result {
	dest, err := normalizeDestination(to)
	if err != nil {
		return Result{Error: err}
	}

	var res Result
	for state := stateStart; state != stateDone; {
		switch state {
		case stateStart:
			params := &openapi.CreateMessageParams{}
			params.SetFrom("whatsapp:" + s.from)
			params.SetTo("whatsapp:" + dest)
			params.SetBody(summary(r))
			if _, err := s.api.CreateMessage(params); err != nil {
				res.Error = wrapTwilio(err)
				state = stateDone
				continue
			}
			res.TextSent = true
			state = stateTextSent

		case stateTextSent:
			// The text is already with the customer; from here on
			// failures downgrade to a logged warning.
			res.Success = true
			if s.uploader == nil || doc == nil {
				state = stateDone
				continue
			}

			name := fmt.Sprintf("receipt-%s.pdf", r.ReceiptNumber)
			url, err := s.uploader.Upload(ctx, name, doc.Bytes())
			if err != nil {
				log.Printf("whatsapp: receipt %s: summary delivered but document upload failed: %v", r.ReceiptNumber, err)
				state = stateDone
				continue
			}
			res.DocumentURL = url

			params := &openapi.CreateMessageParams{}
			params.SetFrom("whatsapp:" + s.from)
			params.SetTo("whatsapp:" + dest)
			params.SetBody(fmt.Sprintf("Here is your receipt #%s as a PDF.", r.ReceiptNumber))
			params.SetMediaUrl([]string{url})
			if _, err := s.api.CreateMessage(params); err != nil {
				log.Printf("whatsapp: receipt %s: summary delivered but document message failed: %v", r.ReceiptNumber, wrapTwilio(err))
				state = stateDone
				continue
			}

			res.DocumentSent = true
			state = stateDone
		}
	}
	return res
}

// normalizeDestination reduces a phone number to +<digits>. A number without
// a leading plus gets one prepended; spaces, dashes and the like are dropped.
func normalizeDestination(to string) (string, error) {
	var digits strings.Builder
	for _, r := range to {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return "", ErrInvalidDestination
	}
	return "+" + digits.String(), nil
}

func summary(r *Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Receipt #%s from %s*\n\n", r.ReceiptNumber, r.CompanyName)
	fmt.Fprintf(&b, "Date: %s\n\n", r.Date)
	fmt.Fprintf(&b, "Hi %s,\n\n", r.CustomerName)
	b.WriteString("Thank you for your purchase!\n\n")
	b.WriteString("*Items:*\n")
	for _, it := range r.Items {
		fmt.Fprintf(&b, "%s x %d - %s %.2f\n", it.Name, it.Quantity, r.Currency, it.Price*float64(it.Quantity))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s %.2f\n", r.Currency, r.Subtotal)
	fmt.Fprintf(&b, "Tax (%s%%): %s %.2f\n", formatRate(r.TaxRate), r.Currency, r.Tax)
	fmt.Fprintf(&b, "*Total: %s %.2f*\n\n", r.Currency, r.Total)
	fmt.Fprintf(&b, "Payment Method: %s\n\n", r.PaymentMethod)
	b.WriteString("Thank you for your business!")
	return b.String()
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

func wrapTwilio(err error) error {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		return &ProviderError{Message: restErr.Message, Code: restErr.Code, Status: restErr.Status}
	}
	return &ProviderError{Message: err.Error()}
}

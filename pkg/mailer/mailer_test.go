package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biishnuthapa/easyreceipt/pkg/pdf"
)

func sampleEmailReceipt() *Receipt {
	return &Receipt{
		ReceiptNumber: "RCP-1A2B3C4D",
		Date:          "2024-06-01",
		CustomerName:  "Jane Doe",
		CompanyName:   "Acme Traders",
		Items: []Item{
			{Name: "Widget", Quantity: 2, Price: 10},
			{Name: "Gadget", Quantity: 1, Price: 24.5},
		},
		Currency:      "NPR",
		Subtotal:      44.5,
		TaxRate:       13,
		Tax:           5.79,
		Total:         50.29,
		PaymentMethod: "Cash",
	}
}

func renderedDoc(t *testing.T) *pdf.Document {
	t.Helper()
	doc, err := pdf.Render(&pdf.Receipt{
		ReceiptNumber: "RCP-1A2B3C4D",
		CompanyName:   "Acme Traders",
		Items:         []pdf.Item{{Name: "Widget", Quantity: 2, Price: 10}},
	})
	require.NoError(t, err)
	return doc
}

func TestSendReceiptBuildsMessage(t *testing.T) {
	var captured rest.Request
	svc := New(Config{APIKey: "SG.test", FromEmail: "receipts@acme.test"})
	svc.send = func(ctx context.Context, req rest.Request) (*rest.Response, error) {
		captured = req
		return &rest.Response{StatusCode: 202}, nil
	}

	res := svc.SendReceipt(context.Background(), "jane@example.com", sampleEmailReceipt(), renderedDoc(t))
	require.True(t, res.Success)
	require.NoError(t, res.Error)

	assert.Equal(t, rest.Method("POST"), captured.Method)
	assert.Contains(t, captured.BaseURL, "/v3/mail/send")

	var payload struct {
		Subject          string `json:"subject"`
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
		From struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"from"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
		Attachments []struct {
			Filename string `json:"filename"`
			Type     string `json:"type"`
		} `json:"attachments"`
	}
	require.NoError(t, json.Unmarshal(captured.Body, &payload))

	assert.Equal(t, "Receipt #RCP-1A2B3C4D from Acme Traders", payload.Subject)
	require.Len(t, payload.Personalizations, 1)
	require.Len(t, payload.Personalizations[0].To, 1)
	assert.Equal(t, "jane@example.com", payload.Personalizations[0].To[0].Email)
	assert.Equal(t, "Acme Traders", payload.From.Name)
	assert.Equal(t, "receipts@acme.test", payload.From.Email)

	require.Len(t, payload.Content, 2)
	assert.Equal(t, "text/plain", payload.Content[0].Type)
	assert.Contains(t, payload.Content[0].Value, "Date: 2024-06-01")
	assert.Contains(t, payload.Content[0].Value, "Widget x 2 - NPR 20.00")
	assert.Contains(t, payload.Content[0].Value, "Tax (13%): NPR 5.79")
	assert.Equal(t, "text/html", payload.Content[1].Type)
	assert.Contains(t, payload.Content[1].Value, "<strong>Date:</strong> 2024-06-01")
	assert.Contains(t, payload.Content[1].Value, "NPR 24.50")

	require.Len(t, payload.Attachments, 1)
	assert.Equal(t, "receipt-RCP-1A2B3C4D.pdf", payload.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", payload.Attachments[0].Type)
}

func TestSendReceiptWithoutDocument(t *testing.T) {
	var captured rest.Request
	svc := New(Config{APIKey: "SG.test", FromEmail: "receipts@acme.test"})
	svc.send = func(ctx context.Context, req rest.Request) (*rest.Response, error) {
		captured = req
		return &rest.Response{StatusCode: 202}, nil
	}

	// A missing document sends the email without an attachment
	res := svc.SendReceipt(context.Background(), "jane@example.com", sampleEmailReceipt(), nil)
	require.True(t, res.Success)
	require.NoError(t, res.Error)

	var payload struct {
		Attachments []struct {
			Filename string `json:"filename"`
		} `json:"attachments"`
	}
	require.NoError(t, json.Unmarshal(captured.Body, &payload))
	assert.Empty(t, payload.Attachments)
}

func TestSendReceiptProviderRejection(t *testing.T) {
	svc := New(Config{APIKey: "SG.test", FromEmail: "receipts@acme.test"})
	svc.send = func(ctx context.Context, req rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: 401, Body: `{"errors":[{"message":"bad key"}]}`}, nil
	}

	res := svc.SendReceipt(context.Background(), "jane@example.com", sampleEmailReceipt(), renderedDoc(t))
	assert.False(t, res.Success)

	var provErr *ProviderError
	require.ErrorAs(t, res.Error, &provErr)
	assert.Equal(t, 401, provErr.Status)
	assert.Contains(t, provErr.Body, "bad key")
}

func TestSendReceiptTransportError(t *testing.T) {
	svc := New(Config{APIKey: "SG.test", FromEmail: "receipts@acme.test"})
	svc.send = func(ctx context.Context, req rest.Request) (*rest.Response, error) {
		return nil, errors.New("connection refused")
	}

	res := svc.SendReceipt(context.Background(), "jane@example.com", sampleEmailReceipt(), renderedDoc(t))
	assert.False(t, res.Success)
	require.Error(t, res.Error)
	assert.Contains(t, res.Error.Error(), "connection refused")
}

func TestSendPasswordReset(t *testing.T) {
	var captured rest.Request
	svc := New(Config{APIKey: "SG.test", FromEmail: "receipts@acme.test"})
	svc.send = func(ctx context.Context, req rest.Request) (*rest.Response, error) {
		captured = req
		return &rest.Response{StatusCode: 202}, nil
	}

	err := svc.SendPasswordReset(context.Background(), "jane@example.com", "https://app.test/reset?token=abc")
	require.NoError(t, err)
	assert.Contains(t, string(captured.Body), "https://app.test/reset?token=abc")

	svc.send = func(ctx context.Context, req rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: 500, Body: "boom"}, nil
	}
	err = svc.SendPasswordReset(context.Background(), "jane@example.com", "https://app.test/reset?token=abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprint(500))
}

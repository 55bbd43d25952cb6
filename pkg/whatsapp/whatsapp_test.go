package whatsapp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/biishnuthapa/easyreceipt/pkg/pdf"
)

type fakeAPI struct {
	calls []*openapi.CreateMessageParams
	errs  []error
}

func (f *fakeAPI) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.calls = append(f.calls, params)
	if len(f.errs) >= len(f.calls) {
		if err := f.errs[len(f.calls)-1]; err != nil {
			return nil, err
		}
	}
	return &openapi.ApiV2010Message{}, nil
}

type fakeUploader struct {
	url    string
	err    error
	called bool
	name   string
}

func (f *fakeUploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	f.called = true
	f.name = name
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func sampleWhatsAppReceipt() *Receipt {
	return &Receipt{
		ReceiptNumber: "RCP-1A2B3C4D",
		Date:          "2024-06-01",
		CustomerName:  "Jane Doe",
		CompanyName:   "Acme Traders",
		Items: []Item{
			{Name: "Widget", Quantity: 2, Price: 10},
		},
		Currency:      "NPR",
		Subtotal:      20,
		TaxRate:       13,
		Tax:           2.6,
		Total:         22.6,
		PaymentMethod: "Cash",
	}
}

func whatsAppDoc(t *testing.T) *pdf.Document {
	t.Helper()
	doc, err := pdf.Render(&pdf.Receipt{
		ReceiptNumber: "RCP-1A2B3C4D",
		CompanyName:   "Acme Traders",
		Items:         []pdf.Item{{Name: "Widget", Quantity: 2, Price: 10}},
	})
	require.NoError(t, err)
	return doc
}

func TestNormalizeDestination(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"9841234567", "+9841234567"},
		{"+9779841234567", "+9779841234567"},
		{"+977 984-123-4567", "+9779841234567"},
		{"(977) 9841234567", "+9779841234567"},
	}
	for _, tc := range cases {
		got, err := normalizeDestination(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := normalizeDestination("not a number")
	assert.ErrorIs(t, err, ErrInvalidDestination)
}

func TestSendReceiptBothLegs(t *testing.T) {
	api := &fakeAPI{}
	up := &fakeUploader{url: "https://storage.googleapis.com/bucket/receipts/u/receipt-RCP-1A2B3C4D.pdf"}
	svc := New(api, up, "+14155238886")

	res := svc.SendReceipt(context.Background(), "984 123 4567", sampleWhatsAppReceipt(), whatsAppDoc(t))

	assert.True(t, res.Success)
	assert.True(t, res.TextSent)
	assert.True(t, res.DocumentSent)
	assert.Equal(t, up.url, res.DocumentURL)
	require.NoError(t, res.Error)

	require.Len(t, api.calls, 2)
	text := api.calls[0]
	assert.Equal(t, "whatsapp:+14155238886", *text.From)
	assert.Equal(t, "whatsapp:+9841234567", *text.To)
	assert.Contains(t, *text.Body, "*Receipt #RCP-1A2B3C4D from Acme Traders*")
	assert.Contains(t, *text.Body, "Date: 2024-06-01")
	assert.Contains(t, *text.Body, "Widget x 2 - NPR 20.00")
	assert.Contains(t, *text.Body, "*Total: NPR 22.60*")

	media := api.calls[1]
	require.NotNil(t, media.MediaUrl)
	assert.Equal(t, []string{up.url}, *media.MediaUrl)
	assert.Equal(t, "receipt-RCP-1A2B3C4D.pdf", up.name)
}

func TestSendReceiptTextFailureStopsEverything(t *testing.T) {
	api := &fakeAPI{errs: []error{&client.TwilioRestError{Code: 63016, Message: "not a WhatsApp user", Status: 400}}}
	up := &fakeUploader{url: "https://example.test/doc.pdf"}
	svc := New(api, up, "+14155238886")

	res := svc.SendReceipt(context.Background(), "+9779841234567", sampleWhatsAppReceipt(), whatsAppDoc(t))

	assert.False(t, res.Success)
	assert.False(t, res.TextSent)
	assert.False(t, up.called, "upload must not run when the text leg fails")
	assert.Len(t, api.calls, 1)

	var provErr *ProviderError
	require.ErrorAs(t, res.Error, &provErr)
	assert.Equal(t, 63016, provErr.Code)
}

func TestSendReceiptUploadFailureStillSucceeds(t *testing.T) {
	api := &fakeAPI{}
	up := &fakeUploader{err: errors.New("bucket unavailable")}
	svc := New(api, up, "+14155238886")

	res := svc.SendReceipt(context.Background(), "+9779841234567", sampleWhatsAppReceipt(), whatsAppDoc(t))

	assert.True(t, res.Success)
	assert.True(t, res.TextSent)
	assert.False(t, res.DocumentSent)
	assert.NoError(t, res.Error)
	assert.Len(t, api.calls, 1)
}

func TestSendReceiptMediaFailureStillSucceeds(t *testing.T) {
	api := &fakeAPI{errs: []error{nil, errors.New("media fetch failed")}}
	up := &fakeUploader{url: "https://example.test/doc.pdf"}
	svc := New(api, up, "+14155238886")

	res := svc.SendReceipt(context.Background(), "+9779841234567", sampleWhatsAppReceipt(), whatsAppDoc(t))

	assert.True(t, res.Success)
	assert.True(t, res.TextSent)
	assert.False(t, res.DocumentSent)
	assert.NoError(t, res.Error)
	assert.Len(t, api.calls, 2)
}

func TestSendReceiptNilUploaderSkipsDocument(t *testing.T) {
	api := &fakeAPI{}
	svc := New(api, nil, "+14155238886")

	res := svc.SendReceipt(context.Background(), "+9779841234567", sampleWhatsAppReceipt(), whatsAppDoc(t))

	assert.True(t, res.Success)
	assert.True(t, res.TextSent)
	assert.False(t, res.DocumentSent)
	assert.Len(t, api.calls, 1)
}

func TestSendReceiptInvalidDestination(t *testing.T) {
	api := &fakeAPI{}
	svc := New(api, nil, "+14155238886")

	res := svc.SendReceipt(context.Background(), "---", sampleWhatsAppReceipt(), whatsAppDoc(t))

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Error, ErrInvalidDestination)
	assert.Empty(t, api.calls)
}

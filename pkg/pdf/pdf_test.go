package pdf

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReceipt() *Receipt {
	return &Receipt{
		ReceiptNumber:   "RCP-1A2B3C4D",
		Date:            "2024-06-01",
		CustomerName:    "Jane Doe",
		CustomerNumber:  "+9779841234567",
		CustomerAddress: "Kathmandu, Nepal",
		CompanyName:     "Acme Traders",
		Items: []Item{
			{Name: "Widget", Quantity: 2, Price: 10},
			{Name: "Gadget", Quantity: 1, Price: 24.5},
		},
		Currency:      "NPR",
		Subtotal:      44.5,
		TaxRate:       13,
		Tax:           5.785,
		Total:         50.285,
		PaymentMethod: "Cash",
		Title:         "Manager",
	}
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 80, 30))
	for x := 0; x < 80; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestRenderProducesPDF(t *testing.T) {
	doc, err := Render(sampleReceipt())
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.True(t, bytes.HasPrefix(doc.Bytes(), []byte("%PDF")))
	assert.True(t, strings.HasPrefix(doc.DataURI(), "data:application/pdf;base64,"))
}

func TestRenderDeterministic(t *testing.T) {
	first, err := Render(sampleReceipt())
	require.NoError(t, err)
	second, err := Render(sampleReceipt())
	require.NoError(t, err)

	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestRenderWithLogoAndSignature(t *testing.T) {
	r := sampleReceipt()
	r.CompanyLogo = pngDataURI(t)
	r.Signature = pngDataURI(t)

	doc, err := Render(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc.Bytes(), []byte("%PDF")))
}

func TestRenderSkipsMalformedImages(t *testing.T) {
	r := sampleReceipt()
	r.CompanyLogo = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not an image"))
	r.Signature = "garbage that is not base64 at all!!!"

	doc, err := Render(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc.Bytes(), []byte("%PDF")))
}

func TestRenderNilItems(t *testing.T) {
	_, err := Render(&Receipt{ReceiptNumber: "RCP-X"})
	require.Error(t, err)

	var renderErr *RenderError
	assert.ErrorAs(t, err, &renderErr)
}

func TestRenderNilReceipt(t *testing.T) {
	_, err := Render(nil)
	require.Error(t, err)
}

func TestFromDataURI(t *testing.T) {
	doc, err := Render(sampleReceipt())
	require.NoError(t, err)

	rebuilt, err := FromDataURI(doc.DataURI())
	require.NoError(t, err)
	assert.Equal(t, doc.Bytes(), rebuilt.Bytes())

	bare := base64.StdEncoding.EncodeToString(doc.Bytes())
	rebuilt, err = FromDataURI(bare)
	require.NoError(t, err)
	assert.Equal(t, doc.Bytes(), rebuilt.Bytes())
}

func TestFromDataURIInvalid(t *testing.T) {
	_, err := FromDataURI("data:application/pdf;base64")
	assert.Error(t, err)

	_, err = FromDataURI("data:application/pdf;base64,@@@@")
	assert.Error(t, err)
}

func TestFitBox(t *testing.T) {
	cases := []struct {
		name           string
		w, h           float64
		wantW, wantH   float64
	}{
		{"already fits", 30, 10, 30, 10},
		{"wide", 80, 20, 40, 10},
		{"tall", 20, 40, 10, 20},
		{"both oversized", 200, 200, 20, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotW, gotH := fitBox(tc.w, tc.h, imageBoxW, imageBoxH)
			assert.InDelta(t, tc.wantW, gotW, 0.001)
			assert.InDelta(t, tc.wantH, gotH, 0.001)
		})
	}
}

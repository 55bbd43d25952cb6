package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biishnuthapa/easyreceipt/internal/domain/entity"
	"github.com/biishnuthapa/easyreceipt/pkg/apperror"
	"github.com/biishnuthapa/easyreceipt/pkg/mailer"
	"github.com/biishnuthapa/easyreceipt/pkg/pagination"
	"github.com/biishnuthapa/easyreceipt/pkg/pdf"
	"github.com/biishnuthapa/easyreceipt/pkg/storage"
	"github.com/biishnuthapa/easyreceipt/pkg/whatsapp"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*entity.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.users[id], nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

type fakeReceiptRepo struct {
	receipts  map[uuid.UUID]*entity.Receipt
	createErr error
}

func (r *fakeReceiptRepo) Create(ctx context.Context, receipt *entity.Receipt) error {
	if r.createErr != nil {
		return r.createErr
	}
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	r.receipts[receipt.ID] = receipt
	return nil
}

func (r *fakeReceiptRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Receipt, error) {
	rec, ok := r.receipts[id]
	if !ok || rec.UserID != userID {
		return nil, nil
	}
	return rec, nil
}

func (r *fakeReceiptRepo) Update(ctx context.Context, receipt *entity.Receipt) error {
	r.receipts[receipt.ID] = receipt
	return nil
}

func (r *fakeReceiptRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	rec, ok := r.receipts[id]
	if ok && rec.UserID == userID {
		delete(r.receipts, id)
	}
	return nil
}

func (r *fakeReceiptRepo) List(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string) ([]entity.Receipt, int64, error) {
	var out []entity.Receipt
	for _, rec := range r.receipts {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out, int64(len(out)), nil
}

type fakeEmailDispatcher struct {
	result   mailer.Result
	lastTo   string
	lastDoc  *pdf.Document
	lastRcpt *mailer.Receipt
	calls    int
}

func (d *fakeEmailDispatcher) SendReceipt(ctx context.Context, to string, r *mailer.Receipt, doc *pdf.Document) mailer.Result {
	d.calls++
	d.lastTo = to
	d.lastRcpt = r
	d.lastDoc = doc
	return d.result
}

type fakeWhatsAppDispatcher struct {
	result     whatsapp.Result
	lastTo     string
	hadSession bool
	calls      int
}

func (d *fakeWhatsAppDispatcher) SendReceipt(ctx context.Context, to string, r *whatsapp.Receipt, doc *pdf.Document) whatsapp.Result {
	d.calls++
	d.lastTo = to
	_, d.hadSession = storage.SessionFrom(ctx)
	return d.result
}

func newTestService() (*ReceiptService, *fakeReceiptRepo, *fakeUserRepo, *fakeEmailDispatcher, *fakeWhatsAppDispatcher, *entity.User) {
	userRepo := &fakeUserRepo{users: map[uuid.UUID]*entity.User{}}
	receiptRepo := &fakeReceiptRepo{receipts: map[uuid.UUID]*entity.Receipt{}}
	email := &fakeEmailDispatcher{result: mailer.Result{Success: true}}
	wa := &fakeWhatsAppDispatcher{result: whatsapp.Result{
		Success:      true,
		TextSent:     true,
		DocumentSent: true,
		DocumentURL:  "https://storage.googleapis.com/easyreceipt-artifacts/receipts/u/r.pdf",
	}}

	company := "Acme Traders"
	user := &entity.User{
		ID:              uuid.New(),
		FirstName:       "Asha",
		LastName:        "Shrestha",
		Email:           "asha@acme.test",
		CompanyName:     &company,
		DefaultCurrency: "NPR",
	}
	userRepo.users[user.ID] = user

	svc := NewReceiptService(receiptRepo, userRepo, email, wa)
	return svc, receiptRepo, userRepo, email, wa, user
}

func emailInput(userID uuid.UUID) *SendReceiptInput {
	to := "jane@example.com"
	return &SendReceiptInput{
		UserID:        userID,
		CustomerName:  "Jane Doe",
		CustomerEmail: &to,
		Items: []entity.ReceiptItem{
			{Name: "Widget", Quantity: 2, Price: 10},
			{Name: "Gadget", Quantity: 1, Price: 5},
		},
		Subtotal:      25,
		TaxRate:       10,
		Tax:           2.5,
		Total:         27.5,
		PaymentMethod: "Cash",
		SentVia:       entity.ChannelEmail,
	}
}

func TestSendReceiptEmail(t *testing.T) {
	svc, repo, _, email, wa, user := newTestService()

	out, err := svc.SendReceipt(context.Background(), emailInput(user.ID))
	require.NoError(t, err)
	require.NotNil(t, out.Receipt)

	assert.True(t, out.Delivered)
	assert.NoError(t, out.DeliveryError)
	assert.Equal(t, 1, email.calls)
	assert.Equal(t, 0, wa.calls)
	assert.Equal(t, "jane@example.com", email.lastTo)
	require.NotNil(t, email.lastDoc)
	assert.Equal(t, "Acme Traders", email.lastRcpt.CompanyName)

	// Caller-supplied totals stored as given
	assert.InDelta(t, 25.0, out.Receipt.Subtotal, 0.001)
	assert.InDelta(t, 2.5, out.Receipt.Tax, 0.001)
	assert.InDelta(t, 27.5, out.Receipt.Total, 0.001)
	assert.Equal(t, "NPR", out.Receipt.Currency, "falls back to the user's default currency")
	assert.NotEmpty(t, out.Receipt.Date)
	assert.Contains(t, out.Receipt.ReceiptNo, "RCP-")

	stored, err := repo.GetByID(context.Background(), user.ID, out.Receipt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Delivered)
}

func TestSendReceiptTrustsCallerTotals(t *testing.T) {
	svc, repo, _, _, _, user := newTestService()

	// Figures that disagree with the items prove nothing is recomputed
	input := emailInput(user.ID)
	input.Subtotal = 100
	input.Tax = 7
	input.Total = 99.5

	out, err := svc.SendReceipt(context.Background(), input)
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), user.ID, out.Receipt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.InDelta(t, 100.0, stored.Subtotal, 0.001)
	assert.InDelta(t, 7.0, stored.Tax, 0.001)
	assert.InDelta(t, 99.5, stored.Total, 0.001)
}

func TestSendReceiptSnapshotsSignatureAndTitle(t *testing.T) {
	svc, _, userRepo, _, _, user := newTestService()

	profileSig := "data:image/png;base64,cHJvZmlsZQ=="
	user.Signature = &profileSig
	userRepo.users[user.ID] = user

	// The profile signature is copied onto the row when none is supplied
	out, err := svc.SendReceipt(context.Background(), emailInput(user.ID))
	require.NoError(t, err)
	require.NotNil(t, out.Receipt.Signature)
	assert.Equal(t, profileSig, *out.Receipt.Signature)
	assert.Nil(t, out.Receipt.Title)

	// An explicit signature and title win over the profile
	ownSig := "data:image/png;base64,b3du"
	title := "Authorized Signatory"
	input := emailInput(user.ID)
	input.Signature = &ownSig
	input.Title = &title

	out, err = svc.SendReceipt(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, out.Receipt.Signature)
	assert.Equal(t, ownSig, *out.Receipt.Signature)
	require.NotNil(t, out.Receipt.Title)
	assert.Equal(t, title, *out.Receipt.Title)
}

func TestSendReceiptWhatsAppCarriesSession(t *testing.T) {
	svc, _, _, _, wa, user := newTestService()

	phone := "+9779841234567"
	input := emailInput(user.ID)
	input.CustomerEmail = nil
	input.CustomerPhone = &phone
	input.SentVia = entity.ChannelWhatsApp

	out, err := svc.SendReceipt(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, out.Delivered)
	assert.Equal(t, 1, wa.calls)
	assert.Equal(t, phone, wa.lastTo)
	assert.True(t, wa.hadSession, "whatsapp dispatch must run with a storage session")
	require.NotNil(t, out.Receipt.PDFURL)
	assert.Equal(t, wa.result.DocumentURL, *out.Receipt.PDFURL)
}

func TestSendReceiptPersistsOnDeliveryFailure(t *testing.T) {
	svc, repo, _, email, _, user := newTestService()
	email.result = mailer.Result{Error: &mailer.ProviderError{Status: 401, Body: "denied"}}

	out, err := svc.SendReceipt(context.Background(), emailInput(user.ID))
	require.NoError(t, err)

	assert.False(t, out.Delivered)
	require.Error(t, out.DeliveryError)

	stored, err := repo.GetByID(context.Background(), user.ID, out.Receipt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored, "receipt row must survive a delivery failure")
	assert.False(t, stored.Delivered)
}

func TestSendReceiptValidation(t *testing.T) {
	svc, _, _, email, wa, user := newTestService()

	t.Run("missing items", func(t *testing.T) {
		input := emailInput(user.ID)
		input.Items = nil
		_, err := svc.SendReceipt(context.Background(), input)
		require.Error(t, err)
		assert.True(t, apperror.IsAppError(err))
	})

	t.Run("email channel without email", func(t *testing.T) {
		input := emailInput(user.ID)
		input.CustomerEmail = nil
		_, err := svc.SendReceipt(context.Background(), input)
		require.Error(t, err)
	})

	t.Run("whatsapp channel without phone", func(t *testing.T) {
		input := emailInput(user.ID)
		input.SentVia = entity.ChannelWhatsApp
		_, err := svc.SendReceipt(context.Background(), input)
		require.Error(t, err)
	})

	t.Run("unknown channel", func(t *testing.T) {
		input := emailInput(user.ID)
		input.SentVia = "carrier-pigeon"
		_, err := svc.SendReceipt(context.Background(), input)
		require.Error(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		input := emailInput(uuid.New())
		_, err := svc.SendReceipt(context.Background(), input)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	assert.Equal(t, 0, email.calls)
	assert.Equal(t, 0, wa.calls)
}

func TestSendReceiptClientSuppliedPDF(t *testing.T) {
	svc, _, _, email, _, user := newTestService()

	doc, err := pdf.Render(&pdf.Receipt{
		ReceiptNumber: "RCP-CLIENT",
		CompanyName:   "Acme Traders",
		Items:         []pdf.Item{{Name: "Widget", Quantity: 1, Price: 10}},
	})
	require.NoError(t, err)

	input := emailInput(user.ID)
	input.PDFContent = doc.DataURI()

	out, err := svc.SendReceipt(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, out.Delivered)
	assert.Equal(t, doc.Bytes(), email.lastDoc.Bytes())
}

func TestSendReceiptInvalidClientPDF(t *testing.T) {
	svc, repo, _, email, _, user := newTestService()

	input := emailInput(user.ID)
	input.PDFContent = "data:application/pdf;base64,@@not-base64@@"

	out, err := svc.SendReceipt(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, out.Delivered)
	require.Error(t, out.DeliveryError)
	assert.Equal(t, 0, email.calls)

	stored, err := repo.GetByID(context.Background(), user.ID, out.Receipt.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored, "receipt row is kept even when the document never renders")
}

func TestSendReceiptCreateFailure(t *testing.T) {
	svc, repo, _, email, _, user := newTestService()
	repo.createErr = errors.New("db down")

	_, err := svc.SendReceipt(context.Background(), emailInput(user.ID))
	require.Error(t, err)
	assert.Equal(t, 0, email.calls, "no delivery attempt when the row cannot be stored")
}

func TestGetAndDeleteReceipt(t *testing.T) {
	svc, _, _, _, _, user := newTestService()

	out, err := svc.SendReceipt(context.Background(), emailInput(user.ID))
	require.NoError(t, err)

	got, err := svc.GetReceipt(context.Background(), user.ID, out.Receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Receipt.ID, got.ID)

	// Another user cannot see it
	_, err = svc.GetReceipt(context.Background(), uuid.New(), out.Receipt.ID)
	require.Error(t, err)

	require.NoError(t, svc.DeleteReceipt(context.Background(), user.ID, out.Receipt.ID))
	_, err = svc.GetReceipt(context.Background(), user.ID, out.Receipt.ID)
	require.Error(t, err)
}

func TestDownloadReceipt(t *testing.T) {
	svc, _, _, _, _, user := newTestService()

	out, err := svc.SendReceipt(context.Background(), emailInput(user.ID))
	require.NoError(t, err)

	receipt, doc, err := svc.DownloadReceipt(context.Background(), user.ID, out.Receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Receipt.ID, receipt.ID)
	assert.NotEmpty(t, doc.Bytes())
}

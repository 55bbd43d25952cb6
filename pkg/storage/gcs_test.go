package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	buf      bytes.Buffer
	writeErr error
	closeErr error
	closed   bool
}

func (w *fakeWriter) Write(p []byte) (int, error) {
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	return w.buf.Write(p)
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func testStore(w io.WriteCloser, capture *string) *Store {
	return &Store{
		bucket: "easyreceipt-artifacts",
		prefix: "receipts",
		newWriter: func(ctx context.Context, object string) io.WriteCloser {
			if capture != nil {
				*capture = object
			}
			return w
		},
	}
}

func TestUploadRequiresSession(t *testing.T) {
	store := testStore(&fakeWriter{}, nil)

	_, err := store.Upload(context.Background(), "receipt-1.pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestUploadWritesAndReturnsPublicURL(t *testing.T) {
	userID := uuid.MustParse("3f2c9d34-9c1e-4a53-8f10-24d1a0b6c7e8")
	w := &fakeWriter{}
	var object string
	store := testStore(w, &object)

	ctx := WithSession(context.Background(), Session{UserID: userID})
	url, err := store.Upload(ctx, "receipt-RCP-1A2B3C4D.pdf", []byte("%PDF-1.4 data"))
	require.NoError(t, err)

	assert.Equal(t, "receipts/3f2c9d34-9c1e-4a53-8f10-24d1a0b6c7e8/receipt-RCP-1A2B3C4D.pdf", object)
	assert.Equal(t, "https://storage.googleapis.com/easyreceipt-artifacts/"+object, url)
	assert.Equal(t, "%PDF-1.4 data", w.buf.String())
	assert.True(t, w.closed)
}

func TestUploadWriteFailure(t *testing.T) {
	w := &fakeWriter{writeErr: errors.New("disk full")}
	store := testStore(w, nil)

	ctx := WithSession(context.Background(), Session{UserID: uuid.New()})
	_, err := store.Upload(ctx, "receipt-1.pdf", []byte("%PDF"))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.True(t, w.closed, "writer must be closed on write failure")
}

func TestUploadCloseFailure(t *testing.T) {
	w := &fakeWriter{closeErr: errors.New("object finalize failed")}
	store := testStore(w, nil)

	ctx := WithSession(context.Background(), Session{UserID: uuid.New()})
	_, err := store.Upload(ctx, "receipt-1.pdf", []byte("%PDF"))

	var uploadErr *UploadError
	assert.ErrorAs(t, err, &uploadErr)
}

func TestSessionRoundTrip(t *testing.T) {
	_, ok := SessionFrom(context.Background())
	assert.False(t, ok)

	s := Session{UserID: uuid.New()}
	got, ok := SessionFrom(WithSession(context.Background(), s))
	require.True(t, ok)
	assert.Equal(t, s, got)
}

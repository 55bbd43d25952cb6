package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/biishnuthapa/easyreceipt/pkg/pdf"
)

// ErrNoSession is returned when an upload is attempted without an
// authenticated session on the context.
var ErrNoSession = errors.New("storage: no active session")

// Session identifies the authenticated user on whose behalf artifacts are
// stored. Objects are namespaced per user.
type Session struct {
	UserID uuid.UUID
}

type sessionKey struct{}

// WithSession attaches a session to the context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom extracts the session from the context, if any.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// UploadError wraps bucket write failures.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return "storage: upload failed: " + e.Err.Error()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Store writes receipt artifacts to a Google Cloud Storage bucket and hands
// out their public URLs. Objects are keyed <prefix>/<user id>/<name> and
// overwrite any previous object with the same key.
type Store struct {
	bucket    string
	prefix    string
	newWriter func(ctx context.Context, object string) io.WriteCloser
}

func New(client *gcs.Client, bucket, prefix string) *Store {
	return &Store{
		bucket: bucket,
		prefix: prefix,
		newWriter: func(ctx context.Context, object string) io.WriteCloser {
			w := client.Bucket(bucket).Object(object).NewWriter(ctx)
			w.ContentType = pdf.ContentType
			return w
		},
	}
}

// Upload stores data under the session user's namespace and returns the
// object's public URL. The bucket is expected to allow public reads so the
// URL can be fetched by third-party delivery providers.
func (s *Store) Upload(ctx context.Context, name string, data []byte) (string, error) {
	sess, ok := SessionFrom(ctx)
	if !ok {
		return "", ErrNoSession
	}

	object := path.Join(s.prefix, sess.UserID.String(), name)

	w := s.newWriter(ctx, object)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", &UploadError{Err: err}
	}
	if err := w.Close(); err != nil {
		return "", &UploadError{Err: err}
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, object), nil
}

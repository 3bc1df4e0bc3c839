// Package blob stores verification uploads (ID documents, selfies, certificates).
package blob

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind groups uploads under a prefix.
type Kind string

const (
	KindIDFront     Kind = "id-front"
	KindIDBack      Kind = "id-back"
	KindSelfie      Kind = "selfie"
	KindCertificate Kind = "certificate"
)

// Object is a stored upload.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// Store persists uploaded bytes.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (Object, error)
	Delete(ctx context.Context, key string) error
}

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Extension returns the file extension used for a content type, or "".
func Extension(contentType string) string {
	return extensions[contentType]
}

// NewKey builds "verifications/{instructor}/{kind}/{ulid}{ext}".
func NewKey(instructorID string, kind Kind, contentType string, now time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader)
	return fmt.Sprintf("verifications/%s/%s/%s%s", instructorID, kind, id.String(), Extension(contentType))
}

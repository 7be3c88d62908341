package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrPresignUnsupported zgłasza backend, który nie umie wystawiać
	// podpisanych adresów URL, wtedy serwer streamuje plik bezpośrednio.
	ErrPresignUnsupported = errors.New("this storage backend does not support presigned URLs")

	ErrBlobNotFound = errors.New("blob not found in storage")
)

// BlobStore to zdolność magazynu obiektów, od której zależy reszta serwera.
// Klient jest jawnie konstruowany i wstrzykiwany, żadnych globalnych klientów SDK.
type BlobStore interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration, forceDownload bool) (string, error)
	GetReadStream(ctx context.Context, key string) (io.ReadCloser, error)
	Ping(ctx context.Context) error
}

package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
)

// ErrNotObjectURL is returned when a URL does not point into a known bucket.
var ErrNotObjectURL = errors.New("url is not a storage object url")

// Storage is the object store used for headshot sources and results.
type Storage interface {
	// Put stores an object under key.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Delete removes an object. Missing objects are not an error.
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for key.
	GetURL(key string) string
}

// KeyFromURL extracts the object key from a Firebase Storage download URL
// (https://firebasestorage.googleapis.com/v0/b/{bucket}/o/{encodedPath}?alt=media),
// a GCS public URL (https://storage.googleapis.com/{bucket}/{path}) or a
// gs://{bucket}/{path} URI. The bucket must match when one is given.
func KeyFromURL(raw, bucket string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrNotObjectURL
	}

	var gotBucket, key string
	switch {
	case u.Scheme == "gs":
		gotBucket = u.Host
		key = strings.TrimPrefix(u.Path, "/")
	case strings.Contains(u.Host, "firebasestorage.googleapis.com"):
		// Path is /v0/b/{bucket}/o/{encodedPath}; u.Path is already decoded.
		rest, ok := strings.CutPrefix(u.Path, "/v0/b/")
		if !ok {
			return "", ErrNotObjectURL
		}
		b, obj, ok := strings.Cut(rest, "/o/")
		if !ok {
			return "", ErrNotObjectURL
		}
		gotBucket, key = b, obj
	case u.Host == "storage.googleapis.com":
		b, obj, ok := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if !ok {
			return "", ErrNotObjectURL
		}
		gotBucket, key = b, obj
	default:
		return "", ErrNotObjectURL
	}

	if key == "" {
		return "", ErrNotObjectURL
	}
	if bucket != "" && gotBucket != bucket {
		return "", ErrNotObjectURL
	}
	return key, nil
}

// Package storage keeps garment images in an external object store.  Image
// bytes are opaque here: they are written under a key and addressed by the
// public URL the store returns.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
)

// ObjectStore is the object-storage collaborator used by the garment
// catalog.  Delete is idempotent: removing a missing object is not an
// error.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// KeyFromURL maps a URL returned by Put back to its key.  ok is false
	// for URLs that do not point into this store.
	KeyFromURL(url string) (key string, ok bool)
}

// ImageKey builds the deterministic per-user, per-timestamp key for an
// uploaded garment image: clothes/<userID>/<unixMillis>_<name>.
func ImageKey(userID uint64, filename string, now time.Time) string {
	return fmt.Sprintf("clothes/%d/%d_%s", userID, now.UnixMilli(), sanitizeName(filename))
}

// sanitizeName keeps the base name and replaces anything outside
// [A-Za-z0-9._-] so keys stay URL and path safe.
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "image"
	}
	return out
}

package service

import (
	"context"
	"errors"

	"github.com/iliyamo/wardrobe-planner/internal/logger"
	"github.com/iliyamo/wardrobe-planner/internal/repository"
	"github.com/iliyamo/wardrobe-planner/internal/storage"
)

// mapErr converts repository and driver errors into *Error.  Unexpected
// errors are logged with the operation name and the given context pairs
// (resource id, acting user id) and surface as INTERNAL_ERROR.
func mapErr(op string, err error, kv ...interface{}) error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound("resource not found")
	case errors.Is(err, repository.ErrForbidden):
		return forbidden("resource belongs to another user")
	case errors.Is(err, repository.ErrConflict):
		return conflict("resource already exists")
	}
	logger.Error(op+" failed", append(kv, "error", err)...)
	return internal(err)
}

// deleteImage removes a stored image outside of any transaction.  Failures
// are logged and swallowed: a dangling object must never fail the caller.
func deleteImage(ctx context.Context, store storage.ObjectStore, url string) {
	if store == nil || url == "" {
		return
	}
	key, ok := store.KeyFromURL(url)
	if !ok {
		logger.Warn("image url not in object store, skipping delete", "url", url)
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		logger.Warn("failed to delete image", "key", key, "error", err)
	}
}

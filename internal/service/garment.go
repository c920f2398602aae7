package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/wardrobe-planner/internal/database"
	"github.com/iliyamo/wardrobe-planner/internal/logger"
	"github.com/iliyamo/wardrobe-planner/internal/model"
	"github.com/iliyamo/wardrobe-planner/internal/repository"
	"github.com/iliyamo/wardrobe-planner/internal/storage"
)

// maxSeasonName matches the width of seasons.name, in characters.
const maxSeasonName = 64

// ImageUpload is an image received with a garment write.  The bytes are
// stored as-is.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// GarmentService is the garment catalog.
type GarmentService struct {
	db       *database.Handle
	garments *repository.GarmentRepo
	seasons  *repository.SeasonRepo
	store    storage.ObjectStore
	now      func() time.Time
}

func NewGarmentService(db *database.Handle, garments *repository.GarmentRepo, seasons *repository.SeasonRepo, store storage.ObjectStore) *GarmentService {
	return &GarmentService{db: db, garments: garments, seasons: seasons, store: store, now: time.Now}
}

func validateGarment(f *model.GarmentFields) error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return validation("name is required")
	}
	if len(f.Metadata) > 0 && !json.Valid(f.Metadata) {
		return validation("metadata must be valid JSON")
	}
	return nil
}

// writeSeasonsTx replaces the garment's season pairings.  It runs after the
// garment row is written so a bad season name rolls that write back too.
func (s *GarmentService) writeSeasonsTx(ctx context.Context, tx *sql.Tx, garmentID uint64, names []string) error {
	names = repository.NormalizeSeasons(names)
	for _, n := range names {
		if utf8.RuneCountInString(n) > maxSeasonName {
			return validation("season name is too long")
		}
	}
	if err := s.seasons.UnlinkAllTx(ctx, tx, garmentID); err != nil {
		return err
	}
	ids, err := s.seasons.EnsureTx(ctx, tx, names)
	if err != nil {
		return err
	}
	return s.seasons.LinkTx(ctx, tx, garmentID, ids)
}

// upload stores img and returns its URL, or nil when there is no image.
func (s *GarmentService) upload(ctx context.Context, ownerID uint64, img *ImageUpload) (*string, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, nil
	}
	if s.store == nil {
		return nil, serverConfiguration(errors.New("object storage is not configured"))
	}
	key := storage.ImageKey(ownerID, img.Filename, s.now())
	url, err := s.store.Put(ctx, key, img.Data, img.ContentType)
	if err != nil {
		return nil, err
	}
	return &url, nil
}

// Add creates a garment with its seasons and optional image.  The image is
// uploaded before the transaction and removed again if the transaction
// fails.
func (s *GarmentService) Add(ctx context.Context, ownerID uint64, f model.GarmentFields, img *ImageUpload) (model.Garment, error) {
	if err := validateGarment(&f); err != nil {
		return model.Garment{}, err
	}
	imageURL, err := s.upload(ctx, ownerID, img)
	if err != nil {
		return model.Garment{}, mapErr("upload garment image", err, "user_id", ownerID)
	}

	var id uint64
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if id, err = s.garments.CreateTx(ctx, tx, ownerID, f, imageURL, s.now()); err != nil {
			return err
		}
		return s.writeSeasonsTx(ctx, tx, id, f.Seasons)
	})
	if err != nil {
		if imageURL != nil {
			deleteImage(ctx, s.store, *imageURL)
		}
		return model.Garment{}, mapErr("add garment", err, "user_id", ownerID)
	}
	logger.Info("garment added", "garment_id", id, "user_id", ownerID)
	return s.reread(ctx, id, ownerID, "add garment")
}

func (s *GarmentService) reread(ctx context.Context, id, ownerID uint64, op string) (model.Garment, error) {
	g, err := s.garments.Get(ctx, id)
	if err != nil {
		return model.Garment{}, mapErr(op, err, "garment_id", id, "user_id", ownerID)
	}
	return g, nil
}

// List returns the owner's garments matching filter, newest first.
func (s *GarmentService) List(ctx context.Context, ownerID uint64, filter model.GarmentFilter) ([]model.Garment, error) {
	out, err := s.garments.List(ctx, ownerID, filter)
	if err != nil {
		return nil, mapErr("list garments", err, "user_id", ownerID)
	}
	return out, nil
}

// Detail returns one garment.  NOT_FOUND when absent, FORBIDDEN when it
// belongs to someone else.
func (s *GarmentService) Detail(ctx context.Context, id, ownerID uint64) (model.Garment, error) {
	g, err := s.garments.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Garment{}, notFound("garment not found")
	}
	if err != nil {
		return model.Garment{}, mapErr("garment detail", err, "garment_id", id, "user_id", ownerID)
	}
	if g.UserID != ownerID {
		return model.Garment{}, forbidden("garment belongs to another user")
	}
	return g, nil
}

// Update replaces every field and the season set of a garment.  Without a
// new image the stored one is kept; with one, the old object is deleted
// after commit.
func (s *GarmentService) Update(ctx context.Context, id, ownerID uint64, f model.GarmentFields, img *ImageUpload) (model.Garment, error) {
	if err := validateGarment(&f); err != nil {
		return model.Garment{}, err
	}
	// Fail fast before spending an upload on a garment the caller cannot
	// touch.  The check inside the transaction is the one that counts.
	if _, err := s.Detail(ctx, id, ownerID); err != nil {
		return model.Garment{}, err
	}
	newURL, err := s.upload(ctx, ownerID, img)
	if err != nil {
		return model.Garment{}, mapErr("upload garment image", err, "garment_id", id, "user_id", ownerID)
	}

	var oldURL *string
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := s.garments.CheckOwnerTx(ctx, tx, id, ownerID)
		if err != nil {
			return err
		}
		imageURL := current
		if newURL != nil {
			imageURL, oldURL = newURL, current
		}
		if err := s.garments.UpdateTx(ctx, tx, id, f, imageURL, s.now()); err != nil {
			return err
		}
		return s.writeSeasonsTx(ctx, tx, id, f.Seasons)
	})
	if err != nil {
		if newURL != nil {
			deleteImage(ctx, s.store, *newURL)
		}
		return model.Garment{}, s.ownershipErr("update garment", err, id, ownerID)
	}
	if oldURL != nil {
		deleteImage(ctx, s.store, *oldURL)
	}
	return s.reread(ctx, id, ownerID, "update garment")
}

// Delete removes a garment with its season and plan pairings, then its
// image best-effort.
func (s *GarmentService) Delete(ctx context.Context, id, ownerID uint64) error {
	var image *string
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := s.garments.CheckOwnerTx(ctx, tx, id, ownerID)
		if err != nil {
			return err
		}
		image = current
		return s.garments.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return s.ownershipErr("delete garment", err, id, ownerID)
	}
	if image != nil {
		deleteImage(ctx, s.store, *image)
	}
	logger.Info("garment deleted", "garment_id", id, "user_id", ownerID)
	return nil
}

func (s *GarmentService) ownershipErr(op string, err error, id, ownerID uint64) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound("garment not found")
	case errors.Is(err, repository.ErrForbidden):
		return forbidden("garment belongs to another user")
	}
	return mapErr(op, err, "garment_id", id, "user_id", ownerID)
}

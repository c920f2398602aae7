package repository

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/iliyamo/wardrobe-planner/internal/database"
)

func openTestDB(t *testing.T) *database.Handle {
	t.Helper()
	h, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal("Failed to open test database:", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	if err := database.Migrate(context.Background(), h); err != nil {
		t.Fatal("Failed to run migrations:", err)
	}
	return h
}

func createUser(t *testing.T, h *database.Handle, email string) uint64 {
	t.Helper()
	var id uint64
	err := h.WithTx(context.Background(), func(tx *sql.Tx) error {
		u, err := NewUserRepo(h).CreateTx(context.Background(), tx, email, "hash", nil, time.Now())
		id = u.ID
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestNormalizeSeasons(t *testing.T) {
	got := NormalizeSeasons([]string{" Winter", "spring", "", "winter", "SPRING "})
	if !reflect.DeepEqual(got, []string{"spring", "winter"}) {
		t.Errorf("unexpected %v", got)
	}
	if got := NormalizeSeasons(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	h := openTestDB(t)
	createUser(t, h, "a@x.com")
	err := h.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := NewUserRepo(h).CreateTx(context.Background(), tx, "a@x.com", "hash", nil, time.Now())
		return err
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestRotateRefreshIsCompareAndSwap(t *testing.T) {
	h := openTestDB(t)
	ctx := context.Background()
	id := createUser(t, h, "a@x.com")
	tokens := NewTokenRepo(h)
	now := time.Now()

	if err := tokens.StoreRefresh(ctx, id, "h1", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	ok, err := tokens.RotateRefresh(ctx, id, "h1", "h2", now.Add(time.Hour), now)
	if err != nil || !ok {
		t.Fatalf("first rotation should win: %v %v", ok, err)
	}
	ok, err = tokens.RotateRefresh(ctx, id, "h1", "h3", now.Add(time.Hour), now)
	if err != nil || ok {
		t.Fatalf("replayed digest must not rotate: %v %v", ok, err)
	}
	ok, err = tokens.RotateRefresh(ctx, id, "h2", "h3", now.Add(time.Hour), now.Add(2*time.Hour))
	if err != nil || ok {
		t.Fatalf("expired digest must not rotate: %v %v", ok, err)
	}

	if err := tokens.RevokeAllForUser(ctx, id); err != nil {
		t.Fatal(err)
	}
	ok, _ = tokens.RotateRefresh(ctx, id, "h2", "h3", now.Add(time.Hour), now)
	if ok {
		t.Error("revoked digest must not rotate")
	}
	if err := tokens.StoreRefresh(ctx, 9999, "h", now); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing user, got %v", err)
	}
}

func TestSeasonEnsureIsIdempotent(t *testing.T) {
	h := openTestDB(t)
	seasons := NewSeasonRepo(h)
	var first, second []uint64
	err := h.WithTx(context.Background(), func(tx *sql.Tx) error {
		var err error
		if first, err = seasons.EnsureTx(context.Background(), tx, []string{"spring", "winter"}); err != nil {
			return err
		}
		second, err = seasons.EnsureTx(context.Background(), tx, []string{"winter", "spring"})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if first[0] != second[1] || first[1] != second[0] {
		t.Errorf("ids changed between calls: %v %v", first, second)
	}
}

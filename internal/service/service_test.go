package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/wardrobe-planner/internal/database"
	"github.com/iliyamo/wardrobe-planner/internal/model"
	"github.com/iliyamo/wardrobe-planner/internal/repository"
)

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
)

// memStore is an in-memory storage.ObjectStore.
type memStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failDelete bool
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "mem://" + key, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return errors.New("storage unavailable")
	}
	delete(s.objects, key)
	return nil
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memStore) KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, "mem://") {
		return "", false
	}
	return strings.TrimPrefix(url, "mem://"), true
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type sentMail struct {
	to, subject, html string
}

// recordingSender is a mail.Sender that keeps every message.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (s *recordingSender) Send(_ context.Context, to, subject, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp down")
	}
	s.sent = append(s.sent, sentMail{to, subject, html})
	return nil
}

func (s *recordingSender) last() (sentMail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return sentMail{}, false
	}
	return s.sent[len(s.sent)-1], true
}

type testEnv struct {
	db       *database.Handle
	accounts *AccountService
	tokens   *TokenService
	verify   *VerificationService
	garments *GarmentService
	plans    *PlanService
	store    *memStore
	sender   *recordingSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	h, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal("Failed to open test database:", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	if err := database.Migrate(context.Background(), h); err != nil {
		t.Fatal("Failed to run migrations:", err)
	}

	users := repository.NewUserRepo(h)
	garments := repository.NewGarmentRepo(h)
	env := &testEnv{db: h, store: newMemStore(), sender: &recordingSender{}}
	env.accounts = NewAccountService(h, users, repository.NewConsentRepo(), garments, env.store, bcrypt.MinCost)
	env.tokens = NewTokenService(users, repository.NewTokenRepo(h), TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Hour,
		RefreshTTL:    180 * 24 * time.Hour,
	})
	env.verify = NewVerificationService(h, users, repository.NewVerificationRepo(), env.sender,
		24*time.Hour, bcrypt.MinCost, true)
	env.garments = NewGarmentService(h, garments, repository.NewSeasonRepo(h), env.store)
	env.plans = NewPlanService(h, repository.NewPlanRepo(h), garments)
	return env
}

// register creates a user and returns its id.
func (e *testEnv) register(t *testing.T, email, nickname string) uint64 {
	t.Helper()
	u, err := e.accounts.Register(context.Background(), RegisterInput{
		Email: email, Password: "pw123456", Nickname: nickname, ConsentGiven: true, IP: "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u.ID
}

func (e *testEnv) count(t *testing.T, query string, args ...interface{}) int {
	t.Helper()
	var n int
	if err := e.db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func (e *testEnv) addGarment(t *testing.T, owner uint64, name string, seasons ...string) model.Garment {
	t.Helper()
	g, err := e.garments.Add(context.Background(), owner, model.GarmentFields{Name: name, Seasons: seasons}, nil)
	if err != nil {
		t.Fatalf("add garment %s: %v", name, err)
	}
	return g
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %d, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected kind %d, got %d (%v)", kind, got, err)
	}
}

func strPtr(s string) *string { return &s }

package service

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/wardrobe-planner/internal/model"
	"github.com/iliyamo/wardrobe-planner/internal/repository"
)

func (e *testEnv) storedCode(t *testing.T, email string) string {
	t.Helper()
	var code string
	if err := e.db.QueryRow(`SELECT verification_code FROM verification_tokens WHERE email=?`, email).Scan(&code); err != nil {
		t.Fatal(err)
	}
	return code
}

func TestRequestAndVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.verify.RequestVerification(ctx, "new@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if res.VerificationCode != "" {
		t.Error("code must not be echoed when mail delivery succeeded")
	}
	code := env.storedCode(t, "new@x.com")
	if !regexp.MustCompile(`^\d{6}$`).MatchString(code) {
		t.Errorf("expected a 6-digit code, got %q", code)
	}
	m, ok := env.sender.last()
	if !ok || m.to != "new@x.com" || !strings.Contains(m.html, code) {
		t.Errorf("verification mail missing or without code: %+v", m)
	}

	_, err = env.verify.VerifyEmail(ctx, "new@x.com", "000000x")
	wantKind(t, err, KindNotFound)

	email, err := env.verify.VerifyEmail(ctx, "New@x.com", code)
	if err != nil {
		t.Fatal(err)
	}
	if email != "new@x.com" {
		t.Errorf("unexpected email %q", email)
	}
	_, err = env.verify.VerifyEmail(ctx, "new@x.com", code)
	wantKind(t, err, KindNotFound)
}

func TestRequestVerificationSupersedesPreviousCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := env.verify.RequestVerification(ctx, "new@x.com"); err != nil {
			t.Fatal(err)
		}
	}
	if n := env.count(t, `SELECT COUNT(*) FROM verification_tokens WHERE email='new@x.com'`); n != 1 {
		t.Errorf("expected one live record, got %d", n)
	}
}

func TestRequestVerificationForRegisteredEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "")
	_, err := env.verify.RequestVerification(context.Background(), "a@x.com")
	wantKind(t, err, KindConflict)
}

func TestMailFailureKeepsCodeUsable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.sender.fail = true

	res, err := env.verify.RequestVerification(ctx, "new@x.com")
	if err != nil {
		t.Fatal(err)
	}
	code := env.storedCode(t, "new@x.com")
	if res.VerificationCode != code {
		t.Errorf("development mode should echo the code, got %q want %q", res.VerificationCode, code)
	}
	if _, err := env.verify.VerifyEmail(ctx, "new@x.com", code); err != nil {
		t.Errorf("code should remain usable: %v", err)
	}
}

func TestVerifyEmailExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.verify.RequestVerification(ctx, "new@x.com"); err != nil {
		t.Fatal(err)
	}
	code := env.storedCode(t, "new@x.com")

	env.verify.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err := env.verify.VerifyEmail(ctx, "new@x.com", code)
	wantKind(t, err, KindExpired)
}

func TestForgotPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "a@x.com", "")

	if err := env.verify.ForgotPassword(ctx, "nobody@x.com"); err != nil {
		t.Errorf("unknown email must look like success, got %v", err)
	}
	if _, ok := env.sender.last(); ok {
		t.Error("no mail may be sent for an unknown email")
	}

	if err := env.verify.ForgotPassword(ctx, "a@x.com"); err != nil {
		t.Fatal(err)
	}
	m, ok := env.sender.last()
	if !ok {
		t.Fatal("expected a temporary password mail")
	}
	match := regexp.MustCompile(`<strong>([0-9a-f]+)</strong>`).FindStringSubmatch(m.html)
	if match == nil {
		t.Fatalf("temporary password not found in %q", m.html)
	}
	_, err := env.tokens.Login(ctx, "a@x.com", "pw123456")
	wantKind(t, err, KindAuth)
	if _, err := env.tokens.Login(ctx, "a@x.com", match[1]); err != nil {
		t.Errorf("login with temporary password: %v", err)
	}
}

func TestRequestVerificationRetriesLostRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// The first write collides with a concurrent request for the same email.
	calls := 0
	store := env.verify.replace
	env.verify.replace = func(ctx context.Context, tx *sql.Tx, v *model.VerificationToken, now time.Time) error {
		calls++
		if calls == 1 {
			return repository.ErrConflict
		}
		return store(ctx, tx, v, now)
	}

	if _, err := env.verify.RequestVerification(ctx, "new@x.com"); err != nil {
		t.Fatalf("a lost race must not surface to the caller: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected one retry, got %d calls", calls)
	}
	code := env.storedCode(t, "new@x.com")
	if _, err := env.verify.VerifyEmail(ctx, "new@x.com", code); err != nil {
		t.Errorf("stored code should verify: %v", err)
	}
}

func TestRequestVerificationPersistentConflictIsInternal(t *testing.T) {
	env := newTestEnv(t)
	env.verify.replace = func(context.Context, *sql.Tx, *model.VerificationToken, time.Time) error {
		return repository.ErrConflict
	}
	_, err := env.verify.RequestVerification(context.Background(), "new@x.com")
	wantKind(t, err, KindInternal)
}

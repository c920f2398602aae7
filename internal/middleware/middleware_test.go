package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wardrobe-planner/internal/config"
	"github.com/iliyamo/wardrobe-planner/internal/service"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer abc", "abc"},
		{"  Bearer   abc  ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := bearerToken(tt.header); got != tt.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

type fakeAuth struct{ err error }

func (f fakeAuth) Authenticate(raw string) (service.Principal, error) {
	if f.err != nil {
		return service.Principal{}, f.err
	}
	if raw != "good" {
		return service.Principal{}, errors.New("bad token")
	}
	return service.Principal{ID: 7, Nickname: "ann"}, nil
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	h := JWTAuth(fakeAuth{})(func(c echo.Context) error {
		p, ok := Principal(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		if userID(c) != "7" || c.Get("user_id") != uint64(7) {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, p.Nickname)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "ann" {
		t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer forged")
	if err := h(e.NewContext(req, httptest.NewRecorder())); err == nil {
		t.Error("expected the authenticator error to be returned")
	}
}

func TestPrincipalOnAnonymousRequest(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, ok := Principal(c); ok {
		t.Error("no principal expected")
	}
	if userID(c) != "anon" {
		t.Errorf("expected anon, got %q", userID(c))
	}
}

func limiterConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
}

func TestTokenBucketFallsBackToLocalLimiter(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(limiterConfig(), nil))

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}
	for i := 0; i < 2; i++ {
		if rec := do("10.0.0.1"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, rec.Code)
		}
	}
	rec := do("10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "TOO_MANY_REQUESTS" {
		t.Errorf("unexpected body %v", body)
	}

	if rec := do("10.0.0.2"); rec.Code != http.StatusNoContent {
		t.Errorf("other clients have their own bucket, got %d", rec.Code)
	}
}

func TestTokenBucketDisabled(t *testing.T) {
	cfg := limiterConfig()
	cfg.Enabled = false
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, nil))
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d limited while disabled: %d", i, rec.Code)
		}
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/users/login", nil)
	req.RemoteAddr = "10.0.0.9:555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/users/login")

	cfg := limiterConfig()
	if got := buildRateKey(cfg, c); got != "rl:ip:10.0.0.9" {
		t.Errorf("ip strategy: %q", got)
	}
	cfg.KeyStrategy = "ip_user_route"
	if got := buildRateKey(cfg, c); got != "rl:ip:10.0.0.9:user:anon:route:POST /users/login" {
		t.Errorf("default strategy: %q", got)
	}
}

func TestCachePayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	status, hdr, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || hdr.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Errorf("decoded %d %v %q %v", status, hdr, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{1, 2}); ok {
		t.Error("short payload must not decode")
	}
}

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/wardrobe-planner/internal/config"
	"github.com/iliyamo/wardrobe-planner/internal/database"
	"github.com/iliyamo/wardrobe-planner/internal/handler"
	"github.com/iliyamo/wardrobe-planner/internal/mail"
	"github.com/iliyamo/wardrobe-planner/internal/repository"
	"github.com/iliyamo/wardrobe-planner/internal/service"
	"github.com/iliyamo/wardrobe-planner/internal/storage"
	"github.com/iliyamo/wardrobe-planner/internal/utils"
)

const testSecret = "access-secret"

type server struct {
	e *echo.Echo
	t *testing.T
}

func newServer(t *testing.T) *server {
	t.Helper()
	h, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = h.Close() })
	if err := database.Migrate(context.Background(), h); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost/uploads")
	if err != nil {
		t.Fatal(err)
	}

	users := repository.NewUserRepo(h)
	garments := repository.NewGarmentRepo(h)
	accounts := service.NewAccountService(h, users, repository.NewConsentRepo(), garments, store, bcrypt.MinCost)
	tokens := service.NewTokenService(users, repository.NewTokenRepo(h), service.TokenConfig{
		AccessSecret: testSecret, RefreshSecret: "refresh-secret",
		AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour,
	})
	verify := service.NewVerificationService(h, users, repository.NewVerificationRepo(), mail.DisabledSender{},
		time.Hour, bcrypt.MinCost, true)

	e := echo.New()
	RegisterRoutes(e, Handlers{
		Health:  handler.NewHealthHandler(h),
		Auth:    handler.NewAuthHandler(accounts, tokens, verify),
		Clothes: handler.NewClothesHandler(service.NewGarmentService(h, garments, repository.NewSeasonRepo(h), store)),
		Plan:    handler.NewPlanHandler(service.NewPlanService(h, repository.NewPlanRepo(h), garments)),
	}, Options{
		Auth:      tokens,
		RateLimit: config.RateLimitConfig{Enabled: false},
	})
	return &server{e: e, t: t}
}

func (s *server) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *server) upload(path, token, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("name", "Coat")
	_ = w.WriteField("seasons", "winter, autumn")
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		s.t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		s.t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		s.t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// login signs a user up and returns an access token.
func (s *server) login(email string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/users/signup", "", map[string]interface{}{
		"email": email, "password": "pw123456", "privacyPolicyAgreed": true,
	})
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("signup %s: %d %s", email, rec.Code, rec.Body)
	}
	rec = s.do(http.MethodPost, "/users/login", "", map[string]string{"email": email, "password": "pw123456"})
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body)
	}
	var res struct {
		AccessToken string `json:"accessToken"`
	}
	decode(s.t, rec, &res)
	return res.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != code || body["message"] == "" {
		t.Errorf("expected error %s with a message, got %v", code, body)
	}
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"database":"up"`) {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body)
	}
}

func TestSignupFlow(t *testing.T) {
	s := newServer(t)
	body := map[string]interface{}{"email": "A@X.com", "password": "pw123456", "nickname": "ann", "privacyPolicyAgreed": true}

	rec := s.do(http.MethodPost, "/users/signup", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var u map[string]interface{}
	decode(t, rec, &u)
	if u["email"] != "a@x.com" || u["nickname"] != "ann" {
		t.Errorf("unexpected user %v", u)
	}
	if _, leaked := u["password"]; leaked {
		t.Error("password hash must not be returned")
	}

	wantError(t, s.do(http.MethodPost, "/users/signup", "", body), http.StatusConflict, "CONFLICT")

	body["email"] = "b@x.com"
	body["privacyPolicyAgreed"] = false
	wantError(t, s.do(http.MethodPost, "/users/signup", "", body), http.StatusBadRequest, "VALIDATION_ERROR")

	wantError(t, s.do(http.MethodPost, "/users/login", "", map[string]string{"email": "a@x.com", "password": "nope"}),
		http.StatusUnauthorized, "INVALID_CREDENTIALS")
}

func TestMeAndRefresh(t *testing.T) {
	s := newServer(t)
	s.login("a@x.com")
	rec := s.do(http.MethodPost, "/users/login", "", map[string]string{"email": "a@x.com", "password": "pw123456"})
	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decode(t, rec, &pair)

	rec = s.do(http.MethodGet, "/users/me", pair.AccessToken, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "a@x.com") {
		t.Fatalf("me: %d %s", rec.Code, rec.Body)
	}

	rec = s.do(http.MethodPost, "/users/refresh-token", "", map[string]string{"refreshToken": pair.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body)
	}
	wantError(t, s.do(http.MethodPost, "/users/refresh-token", "", map[string]string{"refreshToken": pair.RefreshToken}),
		http.StatusForbidden, "INVALID_REFRESH_TOKEN")
}

func TestAccessTokenFailures(t *testing.T) {
	s := newServer(t)
	expired, err := utils.NewAccessToken(testSecret, 1, "", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	forged, err := utils.NewAccessToken("someone-else", 1, "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	wantError(t, s.do(http.MethodGet, "/clothes", "", nil), http.StatusUnauthorized, "ACCESS_TOKEN_REQUIRED")
	wantError(t, s.do(http.MethodGet, "/clothes", expired.Token, nil), http.StatusUnauthorized, "ACCESS_TOKEN_EXPIRED")
	wantError(t, s.do(http.MethodGet, "/clothes", forged.Token, nil), http.StatusForbidden, "INVALID_ACCESS_TOKEN")
	wantError(t, s.do(http.MethodGet, "/plan/detail/1", "garbage", nil), http.StatusForbidden, "INVALID_ACCESS_TOKEN")
}

func TestClothesOwnership(t *testing.T) {
	s := newServer(t)
	alice := s.login("alice@x.com")
	bob := s.login("bob@x.com")

	rec := s.do(http.MethodPost, "/clothes", alice, map[string]interface{}{
		"name": "Coat", "brand": "Acme", "seasons": []string{"winter"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body)
	}
	var g struct {
		ID      uint64   `json:"id"`
		Seasons []string `json:"seasons"`
	}
	decode(t, rec, &g)
	path := fmt.Sprintf("/clothes/%d", g.ID)

	wantError(t, s.do(http.MethodDelete, path, bob, nil), http.StatusForbidden, "FORBIDDEN")
	wantError(t, s.do(http.MethodGet, path, bob, nil), http.StatusForbidden, "FORBIDDEN")
	wantError(t, s.do(http.MethodGet, "/clothes/9999", alice, nil), http.StatusNotFound, "NOT_FOUND")
	wantError(t, s.do(http.MethodGet, "/clothes/abc", alice, nil), http.StatusBadRequest, "VALIDATION_ERROR")

	rec = s.do(http.MethodGet, "/clothes?brand=acme", alice, nil)
	var list []map[string]interface{}
	decode(t, rec, &list)
	if len(list) != 1 || list[0]["name"] != "Coat" {
		t.Errorf("owner should still see the coat, got %v", list)
	}
	rec = s.do(http.MethodGet, "/clothes", bob, nil)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("bob's catalog should be an empty array, got %s", rec.Body)
	}

	if rec := s.do(http.MethodDelete, path, alice, nil); rec.Code != http.StatusNoContent {
		t.Errorf("owner delete: %d %s", rec.Code, rec.Body)
	}
}

func TestClothesImageUpload(t *testing.T) {
	s := newServer(t)
	token := s.login("a@x.com")

	rec := s.upload("/clothes", token, "coat.png", "image/png", []byte("\x89PNG"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body)
	}
	var g struct {
		ImageURL string   `json:"image_url"`
		Seasons  []string `json:"seasons"`
	}
	decode(t, rec, &g)
	if !strings.HasPrefix(g.ImageURL, "http://localhost/uploads/clothes/") {
		t.Errorf("unexpected image url %q", g.ImageURL)
	}
	if strings.Join(g.Seasons, ",") != "autumn,winter" {
		t.Errorf("unexpected seasons %v", g.Seasons)
	}

	wantError(t, s.upload("/clothes", token, "notes.txt", "text/plain", []byte("hi")),
		http.StatusBadRequest, "VALIDATION_ERROR")
	wantError(t, s.upload("/clothes", token, "coat.png", "application/octet-stream", []byte("hi")),
		http.StatusBadRequest, "VALIDATION_ERROR")
	wantError(t, s.upload("/clothes", token, "big.jpg", "image/jpeg", make([]byte, handler.MaxImageBytes+1)),
		http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE")
}

func TestPlanRoutes(t *testing.T) {
	s := newServer(t)
	alice := s.login("alice@x.com")
	bob := s.login("bob@x.com")

	rec := s.do(http.MethodPost, "/clothes", alice, map[string]interface{}{"name": "Coat"})
	var g struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &g)

	rec = s.do(http.MethodPost, "/plan/add", alice, map[string]interface{}{
		"title": "Office", "date": "2024-03-05", "clothesIds": []uint64{g.ID},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add plan: %d %s", rec.Code, rec.Body)
	}
	var p struct {
		ID      uint64                   `json:"id"`
		Clothes []map[string]interface{} `json:"clothes"`
	}
	decode(t, rec, &p)
	if len(p.Clothes) != 1 {
		t.Errorf("expected one garment, got %v", p.Clothes)
	}

	rec = s.do(http.MethodGet, "/plan?year=2024&month=3", alice, nil)
	var byDate map[string][]json.RawMessage
	decode(t, rec, &byDate)
	if len(byDate) != 1 || len(byDate["2024-03-05"]) != 1 {
		t.Errorf("unexpected listing %s", rec.Body)
	}
	wantError(t, s.do(http.MethodGet, "/plan?year=2024", alice, nil), http.StatusBadRequest, "VALIDATION_ERROR")

	wantError(t, s.do(http.MethodGet, fmt.Sprintf("/plan/detail/%d", p.ID), bob, nil), http.StatusNotFound, "NOT_FOUND")

	rec = s.do(http.MethodPut, "/plan/update", alice, map[string]interface{}{"planId": p.ID, "clothesIds": []uint64{}})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"clothes":[]`) {
		t.Errorf("update: %d %s", rec.Code, rec.Body)
	}

	if rec := s.do(http.MethodDelete, fmt.Sprintf("/plan/delete/%d", p.ID), alice, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete: %d %s", rec.Code, rec.Body)
	}
	wantError(t, s.do(http.MethodGet, fmt.Sprintf("/plan/%d", p.ID), alice, nil), http.StatusNotFound, "NOT_FOUND")
}

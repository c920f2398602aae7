package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wardrobe-planner/internal/service"
)

// AuthHandler bundles the account, token and verification services behind
// the /users routes.
type AuthHandler struct {
	Accounts *service.AccountService
	Tokens   *service.TokenService
	Verify   *service.VerificationService
}

func NewAuthHandler(a *service.AccountService, t *service.TokenService, v *service.VerificationService) *AuthHandler {
	return &AuthHandler{Accounts: a, Tokens: t, Verify: v}
}

// ----- DTOs -----

type signupReq struct {
	Email               string `json:"email"`
	Password            string `json:"password"`
	Nickname            string `json:"nickname"`
	PrivacyPolicyAgreed bool   `json:"privacyPolicyAgreed"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type emailReq struct {
	Email string `json:"email"`
}
type verifyEmailReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
type nicknameReq struct {
	Nickname string `json:"nickname"`
}

type messageResp struct {
	Message string `json:"message"`
}

// Signup: create the account and record privacy-policy consent.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Accounts.Register(c.Request().Context(), service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		Nickname:     req.Nickname,
		ConsentGiven: req.PrivacyPolicyAgreed,
		IP:           c.RealIP(),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

// Login: verify credentials and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.Tokens.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Refresh: rotate the refresh token and return a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.Tokens.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Logout: clear the caller's stored refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	if err := h.Tokens.Logout(c.Request().Context(), uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RequestVerification: mail a fresh signup code.
func (h *AuthHandler) RequestVerification(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.Verify.RequestVerification(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// VerifyEmail: consume a signup code.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	email, err := h.Verify.VerifyEmail(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified", "email": email})
}

// ForgotPassword answers the same way whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Verify.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "if the account exists, a temporary password has been sent"})
}

// ChangePassword: replace the caller's password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Accounts.ChangePassword(c.Request().Context(), uid, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "password changed"})
}

// ChangeNickname: set a new unique nickname.
func (h *AuthHandler) ChangeNickname(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	var req nicknameReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Accounts.ChangeNickname(c.Request().Context(), uid, req.Nickname)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// DeleteAccount removes the caller and everything they own.
func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	if err := h.Accounts.DeleteAccount(c.Request().Context(), uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's public profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return err
	}
	u, err := h.Accounts.Profile(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

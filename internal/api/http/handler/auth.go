package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/allodoc/allodoc-backend/config"
	"github.com/allodoc/allodoc-backend/internal/api/http/middleware"
	"github.com/allodoc/allodoc-backend/internal/service/auth"
	"github.com/allodoc/allodoc-backend/internal/service/token"
	jwttoken "github.com/allodoc/allodoc-backend/pkg/jwt"
)

type AuthHandler struct {
	svc auth.Service
	cfg *config.Config
}

func NewAuthHandler(svc auth.Service, cfg *config.Config) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg}
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var body struct {
		Email            string `json:"email"`
		Password         string `json:"password"`
		FirstName        string `json:"firstName"`
		LastName         string `json:"lastName"`
		OrganizationID   string `json:"organizationId"`
		OrganizationName string `json:"organizationName"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.svc.Register(c.Context(), auth.RegisterRequest{
		Email:            body.Email,
		Password:         body.Password,
		FirstName:        body.FirstName,
		LastName:         body.LastName,
		OrganizationID:   body.OrganizationID,
		OrganizationName: body.OrganizationName,
	}, h.meta(c))
	if err != nil {
		return mapAuthError(c, err)
	}

	h.setAuthCookies(c, res.Tokens)
	return created(c, authPayload(res))
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.svc.Login(c.Context(), auth.LoginRequest{
		Email:    body.Email,
		Password: body.Password,
	}, h.meta(c))
	if err != nil {
		return mapAuthError(c, err)
	}

	h.setAuthCookies(c, res.Tokens)
	return ok(c, authPayload(res))
}

// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = c.Bind().JSON(&body)

	refreshToken := body.RefreshToken
	if refreshToken == "" {
		refreshToken = c.Cookies(middleware.CookieRefreshToken)
	}
	if refreshToken == "" {
		return badRequest(c, "refresh token is required")
	}

	res, err := h.svc.RefreshTokens(c.Context(), refreshToken)
	if err != nil {
		h.clearAuthCookies(c)
		return mapAuthError(c, err)
	}

	h.setAuthCookies(c, res.Tokens)
	return ok(c, authPayload(res))
}

// POST /api/v1/auth/logout  (requires AuthRequired middleware)
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	claims, ok := jwttoken.ClaimsFromFiber(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.svc.Logout(c.Context(), claims, c.Cookies(middleware.CookieRefreshToken)); err != nil {
		return internalError(c)
	}

	h.clearAuthCookies(c)
	return noContent(c)
}

// POST /api/v1/auth/logout-all  (requires AuthRequired middleware)
func (h *AuthHandler) LogoutAll(c fiber.Ctx) error {
	claims, valid := jwttoken.ClaimsFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	count, err := h.svc.LogoutAll(c.Context(), claims)
	if err != nil {
		return internalError(c)
	}

	h.clearAuthCookies(c)
	return ok(c, fiber.Map{"terminatedSessions": count})
}

// GET /api/v1/auth/sessions  (requires AuthRequired middleware)
func (h *AuthHandler) Sessions(c fiber.Ctx) error {
	claims, valid := jwttoken.ClaimsFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	infos, err := h.svc.GetUserSessions(c.Context(), claims.UserID(), claims.SessionID)
	if err != nil {
		return internalError(c)
	}
	return ok(c, infos)
}

// DELETE /api/v1/auth/sessions/:sessionId  (requires AuthRequired middleware)
func (h *AuthHandler) TerminateSession(c fiber.Ctx) error {
	principal, valid := middleware.PrincipalFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return badRequest(c, "session id is required")
	}

	if err := h.svc.TerminateSession(c.Context(), principal, sessionID); err != nil {
		return mapAuthError(c, err)
	}
	return noContent(c)
}

// PATCH /api/v1/auth/change-password  (requires AuthRequired middleware)
func (h *AuthHandler) ChangePassword(c fiber.Ctx) error {
	claims, valid := jwttoken.ClaimsFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.CurrentPassword == "" || body.NewPassword == "" {
		return badRequest(c, "currentPassword and newPassword are required")
	}

	if err := h.svc.ChangePassword(c.Context(), claims, auth.ChangePasswordRequest{
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
	}); err != nil {
		return mapAuthError(c, err)
	}

	// All sessions are dead, including this one.
	h.clearAuthCookies(c)
	return noContent(c)
}

// POST /api/v1/auth/switch-organization/:organizationId  (requires AuthRequired middleware)
func (h *AuthHandler) SwitchOrganization(c fiber.Ctx) error {
	claims, valid := jwttoken.ClaimsFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	orgID := c.Params("organizationId")
	if orgID == "" {
		return badRequest(c, "organization id is required")
	}

	res, err := h.svc.SwitchOrganization(c.Context(), claims, orgID)
	if err != nil {
		return mapAuthError(c, err)
	}

	h.setAuthCookies(c, res.Tokens)
	return ok(c, authPayload(res))
}

// ---------------------------------------------------------------------------
// Payloads & cookies
// ---------------------------------------------------------------------------

func authPayload(res *auth.AuthResult) fiber.Map {
	orgs := res.Organizations
	if orgs == nil {
		orgs = []auth.OrganizationInfo{}
	}
	return fiber.Map{
		"accessToken":   res.Tokens.AccessToken,
		"refreshToken":  res.Tokens.RefreshToken,
		"expiresIn":     res.Tokens.ExpiresIn,
		"user":          res.User,
		"organizations": orgs,
	}
}

func (h *AuthHandler) meta(c fiber.Ctx) auth.RequestMeta {
	return auth.RequestMeta{
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
	}
}

func (h *AuthHandler) setAuthCookies(c fiber.Ctx, pair *token.TokenPair) {
	secure := h.cfg.IsProduction()

	accessTTL := time.Duration(pair.ExpiresIn) * time.Second
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := time.Duration(h.cfg.Authentication.JWT.RefreshTTLDays) * 24 * time.Hour
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieAccessToken,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  time.Now().Add(accessTTL),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieRefreshToken,
		Value:    pair.RefreshToken,
		Path:     "/",
		Expires:  time.Now().Add(refreshTTL),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearAuthCookies(c fiber.Ctx) {
	for _, name := range []string{middleware.CookieAccessToken, middleware.CookieRefreshToken} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Now().Add(-time.Hour),
			HTTPOnly: true,
			Secure:   h.cfg.IsProduction(),
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapAuthError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		return conflict(c, err.Error())
	case errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrSamePassword),
		errors.Is(err, auth.ErrWrongPassword):
		return badRequest(c, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrAccountSuspended):
		return forbidden(c)
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, jwttoken.ErrTokenExpired),
		errors.Is(err, jwttoken.ErrTokenNotYetValid),
		errors.Is(err, jwttoken.ErrTokenMalformed),
		errors.Is(err, token.ErrTokenBlacklisted),
		errors.Is(err, token.ErrRefreshInvalid),
		errors.Is(err, token.ErrRefreshReplayed),
		errors.Is(err, token.ErrUserInactive):
		return unauthorized(c)
	case errors.Is(err, auth.ErrOrganizationDenied),
		errors.Is(err, auth.ErrSessionNotOwned):
		return forbidden(c)
	case errors.Is(err, auth.ErrOrganizationNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, auth.ErrSessionNotFound):
		return notFound(c, err.Error())
	default:
		return internalError(c)
	}
}

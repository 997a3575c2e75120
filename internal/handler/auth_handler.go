package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"

	"auth-service/internal/middleware"
	"auth-service/internal/model"
	"auth-service/internal/service"
	"auth-service/pkg/apierror"
)

// RefreshCookieName is the cookie carrying the refresh token. It is
// HTTP-only and scoped to the auth endpoints so page script never sees it.
const RefreshCookieName = "refreshToken"

var validate = validator.New()

// FederatedVerifier is the opaque federated handshake: given the callback
// request it yields a verified external identity or an error.
type FederatedVerifier interface {
	Verify(ctx context.Context, r *http.Request) (model.ExternalIdentity, error)
}

type CookieOptions struct {
	Path   string
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	service    *service.AuthService
	cookie     CookieOptions
	verifier   FederatedVerifier
	successURL string
	failureURL string
}

func NewAuthHandler(svc *service.AuthService, cookie CookieOptions, verifier FederatedVerifier, successURL string, failureURL string) *AuthHandler {
	return &AuthHandler{
		service:    svc,
		cookie:     cookie,
		verifier:   verifier,
		successURL: successURL,
		failureURL: failureURL,
	}
}

// HasVerifier reports whether federated routes should be mounted.
func (h *AuthHandler) HasVerifier() bool {
	return h.verifier != nil
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid registration payload", validationDetails(err), http.StatusBadRequest))
		return
	}

	profile, err := h.service.Register(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, profile)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid login payload", validationDetails(err), http.StatusBadRequest))
		return
	}

	pair, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeSuccess(w, http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, model.ErrInvalidToken)
		return
	}

	pair, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		// A rejected refresh ends the session: drop the cookie so the
		// client falls back to a full login.
		if errors.Is(err, model.ErrInvalidToken) || errors.Is(err, model.ErrStaleToken) {
			h.clearRefreshCookie(w)
		}
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeSuccess(w, http.StatusOK, pair)
}

// Logout always acknowledges. The cookie is cleared unconditionally; a
// store failure is logged but never surfaced to the client.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var token string
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		token = cookie.Value
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		slog.Error("logout session clear failed", "error", err)
	}

	h.clearRefreshCookie(w)
	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	profile, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile)
}

// OAuthCallback finishes the federated flow: the verifier yields an
// identity, a session is established, the refresh cookie is set, and the
// browser is redirected with a one-time exchange code instead of the
// access token itself.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	identity, err := h.verifier.Verify(r.Context(), r)
	if err != nil {
		slog.Warn("federated verification failed", "error", err)
		http.Redirect(w, r, h.failureURL, http.StatusFound)
		return
	}

	pair, err := h.service.LoginFederated(r.Context(), identity)
	if err != nil {
		slog.Error("federated login failed", "error", err)
		http.Redirect(w, r, h.failureURL, http.StatusFound)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)

	code := h.service.MintExchangeCode(pair)
	redirect := h.successURL + "?code=" + url.QueryEscape(code)
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *AuthHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := validate.Struct(payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid exchange payload", validationDetails(err), http.StatusBadRequest))
		return
	}

	pair, err := h.service.RedeemExchangeCode(payload.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, pair)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     h.cookie.Path,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     h.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field() + " failed " + verrs[0].Tag() + " validation"
	}
	return ""
}

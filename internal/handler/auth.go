package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/muzerhq/muzer/internal/apperror"
	"github.com/muzerhq/muzer/internal/auth"
	"github.com/muzerhq/muzer/internal/service"
)

const (
	tokenCookie = "token"
	stateCookie = "oauth_state"

	sessionMaxAge = int(7 * 24 * time.Hour / time.Second)
)

// AuthHandler manages the OAuth sign-in flow and session endpoints.
//
//	HandleLogin    → redirect the browser to the provider's consent page
//	HandleCallback → receive the code, sign the user in, issue the cookie
//	HandleLogout   → clear the session cookie
//	HandleMe       → return the signed-in user's profile
//
// Both Google and GitHub go through the same two handlers; the provider
// is picked by the {provider} route parameter.
type AuthHandler struct {
	providers map[string]*auth.Provider
	auth      *service.AuthService
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler for the given providers, keyed
// by their URL name ("google", "github").
func NewAuthHandler(providers map[string]*auth.Provider, authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		providers: providers,
		auth:      authSvc,
		logger:    logger,
	}
}

// provider resolves the {provider} route parameter set by chi.
func (h *AuthHandler) provider(r *http.Request) *auth.Provider {
	return h.providers[routeParam(r, "provider")]
}

// routeParam reads a chi URL parameter.
func routeParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// HandleLogin redirects the user to the provider's authorization page.
//
// HTTP: GET /auth/{provider}/login
//
// The random state value goes into a short-lived HttpOnly cookie; the
// callback requires the provider to echo it back, which stops CSRF
// attempts from completing a flow the user never started.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	provider := h.provider(r)
	if provider == nil {
		writeError(w, apperror.NotFound("provider", routeParam(r, "provider")))
		return
	}

	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth sign-in.
//
// HTTP: GET /auth/{provider}/callback?code=xxx&state=yyy
//
// Flow: verify state, exchange the code for a profile, sign in (upsert
// by email — denied outright if the provider gave us no email), set the
// session cookie, redirect home. Every failure past the state check is
// reported as the same generic denial; the specifics only go to the log.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	provider := h.provider(r)
	if provider == nil {
		writeError(w, apperror.NotFound("provider", routeParam(r, "provider")))
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state missing or mismatched",
			slog.String("provider", string(provider.Name())),
		)
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// The user denied authorization at the provider.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("provider", string(provider.Name())),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	profile, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed",
			slog.String("provider", string(provider.Name())),
			slog.String("error", err.Error()),
		)
		h.denySignIn(w)
		return
	}

	result, err := h.auth.SignIn(r.Context(), profile)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.String("provider", string(provider.Name())),
			slog.String("error", err.Error()),
		)
		h.denySignIn(w)
		return
	}

	// HttpOnly keeps the JWT out of reach of page scripts; SameSite=Lax
	// withholds it from cross-site POSTs.
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// denySignIn is the single generic failure response for the callback —
// no distinction between exchange failures, missing emails, and store
// errors leaks to the browser.
func (h *AuthHandler) denySignIn(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "sign_in_failed",
		Message: "authentication failed",
	})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// Sessions are stateless JWTs, so logout is purely deleting the cookie;
// the token itself simply ages out.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /auth/me
// Auth: required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized())
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

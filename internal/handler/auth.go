package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/gitgate/internal/service"
)

// refreshCookieName is the HttpOnly cookie carrying the raw refresh token.
// It's the only place the raw value lives between requests — the server
// keeps just the hash.
const refreshCookieName = "refresh_token"

// AuthHandler exposes the session lifecycle over HTTP.
//
// ROUTES:
//   - HandleGitHubLogin    GET  /auth/github          → 302 to GitHub
//   - HandleGitHubCallback GET  /auth/github/callback → cookie + redirect
//   - HandleRefresh        POST /auth/refresh         → rotate, {accessToken}
//   - HandleMe             GET  /auth/me              → {user} from Bearer token
//   - HandleLogout         POST /auth/logout          → revoke + clear cookie
//
// The handler owns exactly the HTTP concerns: cookies, headers, status
// codes, redirects. Every auth decision is the SessionService's.
type AuthHandler struct {
	sessions      *service.SessionService
	frontendURL   string        // post-login redirect base, e.g. http://localhost:3001
	refreshTTL    time.Duration // cookie max-age, matches the refresh token TTL
	secureCookies bool          // true outside development (HTTPS only)
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected; the
// handler has no knowledge of how they're constructed.
func NewAuthHandler(
	sessions *service.SessionService,
	frontendURL string,
	refreshTTL time.Duration,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		sessions:      sessions,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github
//
// The authorization URL carries a freshly generated state value. The state
// is currently NOT remembered or verified on callback — a known login-CSRF
// gap in this flow, kept as-is rather than half-fixed.
// TODO: store the state in a short-lived HttpOnly cookie here and compare
// it in HandleGitHubCallback.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	url, _ := h.sessions.LoginURL()
	http.Redirect(w, r, url, http.StatusFound)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// On success the raw refresh token is set as an HttpOnly cookie and the
// browser is sent to the frontend's success page. The access token is NOT
// returned here — the frontend obtains it with an immediate POST
// /auth/refresh, which keeps it out of redirect URLs and browser history.
//
// Nothing is written to the client until the whole chain (exchange, profile,
// upsert, issue, store) has succeeded.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Warn("oauth callback without code parameter")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "missing_code",
			Message: "missing OAuth code",
		})
		return
	}

	result, err := h.sessions.HandleCallback(r.Context(), code)
	if err != nil {
		// Detail is already logged by the service with the failing step.
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "oauth_failed",
			Message: "authentication failed",
		})
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	http.Redirect(w, r, h.frontendURL+"/auth/success", http.StatusFound)
}

// HandleRefresh rotates the refresh token from the cookie and returns a new
// access token.
//
// HTTP: POST /auth/refresh
//
// 401 when the cookie is absent or rotation fails for any reason — an
// expired record, a forged token, and an already-rotated token all look the
// same from outside.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthenticated",
			Message: "missing refresh token",
		})
		return
	}

	pair, err := h.sessions.Rotate(r.Context(), cookie.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": pair.AccessToken})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /auth/me
// Auth: Authorization: Bearer <access token>
//
// 401 when the header is missing/malformed or the token doesn't verify;
// 404 when the token is fine but its subject no longer exists.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthenticated",
			Message: "missing bearer token",
		})
		return
	}

	user, err := h.sessions.ValidateAccess(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// HandleLogout ends the session.
//
// HTTP: POST /auth/logout
//
// POST, not GET: logout is state-changing, and GET would be prefetchable.
// The matching server-side record is revoked best-effort before the cookie
// is cleared — without that, the refresh credential would stay redeemable
// until its 30-day expiry. The response is {"ok": true} regardless; there
// is nothing useful to tell a departing user about a revoke hiccup.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		h.sessions.Revoke(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// setRefreshCookie writes the raw refresh token as an HttpOnly cookie.
//
// HttpOnly — JavaScript can't read it (XSS can't exfiltrate the session).
// SameSite=Lax — sent on top-level navigations, not cross-site POSTs.
// Secure — HTTPS only, enabled outside development.
func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

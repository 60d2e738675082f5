package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfeidau/admindash/internal/auth"
	apihttp "github.com/wolfeidau/admindash/internal/http"
	"github.com/wolfeidau/admindash/internal/store"
	"github.com/wolfeidau/admindash/internal/telemetry"
)

// CookieName is the session cookie set on login.
const CookieName = "token"

var ErrNoSession = errors.New("no session")

type contextKey string

const sessionContextKey contextKey = "session"

// Handlers serves the admin login, validate and logout endpoints and
// guards everything else with RequireAuth.
type Handlers struct {
	admins      store.AdminStore
	signer      *auth.Signer
	revocations *auth.Revocations
	secure      bool
	metrics     *telemetry.Metrics
}

type Option func(*Handlers)

// WithSecureCookies marks the session cookie Secure. Enable it whenever
// the server sits behind TLS.
func WithSecureCookies(secure bool) Option {
	return func(h *Handlers) { h.secure = secure }
}

func New(admins store.AdminStore, signer *auth.Signer, revocations *auth.Revocations, opts ...Option) *Handlers {
	h := &Handlers{
		admins:      admins,
		signer:      signer,
		revocations: revocations,
		metrics:     telemetry.GetMetrics(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginData struct {
	Token    string       `json:"token"`
	AdminDoc *store.Admin `json:"adminDoc"`
}

// LoginHandler exchanges email and password for a session cookie. The
// token is echoed in the body for clients that cannot read cookies.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx).With().Str("client_ip", apihttp.ClientIP(r)).Logger()

	var req loginRequest
	if err := apihttp.DecodeJSON(w, r, &req); err != nil {
		apihttp.WriteError(w, r, http.StatusBadRequest, "Invalid login request")
		return
	}

	email := store.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		apihttp.WriteError(w, r, http.StatusBadRequest, "Email and password are required")
		return
	}

	admin, err := h.admins.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrAdminNotFound):
		logger.Info().Str("email", email).Msg("Login for unknown account")
		h.recordAttempt(ctx, "unknown_account")
		apihttp.WriteError(w, r, http.StatusNotFound, "Account not found")
		return
	case err != nil:
		logger.Error().Err(err).Msg("Failed to load admin")
		apihttp.WriteError(w, r, http.StatusInternalServerError, "Login failed")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		logger.Info().Str("email", email).Msg("Login with wrong password")
		h.recordAttempt(ctx, "bad_password")
		apihttp.WriteError(w, r, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, claims, err := h.signer.IssueToken(admin.ID, admin.Email)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to issue session token")
		apihttp.WriteError(w, r, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, h.cookie(token, int(time.Until(claims.ExpiresAt.Time).Seconds())))

	logger.Info().Str("email", email).Str("session", claims.ID).Msg("Admin logged in")
	h.recordAttempt(ctx, "success")

	apihttp.WriteJSON(w, r, http.StatusOK, apihttp.Envelope{
		Success: true,
		Message: "Login successful",
		Data:    loginData{Token: token, AdminDoc: admin},
	})
}

// ValidateHandler reports whether the request carries a live session.
func (h *Handlers) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.GetSession(r); err != nil {
		apihttp.WriteError(w, r, http.StatusUnauthorized, sessionMessage(err))
		return
	}
	apihttp.WriteJSON(w, r, http.StatusOK, apihttp.Envelope{Success: true})
}

// LogoutHandler revokes the current session, if any, and clears the cookie.
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if claims, err := h.GetSession(r); err == nil {
		h.revocations.Revoke(claims.ID, claims.ExpiresAt.Time)
		zerolog.Ctx(r.Context()).Info().Str("email", claims.Email).Str("session", claims.ID).Msg("Admin logged out")
	}

	http.SetCookie(w, h.cookie("", -1))
	apihttp.WriteMessage(w, r, "Logged out")
}

// GetSession extracts and verifies the session from the cookie, falling
// back to a bearer token.
func (h *Handlers) GetSession(r *http.Request) (*auth.SessionClaims, error) {
	token := bearerToken(r)
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		token = cookie.Value
	}
	if token == "" {
		return nil, ErrNoSession
	}

	claims, err := h.signer.ParseToken(token)
	if err != nil {
		return nil, err
	}
	if h.revocations.IsRevoked(claims.ID) {
		return nil, auth.ErrInvalidSession
	}
	return claims, nil
}

// RequireAuth rejects requests without a valid session and stores the
// session claims in the context of those that have one.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.GetSession(r)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejecting unauthenticated request")
			apihttp.WriteError(w, r, http.StatusUnauthorized, sessionMessage(err))
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFromContext returns the claims stored by RequireAuth.
func SessionFromContext(ctx context.Context) (*auth.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionContextKey).(*auth.SessionClaims)
	return claims, ok
}

// HashPassword returns the bcrypt hash stored for an admin password.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// EnsureAdmin creates the admin account, or resets its name and password
// when it already exists.
func EnsureAdmin(ctx context.Context, admins store.AdminStore, name, email, password string) (*store.Admin, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	admin, err := admins.Upsert(ctx, &store.Admin{Name: name, Email: email, Role: "admin", PasswordHash: hash})
	if err != nil {
		return nil, fmt.Errorf("failed to store admin: %w", err)
	}
	return admin, nil
}

func (h *Handlers) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

func (h *Handlers) recordAttempt(ctx context.Context, outcome string) {
	h.metrics.LoginAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func bearerToken(r *http.Request) string {
	value := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(value, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func sessionMessage(err error) string {
	if errors.Is(err, auth.ErrExpiredSession) {
		return "Session expired"
	}
	return "Not authorized"
}

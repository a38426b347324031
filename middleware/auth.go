package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"healthOSAPI/internal/auth"
	"healthOSAPI/internal/logger"
	"healthOSAPI/internal/user"
	"healthOSAPI/services"
)

type contextKey string

const UserKey contextKey = "user"

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// IdentityResolver maps verified claims to a local user.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, claims *auth.Claims) (*user.User, error)
}

// Authenticate verifies the bearer token and stores the resolved user in the
// request context. Soft-deleted users pass; see RequireActiveUser.
func Authenticate(verifier TokenVerifier, resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Authorization header required")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				unauthorized(w, "Invalid authorization format. Use 'Bearer <token>'")
				return
			}

			claims, err := verifier.Verify(r.Context(), strings.TrimSpace(token))
			if err != nil {
				logger.Debug("token verification failed", "err", err)
				unauthorized(w, "Invalid or expired token")
				return
			}

			u, err := resolver.ResolveUser(r.Context(), claims)
			if err != nil {
				identitySyncs.WithLabelValues("failed").Inc()
				logger.Error("failed to resolve user", "subject", claims.Subject, "err", err)
				switch {
				case errors.Is(err, auth.ErrUnauthenticated):
					unauthorized(w, "Invalid or expired token")
				case errors.Is(err, services.ErrConflict):
					respondWithError(w, http.StatusConflict, err.Error())
				case errors.Is(err, services.ErrInvalidInput):
					respondWithError(w, http.StatusBadRequest, err.Error())
				default:
					respondWithError(w, http.StatusInternalServerError, "Failed to resolve user")
				}
				return
			}
			identitySyncs.WithLabelValues("resolved").Inc()

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireActiveUser rejects soft-deleted callers with 403.
func RequireActiveUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := GetUser(r.Context())
		if !ok {
			unauthorized(w, "Authentication required")
			return
		}
		if u.IsDeleted() {
			respondWithError(w, http.StatusForbidden, "Account is deleted; restore it to continue")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, UserKey, u)
}

// GetUser extracts the authenticated user from context
func GetUser(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(UserKey).(*user.User)
	return u, ok && u != nil
}

// GetUserID extracts the authenticated user's id from context
func GetUserID(ctx context.Context) (string, bool) {
	u, ok := GetUser(ctx)
	if !ok {
		return "", false
	}
	return u.ID, true
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	respondWithError(w, http.StatusUnauthorized, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

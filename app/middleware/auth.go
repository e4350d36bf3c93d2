package middleware

import (
	"context"
	"net/http"
	"strings"

	"coahub/app/models"
)

// TokenVerifier resolves a bearer token to the caller it was issued for.
type TokenVerifier interface {
	ParseToken(token string) (models.Principal, error)
}

// RequireAuth rejects requests without a bearer token (401) or with one that
// does not verify (403). On success the caller is stored in the context.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			principal, err := verifier.ParseToken(token)
			if err != nil {
				WriteError(w, http.StatusForbidden, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the authenticated caller stored by RequireAuth.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}

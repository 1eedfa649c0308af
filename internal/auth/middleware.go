package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/classquiz/internal/model"
)

// ErrorFunc writes an authentication or authorization failure.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

// RevocationChecker reports whether a token id was revoked by logout.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

type claimsKey struct{}

// ClaimsFromContext returns the verified claims of the request, if any.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Authenticate verifies the bearer token and stores the principal and
// claims on the request context. revoked may be nil.
func (t *Tokens) Authenticate(revoked RevocationChecker, onErr ErrorFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				onErr(w, r, fmt.Errorf("missing bearer token: %w", model.ErrUnauthorized))
				return
			}
			claims, err := t.Verify(raw)
			if err != nil {
				onErr(w, r, err)
				return
			}
			p, err := claims.Principal()
			if err != nil {
				onErr(w, r, err)
				return
			}
			if revoked != nil {
				gone, err := revoked.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					slog.Error("failed to check token revocation", "error", err)
					onErr(w, r, err)
					return
				}
				if gone {
					onErr(w, r, fmt.Errorf("token revoked: %w", model.ErrUnauthorized))
					return
				}
			}
			ctx := model.ContextWithPrincipal(r.Context(), p)
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only for principals holding one of
// the allowed roles.
func RequireRole(onErr ErrorFunc, allowed ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := model.PrincipalFromContext(r.Context())
			if !ok {
				onErr(w, r, model.ErrUnauthorized)
				return
			}
			for _, role := range allowed {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			onErr(w, r, model.ErrForbidden)
		})
	}
}

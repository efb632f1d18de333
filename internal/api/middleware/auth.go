package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tenkimap/tenkimap/internal/api/models"
	"github.com/tenkimap/tenkimap/internal/auth"
)

type adminClaimsKey struct{}

// AdminAuth requires a valid admin bearer token and stores its claims in
// the request context.
func AdminAuth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeUnauthorized(w, r, "missing or malformed bearer token")
				return
			}

			claims, err := jwtService.ValidateAdminToken(token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrAccessTokenExpired):
					writeUnauthorized(w, r, "access token has expired")
				case errors.Is(err, auth.ErrMissingScope):
					models.NewForbidden(GetRequestID(r.Context()), "token lacks admin scope").
						WithInstance(r.URL.Path).
						Write(w)
				default:
					writeUnauthorized(w, r, "invalid access token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), adminClaimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an Authorization header value.
// The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tenkimap-admin"`)
	models.NewUnauthorized(GetRequestID(r.Context()), detail).
		WithInstance(r.URL.Path).
		Write(w)
}

// GetAdminClaims returns the claims stored by AdminAuth, or nil.
func GetAdminClaims(ctx context.Context) *auth.JWTClaims {
	claims, _ := ctx.Value(adminClaimsKey{}).(*auth.JWTClaims)
	return claims
}

// GetAdminSubject returns the authenticated admin's subject, or "".
func GetAdminSubject(ctx context.Context) string {
	if claims := GetAdminClaims(ctx); claims != nil {
		return claims.Subject
	}
	return ""
}

package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/tenkimap/tenkimap/internal/api/models"
)

// APIContentSecurityPolicy is sent on every response unless PageSecurity
// replaces it.
const APIContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// LeafletOrigin serves the Leaflet script and stylesheet used by the page.
const LeafletOrigin = "https://unpkg.com"

// SecurityHeaders sets the headers every response carries.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", APIContentSecurityPolicy)
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")

		next.ServeHTTP(w, r)
	})
}

// PageSecurity replaces the API policy with one that lets the widget page
// load Leaflet and map tiles from tileURL's host.
func PageSecurity(tileURL string) func(http.Handler) http.Handler {
	policy := PageContentSecurityPolicy(tileURL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy", policy)
			next.ServeHTTP(w, r)
		})
	}
}

// PageContentSecurityPolicy builds the page policy for a tile URL template.
// A "{s}" subdomain placeholder becomes a wildcard.
func PageContentSecurityPolicy(tileURL string) string {
	imgSrc := []string{"'self'", "data:", LeafletOrigin}
	if origin := tileOrigin(tileURL); origin != "" {
		imgSrc = append(imgSrc, origin)
	}

	directives := []string{
		"default-src 'self'",
		"script-src 'self' " + LeafletOrigin,
		"style-src 'self' " + LeafletOrigin,
		"img-src " + strings.Join(imgSrc, " "),
		"connect-src 'self'",
		"form-action 'self'",
		"base-uri 'none'",
		"frame-ancestors 'none'",
	}
	return strings.Join(directives, "; ")
}

func tileOrigin(tileURL string) string {
	u, err := url.Parse(strings.ReplaceAll(tileURL, "{s}", "x"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	host := u.Host
	if strings.Contains(tileURL, "{s}.") {
		_, rest, _ := strings.Cut(host, ".")
		host = "*." + rest
	}
	return u.Scheme + "://" + host
}

// RequireTLS rejects requests a proxy reports as plain HTTP via
// X-Forwarded-Proto. Requests without the header pass, as do all requests
// when enabled is false.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && proto != "https" {
				models.NewTLSRequired(GetRequestID(r.Context())).
					WithInstance(r.URL.Path).
					Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

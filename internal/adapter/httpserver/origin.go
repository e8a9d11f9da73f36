package httpserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
)

// newCheckOrigin builds the WebSocket origin check. Requests without an Origin header
// (non-browser clients) pass, as do the app's own origin and every configured CORS origin.
// A "*" entry allows any origin. In development localhost origins pass as well.
func newCheckOrigin(appURL string, allowedOrigins []string, isDevelopment bool) func(r *http.Request) bool {
	appOrigin := extractOrigin(appURL)
	allowAny := slices.Contains(allowedOrigins, "*")

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if origin == "" || allowAny {
			return true
		}

		if appOrigin != "" && origin == appOrigin {
			return true
		}

		if slices.Contains(allowedOrigins, origin) {
			return true
		}

		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.WarnContext(r.Context(), "WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}

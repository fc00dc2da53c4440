package middleware

import (
	"net/http"

	"volexplorer/internal/config"
	"volexplorer/internal/infrastructure"
	"volexplorer/internal/session"
)

// SessionResolver finds or creates the session for a client-supplied id
type SessionResolver interface {
	Resolve(id string) (*session.Session, bool)
}

// SessionConfig controls how the session id travels
type SessionConfig struct {
	CookieName string
	Secure     bool
}

// Session resolves the caller's portfolio session from the X-Session-ID
// header, the session cookie or the session query parameter, in that order.
// The resolved id is echoed in the header and cookie and stored in the
// request context.
func Session(store SessionResolver, cfg SessionConfig) func(next http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "vx_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := store.Resolve(requestedSessionID(r, cfg.CookieName))

			w.Header().Set(config.SessionHeader, sess.ID)
			http.SetCookie(w, &http.Cookie{
				Name:     cfg.CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := infrastructure.WithSessionID(r.Context(), sess.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestedSessionID(r *http.Request, cookieName string) string {
	if id := r.Header.Get(config.SessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get(config.SessionQueryParam)
}

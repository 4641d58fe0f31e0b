package session

import (
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// Cookies reads and writes the browser session id cookie.
type Cookies struct {
	name   string
	secure bool
	maxAge time.Duration
}

// NewCookies builds cookie helpers from session config.
func NewCookies(cfg config.SessionConfig) Cookies {
	name := cfg.CookieName
	if name == "" {
		name = "sf_sid"
	}
	return Cookies{name: name, secure: cfg.Secure, maxAge: cfg.TTL()}
}

// Name is the cookie name.
func (c Cookies) Name() string {
	return c.name
}

// Read returns the session id carried by r, or "".
func (c Cookies) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Write sets the session id cookie.
func (c Cookies) Write(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the cookie.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

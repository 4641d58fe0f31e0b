package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestCookiesRoundTrip(t *testing.T) {
	c := NewCookies(config.SessionConfig{CookieName: "sid", TTLMinutes: 60, Secure: true})

	rec := httptest.NewRecorder()
	c.Write(rec, "abc")
	res := rec.Result()
	cookies := res.Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	got := cookies[0]
	if got.Name != "sid" || got.Value != "abc" || !got.HttpOnly || !got.Secure || got.MaxAge != 3600 {
		t.Fatalf("unexpected cookie %+v", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(got)
	if sid := c.Read(req); sid != "abc" {
		t.Fatalf("read = %q", sid)
	}

	rec = httptest.NewRecorder()
	c.Clear(rec)
	if cleared := rec.Result().Cookies()[0]; cleared.MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %+v", cleared)
	}
}

func TestCookiesDefaultName(t *testing.T) {
	if name := NewCookies(config.SessionConfig{}).Name(); name != "sf_sid" {
		t.Fatalf("name = %q", name)
	}
	if sid := NewCookies(config.SessionConfig{}).Read(httptest.NewRequest(http.MethodGet, "/", nil)); sid != "" {
		t.Fatalf("expected empty sid, got %q", sid)
	}
}

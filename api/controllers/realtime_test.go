package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/api/views"
	"github.com/angelmondragon/storefront-backend/internal/messages"
	"github.com/angelmondragon/storefront-backend/internal/realtime"
)

type stubSubscriber struct {
	events       []realtime.Event
	unsubscribed bool
}

func (s *stubSubscriber) Subscribe() (string, <-chan realtime.Event, func()) {
	ch := make(chan realtime.Event, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return "client-1", ch, func() { s.unsubscribed = true }
}

type stubPatcher struct{}

func (stubPatcher) EventPatch(ev realtime.Event) (views.Patch, bool, error) {
	if ev.Name != realtime.EventProductsUpdated {
		return views.Patch{}, false, nil
	}
	return views.Patch{TargetID: views.TargetProducts, HTML: "<tr><td>Lamp</td></tr>"}, true, nil
}

type stubChat struct {
	joinedClient string
	joinedName   string
	postedUser   string
	postedText   string
}

func (c *stubChat) Join(ctx context.Context, clientID, username string) error {
	c.joinedClient = clientID
	c.joinedName = username
	return nil
}

func (c *stubChat) Post(ctx context.Context, user, text string) ([]messages.MessageDTO, error) {
	c.postedUser = user
	c.postedText = text
	return []messages.MessageDTO{}, nil
}

func mustEvent(t *testing.T, name string, payload any) realtime.Event {
	t.Helper()
	ev, err := realtime.NewEvent(name, payload)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	return ev
}

func TestRealtimeStreamForwardsTopicEvents(t *testing.T) {
	hub := &stubSubscriber{events: []realtime.Event{
		mustEvent(t, realtime.EventMessageLogs, []string{"hidden"}),
		mustEvent(t, realtime.EventProductsUpdated, []string{"lamp"}),
	}}
	handler := RealtimeStream(hub, stubPatcher{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/realtime/stream?topic=products", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	body := resp.Body.String()
	for _, want := range []string{"datastar-patch-signals", "clientId", "client-1", "datastar-patch-elements", "Lamp", realtime.EventProductsUpdated} {
		if !strings.Contains(body, want) {
			t.Fatalf("stream body missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "hidden") {
		t.Fatalf("event outside the topic was forwarded:\n%s", body)
	}
	if !hub.unsubscribed {
		t.Fatal("expected subscription to be released")
	}
}

func TestRealtimeStreamRejectsUnknownTopic(t *testing.T) {
	resp := httptest.NewRecorder()
	RealtimeStream(&stubSubscriber{}, nil, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/realtime/stream?topic=weather", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestRealtimeChatJSON(t *testing.T) {
	chat := &stubChat{}

	req := httptest.NewRequest(http.MethodPost, "/realtime/chat/authenticated", strings.NewReader(`{"clientId":"c1","username":"ana"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	RealtimeChatAuthenticated(chat, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if chat.joinedClient != "c1" || chat.joinedName != "ana" {
		t.Fatalf("unexpected join %q %q", chat.joinedClient, chat.joinedName)
	}

	req = httptest.NewRequest(http.MethodPost, "/realtime/chat/messages", strings.NewReader(`{"user":"ana","message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	RealtimeChatMessages(chat, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if chat.postedUser != "ana" || chat.postedText != "hi" {
		t.Fatalf("unexpected post %q %q", chat.postedUser, chat.postedText)
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := payload["messages"]; !ok {
		t.Fatalf("expected messages in %v", payload)
	}
}

func TestRealtimeChatDatastarSignals(t *testing.T) {
	chat := &stubChat{}

	req := httptest.NewRequest(http.MethodPost, "/realtime/chat/messages", strings.NewReader(`{"username":"ben","message":"hello","joined":true,"clientId":"c2"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Datastar-Request", "true")
	resp := httptest.NewRecorder()
	RealtimeChatMessages(chat, nil).ServeHTTP(resp, req)

	if chat.postedUser != "ben" || chat.postedText != "hello" {
		t.Fatalf("unexpected post %q %q", chat.postedUser, chat.postedText)
	}
	if !strings.Contains(resp.Body.String(), "datastar-patch-signals") {
		t.Fatalf("expected signal patch, got %s", resp.Body.String())
	}
}

func TestRealtimeChatRejectsBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/realtime/chat/messages", strings.NewReader("not json"))
	resp := httptest.NewRecorder()
	RealtimeChatMessages(&stubChat{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/api/views"
	"github.com/angelmondragon/storefront-backend/internal/messages"
	"github.com/angelmondragon/storefront-backend/internal/realtime"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Subscriber hands out per-connection event channels.
type Subscriber interface {
	Subscribe() (string, <-chan realtime.Event, func())
}

// ChatRoom is the chat surface the realtime endpoints drive.
type ChatRoom interface {
	Join(ctx context.Context, clientID, username string) error
	Post(ctx context.Context, user, text string) ([]messages.MessageDTO, error)
}

// EventPatcher turns events into HTML patches.
type EventPatcher interface {
	EventPatch(ev realtime.Event) (views.Patch, bool, error)
}

const (
	maxChatName    = 64
	maxChatMessage = 500
)

var streamTopics = map[string][]string{
	"products": {realtime.EventProductsUpdated},
	"chat":     {realtime.EventMessageLogs, realtime.EventNewUserConnected},
}

type chatSignals struct {
	ClientID string `json:"clientId"`
	Username string `json:"username"`
	User     string `json:"user"`
	Message  string `json:"message"`
}

func (s chatSignals) author() string {
	if name := strings.TrimSpace(s.Username); name != "" {
		return name
	}
	return strings.TrimSpace(s.User)
}

// RealtimeStream keeps an SSE connection open and forwards hub events as
// datastar element patches plus a lastEvent signal carrying the raw payload.
// The first patch sets the clientId signal.
func RealtimeStream(hub Subscriber, patcher EventPatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if hub == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "realtime hub unavailable"))
			return
		}

		var allowed map[string]bool
		if topic := r.URL.Query().Get("topic"); topic != "" {
			names, ok := streamTopics[topic]
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown topic %q", topic))
				return
			}
			allowed = make(map[string]bool, len(names))
			for _, n := range names {
				allowed[n] = true
			}
		}

		clientID, events, unsubscribe := hub.Subscribe()
		defer unsubscribe()
		if logg != nil {
			ctx = logg.WithClientID(ctx, clientID)
			logg.Debug(ctx, "realtime.stream_opened")
		}

		sse := datastar.NewSSE(w, r)
		if err := sse.MarshalAndPatchSignals(map[string]any{"clientId": clientID, "lastEvent": realtime.EventConnected}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				if logg != nil {
					logg.Debug(ctx, "realtime.stream_closed")
				}
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if allowed != nil && !allowed[ev.Name] {
					continue
				}
				if err := sendEvent(sse, patcher, ev); err != nil {
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "error", err.Error()), "realtime.stream_write_failed")
					}
					return
				}
			}
		}
	}
}

func sendEvent(sse *datastar.ServerSentEventGenerator, patcher EventPatcher, ev realtime.Event) error {
	if patcher != nil {
		patch, ok, err := patcher.EventPatch(ev)
		if err != nil {
			return err
		}
		if ok {
			if err := sse.PatchElements(patch.HTML, datastar.WithSelectorID(patch.TargetID), datastar.WithModeInner()); err != nil {
				return err
			}
		}
	}
	return sse.MarshalAndPatchSignals(map[string]any{
		"lastEvent": ev.Name,
		"payload":   json.RawMessage(ev.Payload),
	})
}

// RealtimeChatAuthenticated joins a stream client to the chat.
func RealtimeChatAuthenticated(chat ChatRoom, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if chat == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat unavailable"))
			return
		}

		signals, err := readChatSignals(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := chat.Join(ctx, signals.ClientID, signals.author()); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if isDatastar(r) {
			sse := datastar.NewSSE(w, r)
			_ = sse.MarshalAndPatchSignals(map[string]any{"joined": true})
			return
		}
		responses.WriteMessage(w, http.StatusOK, "joined", nil)
	}
}

// RealtimeChatMessages stores a chat line and broadcasts the log.
func RealtimeChatMessages(chat ChatRoom, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if chat == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat unavailable"))
			return
		}

		signals, err := readChatSignals(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		history, err := chat.Post(ctx, signals.author(), signals.Message)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if isDatastar(r) {
			sse := datastar.NewSSE(w, r)
			_ = sse.MarshalAndPatchSignals(map[string]any{"message": ""})
			return
		}
		responses.WriteSuccess(w, map[string]any{"messages": history})
	}
}

func isDatastar(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}

// readChatSignals accepts datastar signals or a plain JSON body. Signals carry
// the whole page store, so unknown keys are ignored.
func readChatSignals(r *http.Request) (chatSignals, error) {
	var s chatSignals
	if isDatastar(r) {
		if err := datastar.ReadSignals(r, &s); err != nil {
			return s, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid signals")
		}
	} else if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		return s, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid json body")
	}
	s.Username = validators.SanitizeText(s.Username, maxChatName)
	s.User = validators.SanitizeText(s.User, maxChatName)
	s.Message = validators.SanitizeText(s.Message, maxChatMessage)
	return s, nil
}

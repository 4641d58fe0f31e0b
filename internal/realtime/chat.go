package realtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/messages"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Chat implements the join and post flows of the web chat.
type Chat struct {
	messages messages.Service
	relay    Relay
	logg     *logger.Logger
}

// NewChat wires the chat flows.
func NewChat(msgs messages.Service, relay Relay, logg *logger.Logger) (*Chat, error) {
	if msgs == nil {
		return nil, fmt.Errorf("message service required")
	}
	if relay == nil {
		return nil, fmt.Errorf("relay required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Chat{messages: msgs, relay: relay, logg: logg}, nil
}

// Join sends the full history to clientID and announces username to every
// other client.
func (c *Chat) Join(ctx context.Context, clientID, username string) error {
	username = strings.TrimSpace(username)
	if clientID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}
	if username == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}

	history, err := c.messages.ListMessages(ctx)
	if err != nil {
		return err
	}
	logs, err := NewEvent(EventMessageLogs, history)
	if err != nil {
		return err
	}
	logs.Target = clientID
	if err := c.relay.Publish(ctx, logs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish message logs")
	}

	joined, err := NewEvent(EventNewUserConnected, username)
	if err != nil {
		return err
	}
	joined.Exclude = clientID
	if err := c.relay.Publish(ctx, joined); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish join notice")
	}

	c.logg.Info(c.logg.WithFields(c.logg.WithClientID(ctx, clientID), map[string]any{"username": username}), "chat.joined")
	return nil
}

// Post stores the message then broadcasts the whole log to everyone,
// including the sender.
func (c *Chat) Post(ctx context.Context, user, text string) ([]messages.MessageDTO, error) {
	if _, err := c.messages.AddMessage(ctx, user, text); err != nil {
		return nil, err
	}
	history, err := c.messages.ListMessages(ctx)
	if err != nil {
		return nil, err
	}
	ev, err := NewEvent(EventMessageLogs, history)
	if err != nil {
		return nil, err
	}
	if err := c.relay.Publish(ctx, ev); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish message logs")
	}
	return history, nil
}

// History returns the stored log.
func (c *Chat) History(ctx context.Context) ([]messages.MessageDTO, error) {
	return c.messages.ListMessages(ctx)
}

package messages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// MessageDTO is one chat line as sent to clients.
type MessageDTO struct {
	ID        uuid.UUID `json:"id"`
	User      string    `json:"user"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service exposes the append-only chat log.
type Service interface {
	AddMessage(ctx context.Context, user, text string) (*MessageDTO, error)
	ListMessages(ctx context.Context) ([]MessageDTO, error)
}

type messageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	List(ctx context.Context) ([]models.Message, error)
}

type service struct {
	repo messageStore
}

// NewService constructs the message service.
func NewService(repo messageStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("message repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) AddMessage(ctx context.Context, user, text string) (*MessageDTO, error) {
	user = strings.TrimSpace(user)
	text = strings.TrimSpace(text)
	if user == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is required")
	}
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}

	msg := &models.Message{User: user, Text: text}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert message")
	}
	dto := fromModel(msg)
	return &dto, nil
}

func (s *service) ListMessages(ctx context.Context) ([]MessageDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list messages")
	}
	out := make([]MessageDTO, 0, len(rows))
	for i := range rows {
		out = append(out, fromModel(&rows[i]))
	}
	return out, nil
}

func fromModel(m *models.Message) MessageDTO {
	return MessageDTO{ID: m.ID, User: m.User, Message: m.Text, CreatedAt: m.CreatedAt}
}

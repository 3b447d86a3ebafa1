// Package chat carries the conversation attached to every order between the
// client, shop managers and automated status notices.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joao-fontenele/textile-shop/internal/auth"
	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/storage"
)

const (
	MaxBodyLength = 4000
	systemAuthor  = "system"
)

type Service struct {
	store storage.Store
	now   func() time.Time
}

func NewService(store storage.Store) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) chat(ctx context.Context, id auth.Identity, chatID string) (*domain.Chat, error) {
	c, err := s.store.GetChat(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.NewNotFoundError("chat", chatID)
	}
	if err != nil {
		return nil, fmt.Errorf("get chat %s: %w", chatID, err)
	}
	if !id.CanAccess(c.ClientID) {
		return nil, domain.NewForbiddenError("chat belongs to another client")
	}
	return c, nil
}

// Messages returns the chat history, oldest first.
func (s *Service) Messages(ctx context.Context, id auth.Identity, chatID string) ([]domain.ChatMessage, error) {
	if _, err := s.chat(ctx, id, chatID); err != nil {
		return nil, err
	}

	msgs, err := s.store.ListChatMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list chat %s messages: %w", chatID, err)
	}
	return msgs, nil
}

// Post appends a message written by the chat's client or by a manager.
func (s *Service) Post(ctx context.Context, id auth.Identity, chatID, body string) (*domain.ChatMessage, error) {
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}

	c, err := s.chat(ctx, id, chatID)
	if err != nil {
		return nil, err
	}

	role := domain.AuthorClient
	if id.Admin && id.ClientID != c.ClientID {
		role = domain.AuthorManager
	}

	msg := &domain.ChatMessage{
		ID:         uuid.New().String(),
		ChatID:     c.ID,
		AuthorID:   id.ClientID,
		AuthorRole: role,
		Body:       body,
		CreatedAt:  s.now(),
	}
	if err := s.add(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// PostSystem appends an automated notice to the chat of an order.
func (s *Service) PostSystem(ctx context.Context, orderID, body string) (*domain.ChatMessage, error) {
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}

	c, err := s.store.GetChatByOrder(ctx, orderID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.NewNotFoundError("chat for order", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("get chat of order %s: %w", orderID, err)
	}

	msg := &domain.ChatMessage{
		ID:         uuid.New().String(),
		ChatID:     c.ID,
		AuthorID:   systemAuthor,
		AuthorRole: domain.AuthorSystem,
		Body:       body,
		CreatedAt:  s.now(),
	}
	if err := s.add(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Service) add(ctx context.Context, msg *domain.ChatMessage) error {
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		return tx.AddChatMessage(ctx, msg)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return domain.NewNotFoundError("chat", msg.ChatID)
	}
	if err != nil {
		return fmt.Errorf("add message to chat %s: %w", msg.ChatID, err)
	}
	return nil
}

func validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", domain.NewValidationError("body", "cannot be empty")
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return "", domain.NewValidationError("body", fmt.Sprintf("cannot exceed %d characters", MaxBodyLength))
	}
	return body, nil
}

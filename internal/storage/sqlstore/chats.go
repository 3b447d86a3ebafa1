package sqlstore

import (
	"context"

	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/storage"
)

func (t *tx) CreateChat(ctx context.Context, chat *domain.Chat) error {
	_, err := t.exec(ctx, `
		INSERT INTO chats (id, order_id, client_id, subject, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, chat.ID, chat.OrderID, chat.ClientID, chat.Subject, chat.CreatedAt)
	return err
}

func (t *tx) AddChatMessage(ctx context.Context, msg *domain.ChatMessage) error {
	var exists int
	if err := t.queryRow(ctx, "SELECT 1 FROM chats WHERE id = ?", msg.ChatID).Scan(&exists); err != nil {
		return notFound(err)
	}

	_, err := t.exec(ctx, `
		INSERT INTO chat_messages (id, chat_id, author_id, author_role, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ChatID, msg.AuthorID, string(msg.AuthorRole), msg.Body, msg.CreatedAt)
	return err
}

func (t *tx) getChat(ctx context.Context, column, value string) (*domain.Chat, error) {
	var c domain.Chat
	err := t.queryRow(ctx, `
		SELECT id, order_id, client_id, subject, created_at
		FROM chats
		WHERE `+column+` = ?
	`, value).Scan(&c.ID, &c.OrderID, &c.ClientID, &c.Subject, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	return s.reader().getChat(ctx, "id", id)
}

func (s *Store) GetChatByOrder(ctx context.Context, orderID string) (*domain.Chat, error) {
	return s.reader().getChat(ctx, "order_id", orderID)
}

func (s *Store) ListChatMessages(ctx context.Context, chatID string) ([]domain.ChatMessage, error) {
	r := s.reader()
	if _, err := r.getChat(ctx, "id", chatID); err != nil {
		return nil, err
	}

	rows, err := r.query(ctx, `
		SELECT id, chat_id, author_id, author_role, body, created_at
		FROM chat_messages
		WHERE chat_id = ?
		ORDER BY created_at, id
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.AuthorID, &m.AuthorRole, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

var _ storage.Tx = (*tx)(nil)

// Package notify turns order events into system messages on the order chat.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/textile-shop/internal/domain"
)

type ChatPoster interface {
	PostSystem(ctx context.Context, orderID, body string) (*domain.ChatMessage, error)
}

type NotificationHandler struct {
	chats  ChatPoster
	logger *slog.Logger
}

func NewNotificationHandler(chats ChatPoster, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		chats:  chats,
		logger: logger,
	}
}

func (h *NotificationHandler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping malformed order created event", "error", err)
		return nil
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "client_id", event.ClientID)

	body := fmt.Sprintf("Order %s has been placed", event.PublicID)
	return h.post(ctx, event.OrderID, body)
}

func (h *NotificationHandler) HandleStatusChanged(ctx context.Context, payload []byte) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping malformed order status event", "error", err)
		return nil
	}

	h.logger.Info("processing order status event", "order_id", event.OrderID, "from", event.From, "to", event.To)

	body := fmt.Sprintf("Order %s status changed from %s to %s", event.PublicID, event.From, event.To)
	return h.post(ctx, event.OrderID, body)
}

// post writes the notice. An order without a chat cannot be notified and is
// skipped; any other failure is returned so the event is redelivered.
func (h *NotificationHandler) post(ctx context.Context, orderID, body string) error {
	msg, err := h.chats.PostSystem(ctx, orderID, body)
	if domain.IsNotFoundError(err) {
		h.logger.Warn("no chat for order, skipping notification", "order_id", orderID)
		return nil
	}
	if err != nil {
		h.logger.Error("failed to post chat notification", "error", err, "order_id", orderID)
		return fmt.Errorf("post notification for order %s: %w", orderID, err)
	}

	h.logger.Info("order notification posted", "order_id", orderID, "message_id", msg.ID)
	return nil
}

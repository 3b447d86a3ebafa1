package chat

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/textile-shop/internal/auth"
	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/httpapi"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type messagesResponse struct {
	ChatID   string               `json:"chat_id"`
	Messages []domain.ChatMessage `json:"messages"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	chatID := r.PathValue("chatId")

	msgs, err := h.service.Messages(r.Context(), id, chatID)
	if err != nil {
		httpapi.WriteServiceError(w, h.logger, err, "failed to list chat messages", "chat_id", chatID)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}

	h.logger.Info("chat messages listed", "chat_id", chatID, "count", len(msgs))
	httpapi.WriteJSON(w, h.logger, http.StatusOK, messagesResponse{ChatID: chatID, Messages: msgs})
}

type postRequest struct {
	Body string `json:"body"`
}

func (h *Handler) HandlePost(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	chatID := r.PathValue("chatId")

	var req postRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.service.Post(r.Context(), id, chatID, req.Body)
	if err != nil {
		httpapi.WriteServiceError(w, h.logger, err, "failed to post chat message", "chat_id", chatID)
		return
	}

	h.logger.Info("chat message posted", "chat_id", chatID, "message_id", msg.ID, "author_role", msg.AuthorRole)
	httpapi.WriteJSON(w, h.logger, http.StatusCreated, msg)
}

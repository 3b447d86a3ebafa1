package orders

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

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req CreateInput
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Create(r.Context(), id, req)
	if err != nil {
		httpapi.WriteServiceError(w, h.logger, err, "failed to create order", "client_id", id.ClientID)
		return
	}

	h.logger.Info("order created", "order_id", result.OrderID, "public_id", result.PublicID, "client_id", id.ClientID, "total_amount", result.TotalAmount)
	httpapi.WriteJSON(w, h.logger, http.StatusCreated, result)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	orderID := r.PathValue("orderId")
	if orderID == "" {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.service.Get(r.Context(), id, orderID)
	if err != nil {
		httpapi.WriteServiceError(w, h.logger, err, "failed to get order", "order_id", orderID)
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	orderID := r.PathValue("orderId")
	if orderID == "" {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, orderID, req.Status)
	if err != nil {
		httpapi.WriteServiceError(w, h.logger, err, "failed to update order status", "order_id", orderID)
		return
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	page, limit, err := httpapi.ParsePage(r)
	if err != nil {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	filter := domain.OrderFilter{
		ClientID: r.URL.Query().Get("clientId"),
		Page:     page,
		Limit:    limit,
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := domain.ParseOrderStatus(s)
		if err != nil {
			httpapi.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}

	orders, total, err := h.service.List(r.Context(), id, filter)
	if err != nil {
		httpapi.WriteServiceError(w, h.logger, err, "failed to list orders")
		return
	}

	h.logger.Info("orders listed", "count", len(orders), "total", total)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, httpapi.Page[domain.Order]{
		Data:       orders,
		Pagination: httpapi.NewPagination(total, page, limit),
	})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, h.logger, err, "failed to compute order stats")
		return
	}

	h.logger.Info("order stats computed", "total_orders", stats.TotalOrders)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, stats)
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, h.logger, http.StatusUnauthorized, "missing or invalid client authentication")
	}
	return id, ok
}

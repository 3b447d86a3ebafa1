package catalog

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/textile-shop/internal/auth"
	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/httpapi"
	"github.com/joao-fontenele/textile-shop/internal/storage"
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

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit, err := httpapi.ParsePage(r)
	if err != nil {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	filter := storage.ProductFilter{
		ProductType: domain.ProductType(r.URL.Query().Get("type")),
		Page:        page,
		Limit:       limit,
	}

	products, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpapi.WriteServiceError(w, h.logger, err, "failed to list products")
		return
	}

	h.logger.Info("products listed", "count", len(products), "total", total)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, httpapi.Page[domain.Product]{
		Data:       products,
		Pagination: httpapi.NewPagination(total, page, limit),
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("productId")
	if id == "" {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, h.logger, err, "failed to get product", "product_id", id)
		return
	}

	h.logger.Info("product retrieved", "product_id", product.ID)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req ProductInput
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpapi.WriteServiceError(w, h.logger, err, "failed to create product")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "public_id", product.PublicID)
	httpapi.WriteJSON(w, h.logger, http.StatusCreated, product)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id := r.PathValue("productId")
	var req ProductInput
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpapi.WriteServiceError(w, h.logger, err, "failed to update product", "product_id", id)
		return
	}

	h.logger.Info("product updated", "product_id", product.ID)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, product)
}

type adjustStockRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

func (h *Handler) HandleAdjustStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id := r.PathValue("productId")
	var req adjustStockRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	level, err := h.service.AdjustAvailability(r.Context(), id, req.Delta)
	if err != nil {
		httpapi.WriteServiceError(w, h.logger, err, "failed to adjust stock", "product_id", id, "delta", req.Delta)
		return
	}

	h.logger.Info("stock adjusted", "product_id", level.ProductID, "delta", req.Delta, "available", level.Available)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, level)
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, h.logger, http.StatusUnauthorized, "missing or invalid client authentication")
		return false
	}
	if !id.Admin {
		httpapi.WriteError(w, h.logger, http.StatusForbidden, "admin access required")
		return false
	}
	return true
}

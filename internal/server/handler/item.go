package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

// ItemService defines what the item handler requires from the lifecycle
// core. Declared locally so the handler package does not depend on the
// concrete service implementation.
type ItemService interface {
	ListItem(ctx context.Context, seller domain.Identity, price int64, description string, durationSeconds int64) (int64, error)
	BuyItem(ctx context.Context, itemID int64, buyer domain.Identity) (bool, error)
	UnlistItem(ctx context.Context, itemID int64, seller domain.Identity) (bool, error)
	ViewItem(ctx context.Context, itemID int64) (domain.Item, error)
	ListBySeller(ctx context.Context, seller domain.Identity) ([]domain.Item, error)
}

// ItemHandler serves the marketplace item endpoints.
type ItemHandler struct {
	items  ItemService
	logger *slog.Logger
}

// NewItemHandler creates an ItemHandler with the given service and logger.
func NewItemHandler(items ItemService, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		items:  items,
		logger: logger,
	}
}

type listItemRequest struct {
	Seller          string `json:"seller"`
	Price           int64  `json:"price"`
	Description     string `json:"description"`
	DurationSeconds int64  `json:"duration_seconds"`
}

type listItemResponse struct {
	ItemID int64 `json:"item_id"`
}

// ListItem creates a new fixed-price listing.
// POST /api/items
func (h *ItemHandler) ListItem(w http.ResponseWriter, r *http.Request) {
	var req listItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Seller == "" {
		writeError(w, http.StatusBadRequest, "missing seller")
		return
	}

	itemID, err := h.items.ListItem(r.Context(),
		domain.Identity(req.Seller), req.Price, req.Description, req.DurationSeconds)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: list item failed",
			slog.String("seller", req.Seller),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, listItemResponse{ItemID: itemID})
}

type buyItemRequest struct {
	Buyer string `json:"buyer"`
}

// BuyItem purchases a listed item at its fixed price.
// POST /api/items/{id}/buy
func (h *ItemHandler) BuyItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathItemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req buyItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Buyer == "" {
		writeError(w, http.StatusBadRequest, "missing buyer")
		return
	}

	ok, err := h.items.BuyItem(r.Context(), itemID, domain.Identity(req.Buyer))
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: buy item failed",
			slog.Int64("item_id", itemID),
			slog.String("buyer", req.Buyer),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

type unlistItemRequest struct {
	Seller string `json:"seller"`
}

// UnlistItem withdraws a listing. Seller only.
// POST /api/items/{id}/unlist
func (h *ItemHandler) UnlistItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathItemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req unlistItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Seller == "" {
		writeError(w, http.StatusBadRequest, "missing seller")
		return
	}

	ok, err := h.items.UnlistItem(r.Context(), itemID, domain.Identity(req.Seller))
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: unlist item failed",
			slog.Int64("item_id", itemID),
			slog.String("seller", req.Seller),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

// ViewItem returns the item record. No authorization required.
// GET /api/items/{id}
func (h *ItemHandler) ViewItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathItemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.items.ViewItem(r.Context(), itemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

type listBySellerResponse struct {
	Seller string        `json:"seller"`
	Items  []domain.Item `json:"items"`
}

// ListBySeller returns every item a seller has listed, in listing order.
// GET /api/items?seller=0x...
func (h *ItemHandler) ListBySeller(w http.ResponseWriter, r *http.Request) {
	seller := r.URL.Query().Get("seller")
	if seller == "" {
		writeError(w, http.StatusBadRequest, "missing seller query parameter")
		return
	}

	items, err := h.items.ListBySeller(r.Context(), domain.Identity(seller))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list by seller failed",
			slog.String("seller", seller),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []domain.Item{}
	}

	writeJSON(w, http.StatusOK, listBySellerResponse{
		Seller: seller,
		Items:  items,
	})
}

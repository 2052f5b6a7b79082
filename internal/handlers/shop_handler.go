package handlers

import (
	"net/http"

	"heritagequest/internal/logger"
	"heritagequest/internal/models"
	"heritagequest/internal/service"
	"heritagequest/internal/utils"
)

// ShopHandler serves the shop and wallet endpoints
type ShopHandler struct {
	shop *service.ShopService
	log  *logger.Logger
}

// NewShopHandler creates a new shop handler
func NewShopHandler(shop *service.ShopService, log *logger.Logger) *ShopHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &ShopHandler{shop: shop, log: log}
}

// ListItems returns the shop catalog
func (h *ShopHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.shop.Items())
}

// Purchase buys an item for the caller
func (h *ShopHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")
	if err := utils.ValidateSlug("itemId", itemID); err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}

	result, err := h.shop.Purchase(r.Context(), GetUserFromContext(r.Context()), itemID)
	if err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	respondWithJSON(w, http.StatusCreated, result)
}

// Wallet lists the caller's purchases
func (h *ShopHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	items, err := h.shop.Wallet(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	if items == nil {
		items = []models.WalletItem{}
	}
	respondWithJSON(w, http.StatusOK, items)
}

// UseItem spends one of the caller's wallet items
func (h *ShopHandler) UseItem(w http.ResponseWriter, r *http.Request) {
	result, err := h.shop.UseItem(r.Context(), GetUserFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mmeshcher/grocerymart/internal/validation"
)

type addToCartRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"min=1,max=10000"`
}

type updateCartRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"max=10000"`
}

type removedResponse struct {
	Removed bool `json:"removed"`
}

// GetCart возвращает корзину текущего пользователя.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	cart, err := h.service.GetCart(r.Context(), caller.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// AddToCart добавляет товар в корзину текущего пользователя.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req addToCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.service.AddToCart(r.Context(), caller.UserID, uuid.MustParse(req.ProductID), req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// UpdateCartItem меняет количество позиции. Количество меньше единицы удаляет позицию.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req updateCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.service.UpdateCartItem(r.Context(), caller.UserID, uuid.MustParse(req.ProductID), req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if item == nil {
		writeJSON(w, http.StatusOK, removedResponse{Removed: true})
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// RemoveFromCart удаляет позицию из корзины.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}

	if err := h.service.RemoveFromCart(r.Context(), caller.UserID, productID); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearCart очищает корзину.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	if err := h.service.ClearCart(r.Context(), caller.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/avoronov/cartstock/internal/domain/cart"
)

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCart(w, http.StatusOK, c)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cart.ErrInvalidQuantity)
		return
	}
	if req.ProductID == "" || req.Quantity < 1 {
		writeError(w, cart.ErrInvalidQuantity)
		return
	}

	c, err := h.carts.AddItem(r.Context(), r.PathValue("userID"), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCart(w, http.StatusOK, c)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cart.ErrInvalidQuantity)
		return
	}

	c, err := h.carts.UpdateItemQuantity(r.Context(),
		r.PathValue("userID"), r.PathValue("productID"), req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCart(w, http.StatusOK, c)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), r.PathValue("userID"), r.PathValue("productID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCart(w, http.StatusOK, c)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Clear(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCart(w, http.StatusOK, c)
}

func writeCart(w http.ResponseWriter, status int, c *cart.Cart) {
	writeJSON(w, status, func(e *jx.Encoder) {
		encodeCart(e, c)
	})
}

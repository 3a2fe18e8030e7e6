package httpserver

import (
	"net/http"
)

type addCartItemRequest struct {
	ProductID int64  `json:"product_id" validate:"required"`
	VariantID *int64 `json:"variant_id"`
	Quantity  int64  `json:"quantity" validate:"required,gte=1"`
}

type updateCartItemRequest struct {
	Quantity int64 `json:"quantity"`
}

func (s *Server) handleListCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lines, err := s.cart.Items(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lines)
	}
}

func (s *Server) handleAddCartItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addCartItemRequest
		if err := decodeValid(r, &req); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		item, err := s.cart.Add(r.Context(), CurrentUser(r).ID, req.ProductID, req.VariantID, req.Quantity)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

func (s *Server) handleUpdateCartItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDetail(w, http.StatusNotFound, "not found")
			return
		}
		var req updateCartItemRequest
		if err := decodeValid(r, &req); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		item, err := s.cart.SetQuantity(r.Context(), CurrentUser(r).ID, id, req.Quantity)
		if err != nil {
			writeError(w, err)
			return
		}
		if item == nil {
			// Quantity dropped to zero; the line is gone.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (s *Server) handleDeleteCartItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDetail(w, http.StatusNotFound, "not found")
			return
		}
		if err := s.cart.Remove(r.Context(), CurrentUser(r).ID, id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleCheckout converts the caller's cart into an order. Stock shortfalls
// and an empty cart come back as 400 with a human-readable detail.
func (s *Server) handleCheckout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := s.checkout.Checkout(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newOrderBody(order))
	}
}

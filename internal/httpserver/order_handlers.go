package httpserver

import (
	"net/http"

	"bazaar/internal/domain"
)

// orderBody adds the derived total to the serialized order.
type orderBody struct {
	*domain.Order
	TotalAmount float64 `json:"total_amount"`
}

func newOrderBody(o *domain.Order) *orderBody {
	return &orderBody{Order: o, TotalAmount: o.TotalAmount()}
}

func (s *Server) handleListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := s.orders.ListFor(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, err)
			return
		}
		bodies := make([]*orderBody, 0, len(orders))
		for _, o := range orders {
			bodies = append(bodies, newOrderBody(o))
		}
		writeJSON(w, http.StatusOK, bodies)
	}
}

func (s *Server) handleGetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeDetail(w, http.StatusNotFound, "not found")
			return
		}
		order, err := s.orders.GetForUser(r.Context(), id, CurrentUser(r).ID)
		if err != nil {
			writeError(w, err)
			return
		}
		if order == nil {
			writeDetail(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, newOrderBody(order))
	}
}

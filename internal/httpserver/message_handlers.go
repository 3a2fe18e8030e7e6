package httpserver

import (
	"net/http"
	"strconv"
)

type sendMessageRequest struct {
	RecipientID int64  `json:"recipient_id" validate:"required"`
	ProductID   *int64 `json:"product_id"`
	Content     string `json:"content" validate:"required"`
}

// handleMessageHistory returns the conversation with a partner and marks the
// partner's messages as read as a side effect.
func (s *Server) handleMessageHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		partnerID, err := strconv.ParseInt(q.Get("partner_id"), 10, 64)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "partner_id is required")
			return
		}
		var productID *int64
		if raw := q.Get("product_id"); raw != "" {
			pid, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeDetail(w, http.StatusBadRequest, "invalid product filter")
				return
			}
			productID = &pid
		}

		msgs, err := s.messages.History(r.Context(), CurrentUser(r).ID, partnerID, productID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func (s *Server) handleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		if err := decodeValid(r, &req); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		msg, err := s.messages.Send(r.Context(), CurrentUser(r).ID, req.RecipientID, req.ProductID, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func (s *Server) handleUnreadCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := s.messages.UnreadCount(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"count": count})
	}
}

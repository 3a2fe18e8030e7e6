package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bazaar/internal/domain"
	"bazaar/internal/security"
	"bazaar/internal/service"
)

// RoomKey derives the canonical group name of a two-party conversation,
// symmetric in participant order. Chats without a product id share one room
// across all product-less conversations of the pair.
func RoomKey(a, b int64, productID *int64) string {
	if a > b {
		a, b = b, a
	}
	if productID != nil {
		return fmt.Sprintf("chat_%d_%d_%d", a, b, *productID)
	}
	return fmt.Sprintf("chat_%d_%d", a, b)
}

// NotifyGroup derives a user's personal notification group name.
func NotifyGroup(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

// roomEvent is the inbound frame of the chat protocol. Exactly one field is
// expected per frame; typing takes precedence, matching the event order of
// the protocol.
type roomEvent struct {
	Typing  *bool   `json:"typing"`
	Content *string `json:"content"`
}

// ChatHandler returns the handler for the per-conversation chat socket at
// /ws/chat/{partnerID} and /ws/chat/{partnerID}/{productID}.
//
// The session authenticates via ?token=, joins the room group, and then
// dispatches inbound frames sequentially: typing indicators are relayed
// without persistence; content frames are persisted before being fanned out
// to the room (excluding the originating connection) and condensed into a
// best-effort push to the recipient's notification group.
func ChatHandler(
	reg *Registry,
	tokens *security.TokenService,
	users domain.UserRepository,
	messages *service.MessageService,
	allowedOrigins []string,
	log *zap.Logger,
) http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: makeCheckOrigin(allowedOrigins)}

	return func(w http.ResponseWriter, r *http.Request) {
		user, err := authenticate(r, tokens, users)
		if err != nil {
			// Fail closed: no error frame, no diagnostics.
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		partnerID, err := strconv.ParseInt(chi.URLParam(r, "partnerID"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var productID *int64
		if raw := chi.URLParam(r, "productID"); raw != "" {
			pid, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			productID = &pid
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		client := NewClient(user.ID, conn, log)
		go client.WritePump()

		room := RoomKey(user.ID, partnerID, productID)
		reg.Join(room, client)
		defer func() {
			reg.Leave(room, client)
			reg.Broadcast(room, map[string]any{
				"event":   "presence",
				"user_id": user.ID,
				"online":  false,
			}, nil)
			client.Close()
		}()

		reg.Broadcast(room, map[string]any{
			"event":   "presence",
			"user_id": user.ID,
			"online":  true,
		}, nil)

		// The session outlives the handshake request: any deadline a
		// middleware put on the request context must not expire the
		// persistence calls of later frames.
		ctx := context.WithoutCancel(r.Context())
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var evt roomEvent
			if err := json.Unmarshal(data, &evt); err != nil {
				// Malformed frame: drop it, keep the connection.
				continue
			}

			switch {
			case evt.Typing != nil:
				reg.Broadcast(room, map[string]any{
					"event":   "typing",
					"user_id": user.ID,
					"typing":  *evt.Typing,
				}, nil)

			case evt.Content != nil:
				msg, err := messages.Send(ctx, user.ID, partnerID, productID, *evt.Content)
				if err != nil {
					// Empty content and missing recipients are dropped
					// silently; persistence failures abort the send but
					// leave the session open.
					if err != domain.ErrInvalidInput {
						log.Error("persist chat message",
							zap.Int64("sender_id", user.ID),
							zap.Int64("recipient_id", partnerID),
							zap.Error(err),
						)
					}
					continue
				}

				partner, err := users.GetByID(ctx, partnerID)
				if err != nil || partner == nil {
					continue
				}

				reg.Broadcast(room, map[string]any{
					"event":      "message",
					"id":         msg.ID,
					"content":    msg.Content,
					"sender":     user.Public(),
					"recipient":  partner.Public(),
					"product":    msg.ProductID,
					"created_at": msg.CreatedAt,
				}, client)

				// Secondary push; its loss must never fail the send.
				reg.Broadcast(NotifyGroup(partnerID), map[string]any{
					"event": "new_message",
					"message": map[string]any{
						"id":         msg.ID,
						"snippet":    service.Snippet(msg.Content),
						"sender":     user.Public(),
						"product":    msg.ProductID,
						"created_at": msg.CreatedAt,
					},
				}, nil)
			}
		}
	}
}

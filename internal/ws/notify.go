package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bazaar/internal/domain"
	"bazaar/internal/security"
	"bazaar/internal/service"
)

// notifyEvent is the inbound frame of the notification channel.
type notifyEvent struct {
	Type string `json:"type"`
}

// NotificationsHandler returns the handler for the per-user notification
// socket at /ws/notifications. Clients subscribe to their personal group and
// receive new_message pushes from chat sessions; the channel also answers
// ping and unread-count probes.
func NotificationsHandler(
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
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		client := NewClient(user.ID, conn, log)
		go client.WritePump()

		group := NotifyGroup(user.ID)
		reg.Join(group, client)
		defer func() {
			reg.Leave(group, client)
			client.Close()
		}()

		// Unread-count reads happen for the whole life of the session, long
		// after any request deadline set upstream would have fired.
		ctx := context.WithoutCancel(r.Context())
		sendUnreadCount := func() {
			count, err := messages.UnreadCount(ctx, user.ID)
			if err != nil {
				log.Error("unread count", zap.Int64("user_id", user.ID), zap.Error(err))
				return
			}
			payload, _ := json.Marshal(map[string]any{
				"event": "unread_count",
				"count": count,
			})
			client.Queue(payload)
		}

		sendUnreadCount()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var evt notifyEvent
			if err := json.Unmarshal(data, &evt); err != nil {
				continue
			}

			switch evt.Type {
			case "ping":
				payload, _ := json.Marshal(map[string]any{"event": "pong"})
				client.Queue(payload)
			case "get_unread_count":
				sendUnreadCount()
			}
		}
	}
}

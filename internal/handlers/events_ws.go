// internal/handlers/events_ws.go
package handlers

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// EventSubscriber opens a subscription on the game event channel.
// Implemented by pubsub.Redis.
type EventSubscriber interface {
	Subscribe(ctx context.Context) *redis.PubSub
}

// EventStreamHandler upgrades the connection to WebSocket and relays every
// published game event to the observer. Read-only from the client's point of
// view; closing the socket ends the relay.
func EventStreamHandler(logger *logrus.Logger, sub EventSubscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "event stream closed")

		// CloseRead pumps the read side so client closes cancel the context.
		ctx := c.CloseRead(r.Context())

		ps := sub.Subscribe(ctx)
		defer ps.Close()

		logger.Infof("event stream observer connected from %s", r.RemoteAddr)
		for {
			select {
			case <-ctx.Done():
				c.Close(websocket.StatusNormalClosure, "")
				return
			case msg, ok := <-ps.Channel():
				if !ok {
					c.Close(websocket.StatusNormalClosure, "")
					return
				}
				if err := c.Write(ctx, websocket.MessageText, []byte(msg.Payload)); err != nil {
					logger.Infof("event stream observer %s dropped: %v", r.RemoteAddr, err)
					return
				}
			}
		}
	}
}

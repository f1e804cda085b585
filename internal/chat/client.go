package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/silicity/silicity-server/pkg/auth"
	"github.com/silicity/silicity-server/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // same-origin policy is enforced by the deployment edge
	},
}

// Client is one streaming connection. The user reference is bound exactly
// once, at handshake time, and never re-read for the connection's lifetime;
// membership is what gets re-checked, on every send, at the hub.
type Client struct {
	id     string
	userID int64
	hub    *Hub
	conn   *websocket.Conn

	// mu orders enqueue against close: a group worker may still hold a
	// reference to a client whose reader already disconnected, and its error
	// replies must not hit a closed channel.
	mu     sync.Mutex
	out    chan []byte
	closed bool

	closeOnce sync.Once
}

// ServeWS authenticates the handshake and upgrades the connection. No
// anonymous or partially-authenticated connections exist: a bad token never
// reaches the upgrade.
func (h *Hub) ServeWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		claims, err := auth.Parse(token, h.cfg.Auth.AccessSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", "error", err)
			return
		}

		c := &Client{
			id:     uuid.New().String(),
			userID: claims.UserID,
			hub:    h,
			conn:   conn,
			out:    make(chan []byte, h.cfg.Chat.SendBuffer),
		}

		// Private per-user channel for direct notifications.
		h.subscribe(c, userChannel(c.userID))

		logger.Info("websocket connected", "conn_id", c.id, "user_id", c.userID)

		go c.writePump()
		go c.readPump()
	}
}

func bearerToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (c *Client) readPump() {
	defer c.close()

	cfg := c.hub.cfg.Chat
	c.conn.SetReadLimit(cfg.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", "conn_id", c.id, "error", err)
			}
			return
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.sendError("Malformed event")
			continue
		}

		c.dispatch(ev)
	}
}

func (c *Client) context() context.Context {
	ctx := context.WithValue(context.Background(), logger.ConnIDKey, c.id)
	return context.WithValue(ctx, logger.UserIDKey, c.userID)
}

func (c *Client) dispatch(ev ClientEvent) {
	ctx := c.context()

	switch ev.Event {
	case EventJoinGroup:
		ref, err := decodeGroupRef(ev.Data)
		if err != nil {
			c.sendError("Invalid group id")
			return
		}
		c.hub.handleJoin(ctx, c, ref.GroupID)

	case EventLeaveGroup:
		ref, err := decodeGroupRef(ev.Data)
		if err != nil {
			return
		}
		c.hub.handleLeave(c, ref.GroupID)

	case EventSendMessage:
		p, err := decodeSendMessage(ev.Data)
		if err != nil {
			c.sendError("Invalid message payload")
			return
		}
		c.hub.handleSend(c, p.GroupID, p.Text)

	case EventTyping:
		ref, err := decodeGroupRef(ev.Data)
		if err != nil {
			return
		}
		c.hub.handleTyping(c, ref.GroupID)

	default:
		c.sendError("Unknown event")
	}
}

func (c *Client) writePump() {
	cfg := c.hub.cfg.Chat
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue hands an event to the connection's writer without ever blocking
// the caller; a subscriber that cannot keep up misses events rather than
// stalling the channel.
func (c *Client) enqueue(event ServerEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to marshal event", "error", err, "event", event.Event)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.out <- data:
	default:
		logger.Warn("dropping event for slow connection", "conn_id", c.id, "event", event.Event)
	}
}

func (c *Client) sendError(message string) {
	c.enqueue(ServerEvent{Event: EventError, Data: ErrorPayload{Message: message}})
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.hub.removeClient(c)

		// Mark closed before closing the channel; enqueue checks the flag
		// under the same lock, so no sender can be mid-flight here.
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.out)

		logger.Info("websocket disconnected", "conn_id", c.id, "user_id", c.userID)
	})
}

package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/silicity/silicity-server/internal/domain"
	"github.com/silicity/silicity-server/internal/repository"
	"github.com/silicity/silicity-server/pkg/config"
	"github.com/silicity/silicity-server/pkg/events"
	"github.com/silicity/silicity-server/pkg/logger"
)

// Hub owns every live connection and channel subscription. It is constructed
// once in main and passed by reference; there is no ambient instance.
type Hub struct {
	cfg      *config.Config
	groups   repository.GroupRepository
	messages repository.MessageRepository
	users    repository.UserRepository
	bus      events.Publisher

	mu       sync.RWMutex
	channels map[string]map[*Client]bool
	workers  map[int64]*groupWorker

	done chan struct{}
}

func NewHub(
	cfg *config.Config,
	groups repository.GroupRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	bus events.Publisher,
) *Hub {
	return &Hub{
		cfg:      cfg,
		groups:   groups,
		messages: messages,
		users:    users,
		bus:      bus,
		channels: make(map[string]map[*Client]bool),
		workers:  make(map[int64]*groupWorker),
		done:     make(chan struct{}),
	}
}

// Close stops the per-group pipelines. In-flight events finish normally.
func (h *Hub) Close() {
	close(h.done)
}

func groupChannel(groupID int64) string {
	return fmt.Sprintf("group:%d", groupID)
}

func userChannel(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func (h *Hub) subscribe(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[*Client]bool)
		h.channels[channel] = subs
	}
	subs[c] = true
}

func (h *Hub) unsubscribe(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.channels[channel]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
}

// removeClient drops the connection from every channel it joined. Nothing is
// persisted about the connection, so this is the whole cleanup.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channel, subs := range h.channels {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
}

func (h *Hub) subscribed(c *Client, channel string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channels[channel][c]
}

// broadcast delivers an event to every subscriber of a channel. A nil except
// includes everyone, which is how senders get their own delivery
// confirmation for new_message.
func (h *Hub) broadcast(channel string, event ServerEvent, except *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.channels[channel] {
		if c == except {
			continue
		}
		c.enqueue(event)
	}
}

// handleJoin authorizes against the live roster and subscribes the
// connection to the group's channel.
func (h *Hub) handleJoin(ctx context.Context, c *Client, groupID int64) {
	group, err := h.groups.FindByID(ctx, groupID)
	if err != nil {
		logger.ErrorContext(ctx, "join_group lookup failed", "error", err, "group_id", groupID)
		c.sendError("Failed to join the group chat.")
		return
	}
	if group == nil {
		c.sendError("Group not found")
		return
	}

	if !group.Authorizes(c.userID) {
		logger.WarnContext(ctx, "unauthorized channel join", "group_id", groupID, "user_id", c.userID)
		c.sendError("You don't have permission to join this chat.")
		return
	}

	h.subscribe(c, groupChannel(groupID))
}

func (h *Hub) handleLeave(c *Client, groupID int64) {
	h.unsubscribe(c, groupChannel(groupID))
}

// handleTyping relays a fire-and-forget signal to everyone else on the
// channel. Nothing is persisted and no delivery is guaranteed; consumers
// debounce on their side.
func (h *Hub) handleTyping(c *Client, groupID int64) {
	h.broadcast(groupChannel(groupID), ServerEvent{
		Event: EventUserTyping,
		Data:  TypingPayload{UserID: c.userID},
	}, c)
}

// handleSend queues the message into the group's pipeline. Each group has
// one worker, so processing within a channel is strictly sequential while
// separate channels never wait on each other. Lookup and enqueue happen
// under the hub lock so an idle worker can prove its queue is empty before
// reaping itself.
func (h *Hub) handleSend(c *Client, groupID int64, text string) {
	h.mu.Lock()
	w, ok := h.workers[groupID]
	if !ok {
		w = &groupWorker{
			hub:     h,
			groupID: groupID,
			queue:   make(chan inboundMessage, h.cfg.Chat.ChannelQueue),
			ttl:     workerTTL(h.cfg),
		}
		h.workers[groupID] = w
		go w.run()
	}

	var queued bool
	select {
	case w.queue <- inboundMessage{client: c, text: text}:
		queued = true
	default:
	}
	h.mu.Unlock()

	if !queued {
		c.sendError("You're sending messages too quickly.")
	}
}

func workerTTL(cfg *config.Config) time.Duration {
	if ttl := cfg.Chat.WorkerIdleTTL; ttl > 0 {
		return ttl
	}
	return 2 * time.Minute
}

type inboundMessage struct {
	client *Client
	text   string
}

type groupWorker struct {
	hub     *Hub
	groupID int64
	queue   chan inboundMessage
	ttl     time.Duration
}

func (w *groupWorker) run() {
	idle := time.NewTimer(w.ttl)
	defer idle.Stop()

	for {
		select {
		case msg := <-w.queue:
			w.hub.process(msg.client, w.groupID, msg.text)
			idle.Reset(w.ttl)
		case <-idle.C:
			// Senders enqueue under the hub lock, so an empty queue seen
			// here stays empty until the worker is out of the map.
			w.hub.mu.Lock()
			if len(w.queue) == 0 {
				delete(w.hub.workers, w.groupID)
				w.hub.mu.Unlock()
				return
			}
			w.hub.mu.Unlock()
			idle.Reset(w.ttl)
		case <-w.hub.done:
			return
		}
	}
}

// process runs one message through the pipeline to completion:
// validate -> sanitize -> authorize -> persist -> enrich -> broadcast.
func (h *Hub) process(c *Client, groupID int64, text string) {
	ctx := context.WithValue(context.Background(), logger.ConnIDKey, c.id)

	// Empty or whitespace-only input is dropped without an error event.
	body, ok := Sanitize(text)
	if !ok {
		return
	}

	// Authorization is re-run against the latest committed roster on every
	// send. A member removed through an unrelated synchronous call loses the
	// channel immediately, without reconnecting.
	group, err := h.groups.FindByID(ctx, groupID)
	if err != nil {
		logger.ErrorContext(ctx, "send_message group lookup failed", "error", err, "group_id", groupID)
		c.sendError("Failed to send the message.")
		return
	}
	if group == nil {
		c.sendError("Group not found")
		return
	}
	if !group.Authorizes(c.userID) {
		c.sendError("You no longer have access to this group.")
		return
	}

	msg, err := h.messages.Create(ctx, groupID, c.userID, body)
	if err != nil {
		logger.ErrorContext(ctx, "failed to persist message", "error", err, "group_id", groupID)
		c.sendError("Failed to send the message.")
		return
	}

	enriched := domain.EnrichedMessage{Message: *msg}
	if author, err := h.users.FindByID(ctx, c.userID); err != nil {
		logger.WarnContext(ctx, "failed to enrich message author", "error", err, "user_id", c.userID)
	} else if author != nil {
		enriched.AuthorName = author.Name
		enriched.AuthorAvatar = author.AvatarURL
	}

	h.broadcast(groupChannel(groupID), ServerEvent{
		Event: EventNewMessage,
		Data:  enriched,
	}, nil)

	if h.bus != nil {
		if err := h.bus.Publish(ctx, events.ChatMessageCreated, events.ChatMessageCreatedEvent{
			MessageID: msg.ID,
			GroupID:   msg.GroupID,
			AuthorID:  msg.AuthorID,
			CreatedAt: msg.CreatedAt,
		}); err != nil {
			logger.WarnContext(ctx, "failed to publish chat event", "error", err)
		}
	}
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/silicity/silicity-server/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "publishing event", "subject", subject)

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Subjects
const (
	UserRegistered     = "user.registered"
	UserVerified       = "user.verified"
	UserPasswordReset  = "user.password_reset"
	GroupCreated       = "group.created"
	GroupMemberJoined  = "group.member.joined"
	GroupMemberLeft    = "group.member.left"
	GroupGraduated     = "group.graduated"
	ChatMessageCreated = "chat.message.created"
	AdminAlert         = "admin.alert"
)

// Event payloads
type UserRegisteredEvent struct {
	UserID        int64     `json:"user_id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	AccountStatus string    `json:"account_status"`
	RegisteredAt  time.Time `json:"registered_at"`
}

type UserVerifiedEvent struct {
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	VerifiedAt time.Time `json:"verified_at"`
}

type UserEvent struct {
	UserID int64 `json:"user_id"`
}

type GroupEvent struct {
	GroupID int64  `json:"group_id"`
	UserID  int64  `json:"user_id"`
	Name    string `json:"name,omitempty"`
}

type ChatMessageCreatedEvent struct {
	MessageID int64     `json:"message_id"`
	GroupID   int64     `json:"group_id"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

type AdminAlertEvent struct {
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Details map[string]string `json:"details,omitempty"`
}

// DecodeAdminAlert unpacks an admin.alert message for consumers.
func DecodeAdminAlert(msg *Message) (AdminAlertEvent, error) {
	var alert AdminAlertEvent
	if err := json.Unmarshal(msg.Data, &alert); err != nil {
		return alert, fmt.Errorf("malformed admin alert: %w", err)
	}
	return alert, nil
}

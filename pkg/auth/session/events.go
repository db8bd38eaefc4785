package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/popspot-backend/pkg/logger"
	redisclient "github.com/angelmondragon/popspot-backend/pkg/redis"
)

// EventType names an auth state change broadcast to every API process.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
)

// Event is the wire shape on the auth events channel. An empty AccessID on a
// sign-out means every session of the user.
type Event struct {
	Type     EventType `json:"type"`
	UserID   string    `json:"user_id"`
	AccessID string    `json:"access_id,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher broadcasts auth events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber opens the event stream. The channel closes when ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

type pubsubClient interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// RedisEvents carries auth events over a Redis pub/sub channel.
type RedisEvents struct {
	client  *redisclient.Client
	pub     pubsubClient
	channel string
	logg    *logger.Logger
}

func NewRedisEvents(client *redisclient.Client, channel string, logg *logger.Logger) (*RedisEvents, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("events channel is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisEvents{client: client, pub: client, channel: channel, logg: logg}, nil
}

func (r *RedisEvents) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode auth event: %w", err)
	}
	if err := r.pub.Publish(ctx, r.channel, payload); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

func (r *RedisEvents) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub, err := r.client.Subscribe(ctx, r.channel)
	if err != nil {
		return nil, err
	}
	out := make(chan Event, 64)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				ev, err := decodeEvent(msg.Payload)
				if err != nil {
					r.logg.Warn(r.logg.WithField(ctx, "payload", msg.Payload), "session.event_decode_failed")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	if ev.Type == "" || ev.UserID == "" {
		return Event{}, fmt.Errorf("auth event missing type or user")
	}
	return ev, nil
}

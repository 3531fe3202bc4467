package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/inventory-service/internal/utils"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel shared by every instance.
const DefaultChannel = "inventory:events"

// envelope is the on-wire form between instances.
type envelope struct {
	Origin    string          `json:"origin"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	SentAt    time.Time       `json:"sent_at"`
	AdminOnly bool            `json:"admin_only"`
}

// RedisBridge delivers events to the local hub and relays them to other
// instances over Redis pub/sub.
type RedisBridge struct {
	client  *redis.Client
	local   Publisher
	channel string
	origin  string
}

func NewRedisBridge(client *redis.Client, local Publisher) *RedisBridge {
	return &RedisBridge{client: client, local: local, channel: DefaultChannel, origin: uuid.NewString()}
}

func (b *RedisBridge) Publish(ctx context.Context, ev Event) {
	if ev.SentAt.IsZero() {
		ev.SentAt = time.Now().UTC()
	}
	b.local.Publish(ctx, ev)

	raw, err := encodeEnvelope(b.origin, ev)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to encode %s event for redis", ev.Type)
		return
	}
	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		utils.Logger.WithError(err).Warnf("Failed to relay %s event to redis", ev.Type)
	}
}

// Run relays events published by other instances into the local hub until
// ctx is done.
func (b *RedisBridge) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ev, origin, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				utils.Logger.WithError(err).Warn("Ignoring malformed redis event")
				continue
			}
			if origin == b.origin {
				continue
			}
			b.local.Publish(ctx, ev)
		}
	}
}

func encodeEnvelope(origin string, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Origin:    origin,
		Type:      ev.Type,
		Payload:   payload,
		SentAt:    ev.SentAt,
		AdminOnly: ev.AdminOnly,
	})
}

func decodeEnvelope(raw []byte) (Event, string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, "", err
	}
	return Event{Type: env.Type, Payload: env.Payload, SentAt: env.SentAt, AdminOnly: env.AdminOnly}, env.Origin, nil
}

package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/daon-network/auth-service/internal/domain/models"
)

const channelPrefix = "auth:token-rotations:"

// RotationEvent is delivered to subscribers when a concurrent refresh race is
// resolved. Losers of the race pick up the winner's freshly issued pair here
// instead of being forced through a full re-authentication.
type RotationEvent struct {
	IdentityID     uuid.UUID        `json:"identity_id"`
	RotatedTokenID uuid.UUID        `json:"rotated_token_id"`
	Pair           models.TokenPair `json:"pair"`
	RotatedAt      time.Time        `json:"rotated_at"`
}

// RotationBroadcaster publishes and consumes token rotation events.
type RotationBroadcaster interface {
	PublishRotation(ctx context.Context, event RotationEvent) error
	SubscribeRotations(ctx context.Context, identityID uuid.UUID) (<-chan RotationEvent, func(), error)
}

type redisBroadcaster struct {
	client *redis.Client
}

var _ RotationBroadcaster = (*redisBroadcaster)(nil)

// NewRedisBroadcaster returns a pub/sub backed RotationBroadcaster.
func NewRedisBroadcaster(client *redis.Client) RotationBroadcaster {
	return &redisBroadcaster{client: client}
}

func channelFor(identityID uuid.UUID) string {
	return channelPrefix + identityID.String()
}

func (b *redisBroadcaster) PublishRotation(ctx context.Context, event RotationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal rotation event: %w", err)
	}
	if err := b.client.Publish(ctx, channelFor(event.IdentityID), payload).Err(); err != nil {
		return fmt.Errorf("publish rotation event: %w", err)
	}
	return nil
}

func (b *redisBroadcaster) SubscribeRotations(ctx context.Context, identityID uuid.UUID) (<-chan RotationEvent, func(), error) {
	sub := b.client.Subscribe(ctx, channelFor(identityID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe rotation channel: %w", err)
	}

	out := make(chan RotationEvent)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event RotationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}

package device

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Channel carries device-table change notifications.
const Channel = "feed:devices"

// Feed fans device changes out to subscribed clients. Events carry no
// payload; subscribers re-read the active set.
type Feed interface {
	Publish(ctx context.Context) error
	Subscribe(ctx context.Context) (<-chan struct{}, func(), error)
}

// RedisFeed implements Feed on a Redis pub/sub channel.
type RedisFeed struct {
	client *redis.Client
}

// NewRedisFeed creates a feed.
func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

// Publish notifies subscribers that the device set changed.
func (f *RedisFeed) Publish(ctx context.Context) error {
	return f.client.Publish(ctx, Channel, "changed").Err()
}

// Subscribe returns a channel that ticks on every published change. The
// returned func tears the subscription down.
func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan struct{}, func(), error) {
	sub := f.client.Subscribe(ctx, Channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for range sub.Channel() {
			select {
			case out <- struct{}{}:
			default: // subscriber is behind; one pending tick is enough
			}
		}
	}()
	return out, func() { _ = sub.Close() }, nil
}

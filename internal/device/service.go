package device

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Store is the persistence surface the service needs.
type Store interface {
	Upsert(ctx context.Context, d Device) (Device, error)
	ListActive(ctx context.Context) ([]Device, error)
	PruneStale(ctx context.Context, ttl time.Duration) (int64, error)
}

// Service tracks scanning-station presence.
type Service struct {
	store Store
	feed  Feed
	log   *zap.Logger
}

// NewService creates a service.
func NewService(store Store, feed Feed, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, feed: feed, log: log}
}

// Heartbeat upserts a device and notifies feed subscribers.
func (s *Service) Heartbeat(ctx context.Context, deviceID, label, deviceType string) (Device, error) {
	if deviceID == "" {
		return Device{}, ErrMissingID
	}
	if !ValidType(deviceType) {
		return Device{}, ErrInvalidType
	}
	d, err := s.store.Upsert(ctx, Device{DeviceID: deviceID, Label: label, Type: deviceType})
	if err != nil {
		return Device{}, err
	}
	s.notify(ctx)
	return d, nil
}

// ListActive returns the devices a station may select from.
func (s *Service) ListActive(ctx context.Context) ([]Device, error) {
	return s.store.ListActive(ctx)
}

// PruneStale deactivates silent devices; subscribers are notified only when
// the active set actually changed.
func (s *Service) PruneStale(ctx context.Context, ttl time.Duration) error {
	n, err := s.store.PruneStale(ctx, ttl)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("pruned stale devices", zap.Int64("count", n))
		s.notify(ctx)
	}
	return nil
}

func (s *Service) notify(ctx context.Context) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx); err != nil {
		s.log.Warn("device feed publish failed", zap.Error(err))
	}
}

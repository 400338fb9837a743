package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"log/slog"
	"time"
)

type onlineLister interface {
	Online() []domain.UserID
}

// PresenceHeartbeatWorker refreshes the presence entry of every connected user
// so that entries expire only when this process stops refreshing them.
type PresenceHeartbeatWorker struct {
	log      *slog.Logger
	registry onlineLister
	presence contract.Presence
	interval time.Duration
}

func NewPresenceHeartbeatWorker(
	log *slog.Logger,
	registry onlineLister,
	presence contract.Presence,
	interval time.Duration,
) *PresenceHeartbeatWorker {
	return &PresenceHeartbeatWorker{log: log, registry: registry, presence: presence, interval: interval}
}

func (w *PresenceHeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting presence heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.beat(ctx)
		}
	}
}

func (w *PresenceHeartbeatWorker) beat(ctx context.Context) {
	failed := 0
	online := w.registry.Online()
	for _, id := range online {
		if err := w.presence.Online(ctx, id); err != nil {
			failed++
			w.log.Debug("Presence refresh failed", "user_id", id, "error", err)
		}
	}
	if failed > 0 {
		w.log.Warn("Presence refresh incomplete", "online", len(online), "failed", failed)
	}
}

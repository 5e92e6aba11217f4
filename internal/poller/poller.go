// Package poller receives updates with getUpdates long polling, for
// deployments that cannot expose a webhook.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/me/joinguard/internal/telegram"
)

// Source is the part of the Bot API the poller needs.
type Source interface {
	DeleteWebhook(ctx context.Context, dropPending bool) error
	GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]telegram.Update, error)
}

// Config holds poller settings.
type Config struct {
	Wait        time.Duration // Long-poll timeout passed to getUpdates
	Workers     int           // Updates handled concurrently
	DropPending bool          // Discard updates queued before start
	MinBackoff  time.Duration // First delay after a failed poll
	MaxBackoff  time.Duration // Cap on the delay between failed polls
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Wait:       50 * time.Second,
		Workers:    8,
		MinBackoff: time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// Poller pulls updates and routes each one to the handler on its own
// goroutine, at most Workers at a time.
type Poller struct {
	src     Source
	handler telegram.EventHandler
	cfg     Config
	sem     *Semaphore
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// New creates a poller.
func New(src Source, h telegram.EventHandler, cfg Config, logger *slog.Logger) *Poller {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = DefaultConfig().MinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}
	return &Poller{
		src:     src,
		handler: h,
		cfg:     cfg,
		sem:     NewSemaphore(cfg.Workers),
		logger:  logger.With("component", "poller"),
	}
}

// Run removes any webhook, then polls until ctx is cancelled. It returns
// after every dispatched update has been handled.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.src.DeleteWebhook(ctx, p.cfg.DropPending); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	p.logger.Info("poller started", "wait", p.cfg.Wait, "workers", p.cfg.Workers)
	defer p.wg.Wait()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.MinBackoff
	bo.MaxInterval = p.cfg.MaxBackoff

	var offset int64
	for {
		updates, err := p.src.GetUpdates(ctx, offset, p.cfg.Wait)
		if ctx.Err() != nil {
			p.logger.Info("poller stopping", "in_flight", p.sem.InFlight())
			return nil
		}
		if err != nil {
			delay := bo.NextBackOff()
			var apiErr *telegram.APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				delay = time.Duration(apiErr.RetryAfter) * time.Second
			}
			p.logger.Warn("getUpdates failed", "error", err, "retry_in", delay)
			if !sleep(ctx, delay) {
				return nil
			}
			continue
		}
		bo.Reset()

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if !p.sem.Acquire(ctx) {
				return nil
			}
			p.wg.Add(1)
			go func(u telegram.Update) {
				defer p.wg.Done()
				defer p.sem.Release()
				if !telegram.Route(ctx, u, p.handler, p.logger) {
					p.logger.Debug("update skipped", "update_id", u.UpdateID)
				}
			}(u)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

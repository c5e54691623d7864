// Package poll provides the gateway's fetch-on-interval worker. Each feed
// is one Poller: an immediate fetch on start, then a fixed-interval ticker.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stridehq/stride/pkg/idx"
)

// FetchFunc produces the next value for a feed.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// ApplyFunc installs a fetched value. Calls are serialised by the poller.
type ApplyFunc[T any] func(value T)

// Poller runs Fetch every Interval and hands results to Apply.
//
// Fetches are fire-and-forget: a slow response never delays the next tick.
// Each fetch is stamped with a monotonic ULID at issue time and the apply
// path discards any response older than the last applied stamp, so data
// freshness is monotonic even when responses arrive out of order.
//
// A failed fetch leaves prior state untouched and reports through OnError;
// the next tick retries unconditionally, without backoff.
type Poller[T any] struct {
	Name     string
	Interval time.Duration
	Fetch    FetchFunc[T]
	Apply    ApplyFunc[T]
	Logger   *slog.Logger

	// OnError, when set, receives each fetch failure (e.g. to raise a
	// transient banner).
	OnError func(err error)

	mu          sync.Mutex
	lastApplied idx.ID

	ctx    context.Context
	cancel context.CancelFunc
	doneCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a poller; call Start to begin fetching. The cancel context is
// created here, not in Start, so the lifecycle fields are never written
// after the poller is visible to other goroutines.
func New[T any](name string, interval time.Duration, fetch FetchFunc[T], apply ApplyFunc[T], logger *slog.Logger) *Poller[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller[T]{
		Name:     name,
		Interval: interval,
		Fetch:    fetch,
		Apply:    apply,
		Logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		doneCh:   make(chan struct{}),
	}
}

// Start issues an immediate fetch and then ticks at the fixed interval.
func (p *Poller[T]) Start() {
	go p.run()
	p.Logger.Debug("poller started", "name", p.Name, "interval", p.Interval)
}

// Stop cancels the ticker and in-flight fetches, then waits for the tick
// loop and every outstanding fetch goroutine. After Stop returns no further
// Apply call is made. Stop must follow Start.
func (p *Poller[T]) Stop() {
	p.cancel()
	<-p.doneCh
	p.wg.Wait()
	p.Logger.Debug("poller stopped", "name", p.Name)
}

func (p *Poller[T]) run() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.issue()

	for {
		select {
		case <-ticker.C:
			p.issue()
		case <-p.ctx.Done():
			return
		}
	}
}

// issue stamps and launches one fetch without blocking the tick loop.
func (p *Poller[T]) issue() {
	stamp := idx.New()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(p.ctx, p.Interval)
		defer cancel()

		value, err := p.Fetch(ctx)
		if err != nil {
			if p.ctx.Err() != nil {
				return
			}
			p.Logger.Warn("poll fetch failed", "name", p.Name, "error", err)
			if p.OnError != nil {
				p.OnError(err)
			}
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()

		if p.ctx.Err() != nil {
			return
		}
		if !p.lastApplied.IsZero() && idx.Compare(stamp, p.lastApplied) <= 0 {
			p.Logger.Debug("discarding stale poll response", "name", p.Name, "stamp", stamp)
			return
		}
		p.lastApplied = stamp

		// Applied under the lock so installs happen in stamp order.
		p.Apply(value)
	}()
}

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
	"github.com/AdamBeresnev/op-tournaments/internal/cache"
	"github.com/AdamBeresnev/op-tournaments/internal/metrics"
	"github.com/AdamBeresnev/op-tournaments/internal/progression"
)

type options struct {
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
	mapPool  []string
	bestOf   int
}

type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		cache:    cache.Noop{},
		cacheTTL: 30 * time.Second,
		now:      time.Now,
		bestOf:   1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *options) {
		o.cache = c
		o.cacheTTL = ttl
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now, used by tests to move through ready windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithDefaults sets the map pool and series length used when a tournament
// does not specify its own.
func WithDefaults(mapPool []string, bestOf int) Option {
	return func(o *options) {
		o.mapPool = mapPool
		o.bestOf = bestOf
	}
}

func (o *options) invalidate(ctx context.Context, tournamentID string) {
	if err := o.cache.Delete(ctx, cache.BracketKey(tournamentID)); err != nil {
		slog.Warn("failed to invalidate bracket cache", "tournamentId", tournamentID, "error", err)
	}
}

func (o *options) poolFor(t *bracket.Tournament) []string {
	if len(t.MapPool) > 0 {
		return t.MapPool
	}
	return o.mapPool
}

// observe records what the engine completed during one operation.
func (o *options) observe(snap *progression.Snapshot, now time.Time, wasDecided bool) {
	at := now.UnixMilli()
	for _, m := range snap.Dirty() {
		if !m.IsCompleted() || m.Bye || m.CompletedAt == nil || *m.CompletedAt != at {
			continue
		}
		o.metrics.MatchCompleted(string(m.Stage))
		if m.Forfeit != nil {
			o.metrics.Forfeit(string(m.Forfeit.Type))
		}
	}

	t := snap.Tournament
	if !wasDecided && t.Decided() {
		o.metrics.TournamentDecided(string(t.BracketType), t.Champion != nil)
		slog.Info("tournament decided", "tournamentId", t.ID, "champion", t.Champion.ID())
	}
}

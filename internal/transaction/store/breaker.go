package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/guppyfunds/consumer/internal/metrics"
	"github.com/guppyfunds/consumer/internal/transaction"
)

var ErrCircuitOpen = errors.New("store circuit breaker open")

// BreakerConfig configures the circuit breaker in front of the store.
type BreakerConfig struct {
	Name string
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which closed-state counts reset. Zero never resets.
	Interval time.Duration
	// Timeout spent open before a trial call is let through.
	Timeout time.Duration
	// ConsecutiveFailures that trip the breaker.
	ConsecutiveFailures uint32
	// CallTimeout bounds each store call. Zero disables it.
	CallTimeout time.Duration
}

// Breaker guards a transaction.Repository with a circuit breaker and a per
// call timeout. While open every call fails fast with ErrCircuitOpen.
type Breaker struct {
	repo    transaction.Repository
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewBreaker(repo transaction.Repository, cfg BreakerConfig, collector metrics.Collector) *Breaker {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Caller mistakes say nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, transaction.ErrUnknownBank) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("store circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())

			var state metrics.CircuitState

			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}

			collector.RecordCircuitState(name, state)
		},
	}

	return &Breaker{
		repo:    repo,
		cb:      gobreaker.NewCircuitBreaker(settings),
		timeout: cfg.CallTimeout,
	}
}

// State reports the breaker state, for health checks.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func execute[T any](ctx context.Context, b *Breaker, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)

		defer cancel()
	}

	out, err := b.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			slog.Warn("store call rejected by circuit breaker", "operation", op)
			return zero, fmt.Errorf("%s: %w", op, ErrCircuitOpen)
		}

		return zero, err
	}

	v, _ := out.(T)

	return v, nil
}

func (b *Breaker) ExistingHashes(ctx context.Context, bank transaction.Bank, hashes []string) (map[string]struct{}, error) {
	return execute(ctx, b, "existing hashes", func(ctx context.Context) (map[string]struct{}, error) {
		return b.repo.ExistingHashes(ctx, bank, hashes)
	})
}

func (b *Breaker) InsertMany(ctx context.Context, bank transaction.Bank, records []*transaction.Record) (*transaction.WriteResult, error) {
	return execute(ctx, b, "insert many", func(ctx context.Context) (*transaction.WriteResult, error) {
		return b.repo.InsertMany(ctx, bank, records)
	})
}

func (b *Breaker) HashExists(ctx context.Context, bank transaction.Bank, hash string) (bool, error) {
	return execute(ctx, b, "hash exists", func(ctx context.Context) (bool, error) {
		return b.repo.HashExists(ctx, bank, hash)
	})
}

func (b *Breaker) Count(ctx context.Context, bank transaction.Bank) (int64, error) {
	return execute(ctx, b, "count", func(ctx context.Context) (int64, error) {
		return b.repo.Count(ctx, bank)
	})
}

func (b *Breaker) Sample(ctx context.Context, bank transaction.Bank, limit int) ([]*transaction.Record, error) {
	return execute(ctx, b, "sample", func(ctx context.Context) ([]*transaction.Record, error) {
		return b.repo.Sample(ctx, bank, limit)
	})
}

func (b *Breaker) Stats(ctx context.Context, bank transaction.Bank) (*transaction.TableStats, error) {
	return execute(ctx, b, "stats", func(ctx context.Context) (*transaction.TableStats, error) {
		return b.repo.Stats(ctx, bank)
	})
}

func (b *Breaker) Indexes(ctx context.Context, bank transaction.Bank) ([]transaction.Index, error) {
	return execute(ctx, b, "indexes", func(ctx context.Context) ([]transaction.Index, error) {
		return b.repo.Indexes(ctx, bank)
	})
}

// Ping bypasses the breaker so health checks see the store directly.
func (b *Breaker) Ping(ctx context.Context) error {
	return b.repo.Ping(ctx)
}

var (
	_ transaction.Repository = (*Store)(nil)
	_ transaction.Repository = (*Breaker)(nil)
)

package market

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/market-potential-crawler/internal/metrics"
)

// Outcome is the tagged result of one source attempt: either a value was
// found, or the chain should move on for the given reason.
type Outcome[T any] struct {
	Value  T
	Found  bool
	Reason string
}

// Hit wraps a found value.
func Hit[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Found: true}
}

// Miss tells the chain to try the next source.
func Miss[T any](format string, args ...any) Outcome[T] {
	return Outcome[T]{Reason: fmt.Sprintf(format, args...)}
}

// MissErr converts an error into a Miss.
func MissErr[T any](err error) Outcome[T] {
	return Outcome[T]{Reason: err.Error()}
}

// Attempt is one named tier of a fallback chain.
type Attempt[T any] struct {
	Source string
	Fetch  func(ctx context.Context, loc Location) Outcome[T]
}

// Chain resolves one category by trying its attempts in order.
type Chain[T any] struct {
	Category string
	Attempts []Attempt[T]
	// Sentinel builds the all-absent result carrying the given explanation.
	Sentinel func(source string) T
}

// Resolve returns the first found value, or the sentinel when every attempt
// misses. It never fails.
func (c Chain[T]) Resolve(ctx context.Context, loc Location, logger *zap.Logger) T {
	reasons := make([]string, 0, len(c.Attempts))
	for _, attempt := range c.Attempts {
		if err := ctx.Err(); err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %v", attempt.Source, err))
			break
		}
		out := attempt.Fetch(ctx, loc)
		metrics.ObserveMarketSource(c.Category, attempt.Source, out.Found)
		if out.Found {
			logger.Debug("market source hit",
				zap.String("category", c.Category),
				zap.String("source", attempt.Source),
				zap.String("area", loc.AreaName()),
			)
			return out.Value
		}
		logger.Debug("market source miss",
			zap.String("category", c.Category),
			zap.String("source", attempt.Source),
			zap.String("area", loc.AreaName()),
			zap.String("reason", out.Reason),
		)
		reasons = append(reasons, fmt.Sprintf("%s: %s", attempt.Source, out.Reason))
	}
	return c.Sentinel(unavailableSource(reasons))
}

func unavailableSource(reasons []string) string {
	if len(reasons) == 0 {
		return "unavailable: no sources configured"
	}
	return "unavailable: " + strings.Join(reasons, "; ")
}

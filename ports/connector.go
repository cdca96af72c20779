package ports

import (
	"context"

	"lcsweep/domain/star"
)

// Query is a catalog query: a mapping from connector-recognized keys to
// scalar values or Range pairs. The special keys "ra", "dec" and "delta"
// together denote a cone search with radius delta arcseconds; "nearest"
// set to true reduces the result to the closest match.
type Query map[string]interface{}

// Range is an inclusive (lower, upper) bound on a query key.
type Range struct {
	Lower float64
	Upper float64
}

// Connector resolves queries against one catalog. Implementations own
// their network I/O, rate limiting and retries, and must be safe to invoke
// from independent worker processes.
type Connector interface {
	// Name identifies the connector for registries and query files.
	Name() string

	// GetStar resolves a single query to zero or more stars. With loadLC
	// the stars come with their light curves attached.
	GetStar(ctx context.Context, q Query, loadLC bool) ([]*star.Star, error)

	// GetStars resolves a batch of queries, concatenating the results.
	GetStars(ctx context.Context, queries []Query, loadLC bool) ([]*star.Star, error)
}

// GetStarsWithCurves resolves a batch of queries with light curves loaded
// and drops the stars that came back without one, so callers feeding a
// filter need no further checks.
func GetStarsWithCurves(ctx context.Context, c Connector, queries []Query) ([]*star.Star, error) {
	stars, err := c.GetStars(ctx, queries, true)
	if err != nil {
		return nil, err
	}
	out := make([]*star.Star, 0, len(stars))
	for _, s := range stars {
		if s.LightCurve() != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

package ports

import (
	"context"

	"lcsweep/domain/star"
)

// StarStore persists stars that pass the filter, grouped by job. Retried
// tasks may save the same star twice; Save must overwrite cleanly without
// corrupting concurrent readers.
type StarStore interface {
	// Save persists one star with all its light curves.
	Save(ctx context.Context, job string, s *star.Star) error

	// List loads every star saved under the job.
	List(ctx context.Context, job string) ([]*star.Star, error)
}

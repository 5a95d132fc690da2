package ports

import (
	"context"
	"time"

	"github.com/taskmaster/trackcounters/internal/domain/entities"
)

// BackfillService interface for the counter backfill
type BackfillService interface {
	Backfill(ctx context.Context) (*entities.BackfillReport, error)
	Check(ctx context.Context) (*entities.BackfillReport, error)
}

// RunRecorder receives the outcome of every backfill run
type RunRecorder interface {
	ObserveRun(report *entities.BackfillReport, elapsed time.Duration, err error)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/trackcounters/internal/domain/entities"
	"github.com/taskmaster/trackcounters/internal/infrastructure/logger"
	"github.com/taskmaster/trackcounters/internal/ports"
)

// BackfillService fills in missing like/dislike counters on every track
type BackfillService struct {
	repo     ports.DocumentRepository
	recorder ports.RunRecorder
	logger   *logger.Logger
	now      func() time.Time
}

// NewBackfillService creates a new backfill service. recorder may be nil.
func NewBackfillService(repo ports.DocumentRepository, recorder ports.RunRecorder, logger *logger.Logger) *BackfillService {
	return &BackfillService{
		repo:     repo,
		recorder: recorder,
		logger:   logger.WithComponent("backfill_service"),
		now:      time.Now,
	}
}

// Backfill loads the document, adds the missing counters and writes it back.
// Nothing is written unless the whole document loaded and validated.
func (s *BackfillService) Backfill(ctx context.Context) (report *entities.BackfillReport, err error) {
	log := s.logger.WithRunID(uuid.NewString())
	started := s.now()
	defer func() {
		s.observe(report, s.now().Sub(started), err)
	}()

	log.Infow("Backfill started", "source", s.repo.Source(), "target", s.repo.Target())

	doc, err := s.repo.Load(ctx)
	if err != nil {
		log.WithError(err).Errorw("Backfill aborted before write")
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	result := doc.Backfill()

	if err := s.repo.Save(ctx, doc); err != nil {
		log.WithError(err).WithPath(s.repo.Target()).Errorw("Backfill failed while writing")
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	log.Infow("Backfill completed",
		"tracks", result.TotalTracks,
		"tracks_changed", result.TracksChanged,
		"likes_added", result.LikesAdded,
		"dislikes_added", result.DislikesAdded,
	)

	return &result, nil
}

// Check loads the document and reports missing counters without writing
func (s *BackfillService) Check(ctx context.Context) (*entities.BackfillReport, error) {
	log := s.logger.WithRunID(uuid.NewString()).WithPath(s.repo.Source())

	doc, err := s.repo.Load(ctx)
	if err != nil {
		log.WithError(err).Warnw("Check could not load document")
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	result := doc.Inspect()
	log.Infow("Check completed",
		"tracks", result.TotalTracks,
		"tracks_pending", result.TracksChanged,
	)

	return &result, nil
}

func (s *BackfillService) observe(report *entities.BackfillReport, elapsed time.Duration, err error) {
	if s.recorder == nil {
		return
	}
	s.recorder.ObserveRun(report, elapsed, err)
}

package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/runtime/lock"
	"github.com/de-tools/revenue-atlas/pkg/services/collector"
	"github.com/de-tools/revenue-atlas/pkg/store/snapshot"
	"github.com/rs/zerolog"
)

var (
	// ErrCollectionInProgress means another process or request holds the collection lock.
	ErrCollectionInProgress = errors.New("a collection is already in progress")
	// ErrNoRunDates means the actuals source has no snapshot to report on.
	ErrNoRunDates = errors.New("no run dates available")
)

type Collector interface {
	Collect(ctx context.Context, req collector.Request) (*domain.Report, error)
}

type RunDateSource interface {
	RunDates(ctx context.Context) ([]time.Time, error)
}

// Publisher copies a stored snapshot to an external destination.
type Publisher interface {
	Publish(ctx context.Context, name string, path string) error
}

type Service interface {
	// Load returns a cached report or snapshot.ErrNotFound.
	Load(ctx context.Context, key snapshot.Key) (*domain.Report, error)
	// Generate returns the cached report for the request, collecting and storing it when absent.
	Generate(ctx context.Context, req GenerateRequest) (*domain.Report, error)
	RunDates(ctx context.Context) ([]time.Time, error)
}

type GenerateRequest struct {
	Quarter string
	// RunDate defaults to the latest run date when zero.
	RunDate  time.Time
	Category string
	// Force deletes an existing entry before collecting.
	Force bool
}

type service struct {
	collector Collector
	snapshots snapshot.Store
	runDates  RunDateSource
	publisher Publisher
	lockPath  string
}

type Option func(*service)

func WithPublisher(p Publisher) Option {
	return func(s *service) {
		s.publisher = p
	}
}

func NewService(
	c Collector,
	snapshots snapshot.Store,
	runDates RunDateSource,
	lockPath string,
	opts ...Option,
) Service {
	s := &service{
		collector: c,
		snapshots: snapshots,
		runDates:  runDates,
		lockPath:  lockPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Load(ctx context.Context, key snapshot.Key) (*domain.Report, error) {
	return s.snapshots.Load(ctx, key)
}

func (s *service) RunDates(ctx context.Context) ([]time.Time, error) {
	dates, err := s.runDates.RunDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list run dates: %w", err)
	}
	return dates, nil
}

func (s *service) Generate(ctx context.Context, req GenerateRequest) (*domain.Report, error) {
	logger := zerolog.Ctx(ctx)

	if !req.Force && !req.RunDate.IsZero() {
		key := snapshot.Key{Quarter: req.Quarter, RunDate: req.RunDate, Category: req.Category}
		if report, err := s.snapshots.Load(ctx, key); err == nil {
			logger.Info().Str("key", key.String()).Msg("serving cached snapshot")
			return report, nil
		} else if !errors.Is(err, snapshot.ErrNotFound) {
			return nil, err
		}
	}

	// Nothing touches the warehouse before the lock is held.
	l, err := lock.Acquire(s.lockPath)
	if errors.Is(err, lock.ErrLocked) {
		return nil, ErrCollectionInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire collection lock: %w", err)
	}
	defer func() {
		if err := l.Release(); err != nil {
			logger.Warn().Err(err).Msg("failed to release collection lock")
		}
	}()

	runDate := req.RunDate
	if runDate.IsZero() {
		dates, err := s.RunDates(ctx)
		if err != nil {
			return nil, err
		}
		if len(dates) == 0 {
			return nil, ErrNoRunDates
		}
		runDate = dates[0]
		logger.Info().Str("run_date", domain.FormatDate(runDate)).Msg("using latest run date")
	}
	key := snapshot.Key{Quarter: req.Quarter, RunDate: runDate, Category: req.Category}

	// A forced run keeps the existing entry until Save replaces it.
	if !req.Force {
		if report, err := s.snapshots.Load(ctx, key); err == nil {
			// Another holder stored it between our first look and taking the lock.
			return report, nil
		} else if !errors.Is(err, snapshot.ErrNotFound) {
			return nil, err
		}
	}

	report, err := s.collector.Collect(ctx, collector.Request{
		Quarter:  req.Quarter,
		RunDate:  runDate,
		Category: req.Category,
	})
	if err != nil {
		return nil, err
	}
	if err := s.snapshots.Save(ctx, key, report); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, key.FileName(), s.snapshots.Path(key)); err != nil {
			logger.Warn().Err(err).Str("key", key.String()).Msg("failed to publish snapshot")
		}
	}
	return report, nil
}

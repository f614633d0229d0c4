package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
	"flightsync-service/pkg/logger"
	"flightsync-service/pkg/metrics"

	"github.com/cenkalti/backoff/v5"
)

// FareOptions tunes fare-detail refinement
type FareOptions struct {
	MaxAttempts int
	Backoff     time.Duration
	BatchSize   int
}

// FareDetailService queues classes that lack fare detail and works the
// queued tasks
type FareDetailService struct {
	router        ProviderRouter
	interfaceRepo repository.InterfaceRepository
	flightRepo    repository.FlightRepository
	queue         repository.TaskQueue
	deadLetters   repository.DeadLetterRepository
	opts          FareOptions
	metrics       *metrics.Metrics
	logger        logger.Logger
	now           func() time.Time
}

// NewFareDetailService creates a new fare detail service. deadLetters may be
// nil, in which case exhausted tasks are only logged.
func NewFareDetailService(
	router ProviderRouter,
	interfaceRepo repository.InterfaceRepository,
	flightRepo repository.FlightRepository,
	queue repository.TaskQueue,
	deadLetters repository.DeadLetterRepository,
	opts FareOptions,
	m *metrics.Metrics,
	log logger.Logger,
) *FareDetailService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 2
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	return &FareDetailService{
		router:        router,
		interfaceRepo: interfaceRepo,
		flightRepo:    flightRepo,
		queue:         queue,
		deadLetters:   deadLetters,
		opts:          opts,
		metrics:       m,
		logger:        log.With("component", "fare_detail"),
		now:           time.Now,
	}
}

// QueueAvailable reports whether fare tasks can be queued
func (s *FareDetailService) QueueAvailable() bool {
	return s.queue != nil
}

// FillMissingFareDetail enqueues a task for every upcoming class without
// fare detail on providers that serve it. Without a task queue it does
// nothing.
func (s *FareDetailService) FillMissingFareDetail(ctx context.Context) entity.FareFillStats {
	var stats entity.FareFillStats
	if s.queue == nil {
		s.logger.Warn("Skipping fare fill", "error", entity.ErrQueueUnavailable)
		return stats
	}

	var providers []string
	for _, name := range s.router.Providers() {
		handler, err := s.router.Get(name)
		if err == nil && handler.Adapter.Capabilities().FareDetail {
			providers = append(providers, name)
		}
	}
	if len(providers) == 0 {
		return stats
	}

	refs, err := s.flightRepo.ClassesMissingFare(ctx, providers, s.now(), s.opts.BatchSize)
	if err != nil {
		stats.Errors++
		s.metrics.OperationErrors.WithLabelValues("fare_fill").Inc()
		s.logger.Error("Failed to load classes missing fare detail", "error", err)
		return stats
	}
	stats.Candidates = len(refs)

	for _, ref := range refs {
		task := &entity.FareTask{
			Provider:      ref.Provider,
			InterfaceID:   ref.InterfaceID,
			FlightClassID: ref.ClassID,
			Origin:        ref.Origin,
			Destination:   ref.Destination,
			ClassCode:     ref.ClassCode,
			FlightNumber:  ref.FlightNumber,
			DepartureAt:   ref.DepartureAt,
		}
		if err := s.queue.Enqueue(ctx, task); err != nil {
			stats.Errors++
			s.logger.Warn("Failed to enqueue fare task", "class_id", ref.ClassID, "error", err)
			continue
		}
		stats.Queued++
		s.metrics.FareTasksQueued.WithLabelValues(ref.Provider).Inc()
	}

	s.logger.Info("Queued missing fare details", "candidates", stats.Candidates, "queued", stats.Queued)
	return stats
}

// HandleTask fetches and stores the fare detail of one class. The fetch is
// tried MaxAttempts times with a fixed pause; a task that still fails is
// dead-lettered and the stored class is left as it is.
func (s *FareDetailService) HandleTask(ctx context.Context, task *entity.FareTask) error {
	handler, err := s.router.Get(task.Provider)
	if err != nil {
		return s.deadLetter(ctx, task, 0, err)
	}
	iface, err := s.interfaceRepo.ByID(ctx, task.InterfaceID)
	if err != nil {
		return s.deadLetter(ctx, task, 0, fmt.Errorf("load interface %d: %w", task.InterfaceID, err))
	}

	req := entity.FareRequest{
		Origin:       task.Origin,
		Destination:  task.Destination,
		ClassCode:    task.ClassCode,
		Date:         task.DepartureAt,
		FlightNumber: task.FlightNumber,
	}

	attempts := 0
	fare, err := backoff.Retry(ctx, func() (*entity.RawFare, error) {
		attempts++
		fare, err := handler.Adapter.GetFareDetail(ctx, iface, req)
		if errors.Is(err, entity.ErrCapabilityUnsupported) {
			return nil, backoff.Permanent(err)
		}
		return fare, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(s.opts.Backoff)),
		backoff.WithMaxTries(uint(s.opts.MaxAttempts)),
	)
	if err != nil {
		return s.deadLetter(ctx, task, attempts, err)
	}

	if err := s.flightRepo.SaveFareDetail(ctx, task.FlightClassID, fare, s.now()); err != nil {
		s.logger.Error("Failed to store fare detail", "class_id", task.FlightClassID, "error", err)
		return fmt.Errorf("store fare detail of class %d: %w", task.FlightClassID, err)
	}
	return nil
}

func (s *FareDetailService) deadLetter(ctx context.Context, task *entity.FareTask, attempts int, cause error) error {
	s.metrics.FareTasksFailed.WithLabelValues(task.Provider).Inc()
	s.logger.Warn("Fare task exhausted its retries",
		"task_id", task.ID,
		"class_id", task.FlightClassID,
		"flight", task.FlightNumber,
		"attempts", attempts,
		"error", cause)

	if s.deadLetters == nil {
		return cause
	}

	payload, _ := json.Marshal(task)
	now := s.now().UTC()
	letter := &entity.DeadLetter{
		TaskID:    task.ID,
		Kind:      "fare_detail",
		Provider:  task.Provider,
		Payload:   string(payload),
		Error:     cause.Error(),
		Attempts:  attempts,
		FailedAt:  now,
		CreatedAt: now,
	}
	if err := s.deadLetters.Save(ctx, letter); err != nil {
		s.logger.Error("Failed to save dead letter", "task_id", task.ID, "error", err)
		return errors.Join(cause, err)
	}
	return cause
}

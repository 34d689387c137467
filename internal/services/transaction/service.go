package transaction

import (
	"context"
	"errors"
	"time"

	apperrors "stase/internal/errors"
	"stase/internal/models"
	"stase/internal/repositories"

	"github.com/sirupsen/logrus"
)

// Deps are the engine's collaborators. Events, Metrics and Log are
// optional.
type Deps struct {
	Store      repositories.Store
	Rates      RateTable
	References ReferenceGenerator
	Pins       PinAuthorizer
	Events     EventPublisher
	Metrics    MetricsCollector
	Log        *logrus.Logger
}

type service struct {
	store   repositories.Store
	rates   RateTable
	refs    ReferenceGenerator
	pins    PinAuthorizer
	events  EventPublisher
	metrics MetricsCollector
	log     *logrus.Logger
	config  Config
	now     func() time.Time
}

// NewService creates a new transaction engine
func NewService(deps Deps, config Config) Service {
	if deps.Store == nil {
		panic("store is required")
	}
	if deps.Rates == nil {
		panic("rate table is required")
	}
	if deps.References == nil {
		panic("reference generator is required")
	}
	if deps.Pins == nil {
		panic("pin authorizer is required")
	}

	s := &service{
		store:   deps.Store,
		rates:   deps.Rates,
		refs:    deps.References,
		pins:    deps.Pins,
		events:  deps.Events,
		metrics: deps.Metrics,
		log:     deps.Log,
		config:  config,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if s.metrics == nil {
		s.metrics = &NoopMetricsCollector{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.config.MaxDeposit.IsZero() {
		s.config.MaxDeposit = DefaultMaxDeposit
	}
	if s.config.PublishTimeout <= 0 {
		s.config.PublishTimeout = DefaultPublishTimeout
	}
	if s.config.MaxRetries < 0 {
		s.config.MaxRetries = 0
	}
	return s
}

// runUnit executes fn in a unit of work, rerunning it when the store
// reports a reference collision or a transient failure. fn must be safe
// to rerun: it draws fresh references on every attempt.
func (s *service) runUnit(ctx context.Context, op string, fn func(tx repositories.Store) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.store.ExecuteInTransaction(ctx, fn)
		if err == nil || !repositories.IsRetryable(err) {
			return translate(err)
		}
		if attempt >= s.config.MaxRetries {
			break
		}

		s.metrics.RecordRetry(op, attempt+1)
		s.log.WithError(err).WithFields(logrus.Fields{
			"operation": op,
			"attempt":   attempt + 1,
		}).Warn("retrying unit of work")

		backoff := s.config.RetryBackoff * time.Duration(attempt+1)
		if backoff > 0 {
			select {
			case <-ctx.Done():
				return apperrors.Internal(ctx.Err())
			case <-time.After(backoff):
			}
		}
	}

	s.log.WithError(err).WithField("operation", op).Error("unit of work failed after retries")
	return apperrors.ErrConflict.Wrap(err)
}

// observe records the outcome of one operation.
func (s *service) observe(op string, start time.Time, err error) {
	s.metrics.RecordOperationDuration(op, time.Since(start))
	if err != nil {
		s.metrics.RecordOperationResult(op, ResultFailure)
		s.metrics.RecordError(op, apperrors.KindOf(err).String())
		return
	}
	s.metrics.RecordOperationResult(op, ResultSuccess)
}

// publish announces committed rows. Failures never undo the operation.
// The write is detached from request cancellation and capped at
// PublishTimeout so a slow broker cannot hold the response.
func (s *service) publish(ctx context.Context, entries ...*models.LedgerEntry) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.PublishTimeout)
	defer cancel()
	if err := s.events.PublishCompleted(ctx, entries...); err != nil {
		refs := make([]string, len(entries))
		for i, e := range entries {
			refs[i] = e.Reference
		}
		s.log.WithError(err).WithField("references", refs).Warn("failed to publish transaction events")
	}
}

// nextReference draws a reference inside a unit.
func (s *service) nextReference(prefix string) (string, error) {
	ref, err := s.refs.Next(prefix)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return ref, nil
}

// lookupErr maps a repository read failure outside a unit.
func lookupErr(err error, notFound error) error {
	if errors.Is(err, repositories.ErrAccountNotFound) || errors.Is(err, repositories.ErrUserNotFound) {
		return notFound
	}
	return translate(err)
}

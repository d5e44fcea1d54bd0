package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	pkgerrors "github.com/malikhaddad/gatewatch-backend/pkg/errors"
	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
	"github.com/malikhaddad/gatewatch-backend/pkg/metrics"
)

type platesSweeper interface {
	SweepExpiredGuests(ctx context.Context, now time.Time) (int64, error)
}

type accessSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type cacheInvalidator interface {
	All(ctx context.Context)
}

// Result reports how many rows one sweep run transitioned to expired.
type Result struct {
	ExpiredAccesses int64 `json:"expired_accesses"`
	ExpiredPlates   int64 `json:"expired_plates"`
}

// Total returns the combined number of expired rows.
func (r Result) Total() int64 {
	return r.ExpiredAccesses + r.ExpiredPlates
}

// Service runs the expiration sweeps. Each sweep is one set-based
// conditional UPDATE, so a run that observes no due rows changes nothing and
// concurrent runs converge on the same end state. The two sweeps are
// independent: a pass and its mirror expiring in different ticks is an
// accepted consistency window.
type Service struct {
	plates      platesSweeper
	accesses    accessSweeper
	invalidator cacheInvalidator
	metrics     *metrics.CronJobMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the sweep service. metrics and logg may be nil.
func NewService(
	plates platesSweeper,
	accesses accessSweeper,
	invalidator cacheInvalidator,
	jobMetrics *metrics.CronJobMetrics,
	logg *logger.Logger,
) (*Service, error) {
	if plates == nil {
		return nil, fmt.Errorf("plates sweeper required")
	}
	if accesses == nil {
		return nil, fmt.Errorf("access sweeper required")
	}
	if invalidator == nil {
		return nil, fmt.Errorf("cache invalidator required")
	}
	return &Service{
		plates:      plates,
		accesses:    accesses,
		invalidator: invalidator,
		metrics:     jobMetrics,
		logg:        logg,
		now:         time.Now,
	}, nil
}

// RunExpirationSweep expires due temporary accesses and guest plates.
// Both sweeps always run; their errors are combined so one failing store
// call does not hide the other sweep's outcome.
func (s *Service) RunExpirationSweep(ctx context.Context) (Result, error) {
	now := s.now().UTC()
	var result Result
	var errs error

	accesses, err := s.accesses.SweepExpired(ctx, now)
	if err != nil {
		errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sweeping temporary accesses"))
	}
	result.ExpiredAccesses = accesses
	s.metrics.AddExpired("temporary_access", accesses)

	plates, err := s.plates.SweepExpiredGuests(ctx, now)
	if err != nil {
		errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sweeping guest plates"))
	}
	result.ExpiredPlates = plates
	s.metrics.AddExpired("plate", plates)

	if result.Total() > 0 {
		s.invalidator.All(ctx)
		if s.logg != nil {
			fields := map[string]any{
				"expired_accesses": result.ExpiredAccesses,
				"expired_plates":   result.ExpiredPlates,
			}
			s.logg.Info(s.logg.WithFields(ctx, fields), "expiration sweep applied")
		}
	}
	return result, errs
}

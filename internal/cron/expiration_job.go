package cron

import (
	"context"
	"errors"

	"github.com/malikhaddad/gatewatch-backend/internal/sweep"
	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
)

const expirationJobName = "expiration_sweep"

type sweeper interface {
	RunExpirationSweep(ctx context.Context) (sweep.Result, error)
}

// expirationJob drives the periodic expiration sweep over temporary
// accesses and guest plates.
type expirationJob struct {
	sweeper sweeper
	logg    *logger.Logger
}

// NewExpirationJob wraps the sweep service as a scheduled job.
func NewExpirationJob(sweeper sweeper, logg *logger.Logger) (Job, error) {
	if sweeper == nil {
		return nil, errors.New("sweep service required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &expirationJob{sweeper: sweeper, logg: logg}, nil
}

func (j *expirationJob) Name() string {
	return expirationJobName
}

func (j *expirationJob) Run(ctx context.Context) error {
	result, err := j.sweeper.RunExpirationSweep(ctx)
	if err != nil {
		return err
	}
	if result.Total() > 0 {
		fields := map[string]any{
			"expired_accesses": result.ExpiredAccesses,
			"expired_plates":   result.ExpiredPlates,
		}
		j.logg.Info(j.logg.WithFields(ctx, fields), "expiration job swept rows")
	}
	return nil
}

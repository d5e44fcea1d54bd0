package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/malikhaddad/gatewatch-backend/internal/sweep"
	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
)

type fakeSweeper struct {
	result sweep.Result
	err    error
	runs   int
}

func (f *fakeSweeper) RunExpirationSweep(context.Context) (sweep.Result, error) {
	f.runs++
	return f.result, f.err
}

func TestExpirationJobRunsSweep(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "sweeper-test"})
	sweeper := &fakeSweeper{result: sweep.Result{ExpiredPlates: 2, ExpiredAccesses: 1}}

	job, err := NewExpirationJob(sweeper, logg)
	if err != nil {
		t.Fatalf("NewExpirationJob: %v", err)
	}
	if job.Name() != "expiration_sweep" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.runs != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.runs)
	}
}

func TestExpirationJobPropagatesError(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "sweeper-test"})
	boom := errors.New("store down")
	job, err := NewExpirationJob(&fakeSweeper{err: boom}, logg)
	if err != nil {
		t.Fatalf("NewExpirationJob: %v", err)
	}
	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected propagated error, got %v", err)
	}
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/chitra-ai/chitra-api/internal/pkg/metrics"
)

// jobTimeout bounds a single run.
const jobTimeout = 10 * time.Minute

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
}

// registerJobs adds every job with a non-empty schedule to c.
func registerJobs(ctx context.Context, c *cron.Cron, jobs []job) error {
	for _, j := range jobs {
		if j.schedule == "" {
			log.Warn().Str("job", j.name).Msg("Job has no schedule, skipping")
			continue
		}
		if _, err := c.AddFunc(j.schedule, runner(ctx, j)); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", j.name, j.schedule, err)
		}
		log.Info().Str("job", j.name).Str("schedule", j.schedule).Msg("Job scheduled")
	}
	return nil
}

func runner(ctx context.Context, j job) func() {
	return func() {
		runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		start := time.Now()
		err := j.run(runCtx)
		metrics.RecordJobRun(j.name, err)

		if err != nil {
			log.Error().Err(err).Str("job", j.name).Dur("elapsed", time.Since(start)).Msg("Job failed")
			return
		}
		log.Info().Str("job", j.name).Dur("elapsed", time.Since(start)).Msg("Job completed")
	}
}

// cronLogger routes scheduler events to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

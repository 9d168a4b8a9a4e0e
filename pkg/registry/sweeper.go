package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/condoplane/condoplane/pkg/observability"
)

// Sweeper periodically demotes instances whose heartbeat has gone
// silent to DOWN. The analyzed system never expired stale rows, leaving
// permanently-UP ghosts after a crash; the sweep closes that gap as an
// explicitly new, opt-in behavior. Rows are demoted, never deleted, so
// they stay visible in list() for operators.
type Sweeper struct {
	service    *Service
	cron       *cron.Cron
	interval   time.Duration
	maxSilence time.Duration
	logger     *observability.Logger
}

// NewSweeper creates a sweeper that runs every interval and demotes UP
// instances silent for longer than maxSilence.
func NewSweeper(service *Service, interval, maxSilence time.Duration, logger *observability.Logger) (*Sweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	if maxSilence <= 0 {
		return nil, fmt.Errorf("max silence must be positive, got %s", maxSilence)
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Sweeper{
		service:    service,
		cron:       cron.New(),
		interval:   interval,
		maxSilence: maxSilence,
		logger:     logger,
	}, nil
}

// Start schedules the sweep. A failed sweep is logged and retried at
// the next scheduled run.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()

		demoted, err := s.service.SweepStale(ctx, s.maxSilence)
		if err != nil {
			s.logger.WithError(err).Error("stale sweep failed")
			return
		}
		if demoted > 0 {
			s.logger.WithFields(map[string]interface{}{
				"demoted":     demoted,
				"max_silence": s.maxSilence.String(),
			}).Info("stale sweep demoted silent services")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(map[string]interface{}{
		"interval":    s.interval.String(),
		"max_silence": s.maxSilence.String(),
	}).Info("stale sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

package digest

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata" // timezones on hosts without zoneinfo

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/admissions/core"
)

// Scheduler runs the digest on a wall-clock cron schedule.
type Scheduler struct {
	digest  *Digest
	cron    *cron.Cron
	timeout time.Duration
	logger  core.Logger
}

// NewScheduler parses the schedule & timezone of `conf`. An empty timezone means local time.
func NewScheduler(d *Digest, conf core.DigestConfig, logger core.Logger) (*Scheduler, error) {
	loc := time.Local
	if conf.Timezone != "" && conf.Timezone != "Local" {
		var err error
		if loc, err = time.LoadLocation(conf.Timezone); err != nil {
			return nil, errors.Wrapf(err, "loading digest timezone %q", conf.Timezone)
		}
	}

	s := &Scheduler{
		digest:  d,
		cron:    cron.New(cron.WithLocation(loc)),
		timeout: 5 * time.Minute,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(conf.Schedule, s.run); err != nil {
		return nil, errors.Wrapf(err, "parsing digest schedule %q", conf.Schedule)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("starting digest scheduler")
	s.cron.Start()
}

// Stop stops scheduling new passes and waits for a running one, or for ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("stopping digest scheduler")
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for digest pass")
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.digest.Run(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("digest: %v", err), err)
	}
}

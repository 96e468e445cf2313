// Package scheduler drives periodic calendar refreshes with robfig/cron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "lusocal/internal/log"
)

// DefaultTimeout bounds a single refresh run.
const DefaultTimeout = 2 * time.Minute

// Refresher is the job the scheduler runs, normally *calendar.Provider.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs Refresh on a five-field cron expression. Runs never
// overlap: a tick that fires while the previous run is busy is skipped.
type Scheduler struct {
	cron    *cron.Cron
	target  Refresher
	spec    string
	timeout time.Duration

	mu      sync.Mutex
	entry   cron.EntryID
	ctx     context.Context
	started bool
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate reports whether spec is an accepted schedule expression.
func Validate(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return errors.New("empty schedule")
	}
	_, err := parser.Parse(spec)
	return err
}

func New(spec string, target Refresher, timeout time.Duration) (*Scheduler, error) {
	if target == nil {
		return nil, errors.New("scheduler: nil refresher")
	}
	if err := Validate(spec); err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	return &Scheduler{cron: c, target: target, spec: spec, timeout: timeout}, nil
}

// Start registers the refresh job and starts the cron loop. The loop stops
// when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler: already started")
	}

	s.ctx = ctx
	id, err := s.cron.AddFunc(s.spec, s.run)
	if err != nil {
		return fmt.Errorf("scheduler: register refresh: %w", err)
	}
	s.entry = id
	s.started = true
	s.cron.Start()
	appLog.Info("scheduler started", "schedule", s.spec, "next", s.cron.Entry(id).Next.Format(time.RFC3339))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the cron loop and waits for a running refresh to finish.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
}

// Next is the time of the next scheduled refresh, zero when stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) run() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil || parent.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.target.Refresh(ctx); err != nil {
		appLog.Error("scheduled refresh failed", err, "elapsed", time.Since(start))
		return
	}
	appLog.Info("scheduled refresh completed", "elapsed", time.Since(start))
}

package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

// Refresher re-runs the orchestration pass for the selected city.
type Refresher interface {
	Refresh(ctx context.Context) (dashboard.Pass, error)
}

// Scheduler performs the initial load and then refreshes the dashboard periodically.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. An interval <= 0 performs only the initial load.
func New(interval, timeout time.Duration, service Refresher) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler: s,
		service:   service,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the refresh job; gocron runs it once immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: periodic refresh disabled; running initial load only")
		go s.refresh()
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.refresh)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	pass, err := s.service.Refresh(ctx)
	switch {
	case errors.Is(err, dashboard.ErrSuperseded):
		log.Println("scheduler: refresh superseded by a newer search")
	case err != nil:
		log.Printf("scheduler: refresh failed: %v", err)
	default:
		log.Printf("scheduler: refreshed %s", pass)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

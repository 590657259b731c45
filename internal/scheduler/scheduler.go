package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"linggo_sync/internal/usecase/notify"
)

const runTimeout = 10 * time.Minute

// Runner sends one round of a notification kind.
type Runner interface {
	RunReview(ctx context.Context, now time.Time) (notify.Report, error)
	RunDaysAway(ctx context.Context, now time.Time) (notify.Report, error)
}

// Scheduler runs review notifications at the top of every hour and days away
// reminders once a day.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	runner     Runner
	log        *zap.SugaredLogger
	daysAwayAt string
	now        func() time.Time
}

func New(runner Runner, log *zap.SugaredLogger, daysAwayAt string) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:  s,
		runner:     runner,
		log:        log,
		daysAwayAt: daysAwayAt,
		now:        time.Now,
	}
}

// Start registers the jobs and runs them in the background.
func (s *Scheduler) Start() error {
	if err := s.schedule(); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) schedule() error {
	// review times are whole hours in the user's zone, so run on the hour
	if _, err := s.scheduler.Cron("0 * * * *").Tag(notify.KindReview).Do(s.review); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(1).Day().At(s.daysAwayAt).Tag(notify.KindDaysAway).Do(s.daysAway); err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) review() {
	s.run(notify.KindReview, s.runner.RunReview)
}

func (s *Scheduler) daysAway() {
	s.run(notify.KindDaysAway, s.runner.RunDaysAway)
}

func (s *Scheduler) run(kind string, fn func(context.Context, time.Time) (notify.Report, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	report, err := fn(ctx, s.now())
	if err != nil {
		s.log.Errorf("Scheduler: %s run failed: %v", kind, err)
		return
	}
	s.log.Infof("Scheduler: %s run done: %d recipient(s), %d sent", kind, report.Recipients, report.Sent)
}

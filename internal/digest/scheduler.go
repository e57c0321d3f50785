package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teemow/taskdeck/internal/gmail"
	"github.com/teemow/taskdeck/internal/instrumentation"
	"github.com/teemow/taskdeck/internal/logging"
	"github.com/teemow/taskdeck/internal/store"
)

// Mailer sends a plain-text mail. *gmail.Client implements it.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) (*gmail.Receipt, error)
}

// Scheduler runs the nightly digest. Create one with NewScheduler and call
// Start; Stop disarms the timer.
type Scheduler struct {
	store   store.Store
	mailer  Mailer
	loc     *time.Location
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time

	mu       sync.Mutex
	running  bool
	timer    *time.Timer
	nextFire time.Time
}

// NewScheduler creates a scheduler that fires at local midnight in loc.
// A nil loc means time.Local, a nil logger means slog.Default(), a nil
// metrics records nothing.
func NewScheduler(st store.Store, mailer Mailer, loc *time.Location, logger *slog.Logger, metrics *instrumentation.Metrics) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Scheduler{
		store:   st,
		mailer:  mailer,
		loc:     loc,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// NextMidnight returns the first midnight in loc strictly after now.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.AddDate(0, 0, 1)
}

// Start arms the timer for the next midnight. Calling Start on an already
// started scheduler re-arms it.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.armLocked(ctx)
	s.logger.Info("digest scheduler started", "next_fire", s.nextFire)
}

// Stop disarms the timer. It is safe to call on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.nextFire = time.Time{}
}

// Running reports whether the scheduler has been started and not stopped. A
// scheduler that was never started is not running; that is a deliberate
// state, not a fault.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextFire returns when the scheduler will fire next, or the zero time when
// it is stopped.
func (s *Scheduler) NextFire() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextFire
}

// Armed reports whether a future fire is scheduled.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Scheduler) armLocked(ctx context.Context) {
	if s.timer != nil {
		s.timer.Stop()
	}
	now := s.now()
	s.nextFire = NextMidnight(now, s.loc)
	s.timer = time.AfterFunc(s.nextFire.Sub(now), func() { s.onFire(ctx) })
}

func (s *Scheduler) onFire(ctx context.Context) {
	// Re-arm before doing any work so a panic or error in one run can
	// never leave the schedule dead. A timer firing concurrently with Stop
	// must not resurrect a stopped scheduler.
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.armLocked(ctx)
	s.mu.Unlock()

	if err := s.runNightly(ctx); err != nil {
		s.logger.Error("nightly digest run failed", logging.Err(err))
	}
}

// runNightly mails the unfinished tasks of every bucket except today's and
// then removes the past buckets. The cleanup runs whether or not the mail
// went out; a lost digest is recoverable, unbounded bucket growth is not.
func (s *Scheduler) runNightly(ctx context.Context) error {
	today := store.DayKey(s.now().In(s.loc))

	keys, err := s.store.DayKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing day buckets: %w", err)
	}

	var past []string
	for _, key := range keys {
		if key != today {
			past = append(past, key)
		}
	}

	status := instrumentation.StatusSuccess
	count, err := s.mailUnfinished(ctx, past)
	if err != nil {
		status = instrumentation.StatusError
		s.logger.Warn("digest mail not sent", logging.Err(err))
	}
	s.metrics.RecordDigestRun(ctx, instrumentation.DigestTriggerNightly, status, count)

	if len(past) > 0 {
		if err := s.store.RemoveDayKeys(ctx, past); err != nil {
			return fmt.Errorf("removing past buckets: %w", err)
		}
		s.metrics.AddDayBuckets(ctx, -len(past))
		s.logger.Info("past day buckets removed", "count", len(past))
	}
	return nil
}

// SendNow mails the unfinished tasks of every bucket including today's.
// Nothing is removed. Unlike the nightly run a send failure is returned to
// the caller, who asked for the mail explicitly.
func (s *Scheduler) SendNow(ctx context.Context) error {
	keys, err := s.store.DayKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing day buckets: %w", err)
	}

	count, err := s.mailUnfinished(ctx, keys)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	s.metrics.RecordDigestRun(ctx, instrumentation.DigestTriggerManual, status, count)
	return err
}

// mailUnfinished collects unfinished tasks from the given buckets and sends
// them as one digest, returning the number of tasks reported. It is a no-op
// when notifications are disabled, no address is stored, or nothing is
// unfinished.
func (s *Scheduler) mailUnfinished(ctx context.Context, keys []string) (int, error) {
	pref, err := s.store.Preference(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading notification preference: %w", err)
	}
	if !pref.Enabled || pref.Email == "" {
		s.logger.Debug("digest skipped, notifications disabled")
		return 0, nil
	}

	var lines []string
	for _, key := range keys {
		tasks, err := s.store.Tasks(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("reading bucket %s: %w", key, err)
		}
		for _, task := range tasks {
			if !task.Done {
				lines = append(lines, "• "+task.Title)
			}
		}
	}
	if len(lines) == 0 {
		s.logger.Debug("digest skipped, nothing unfinished")
		return 0, nil
	}

	date := s.now().In(s.loc).Format("2006-01-02")
	subject := "Taskdeck: Unfinished tasks for " + date
	body := "You have unfinished tasks:\n\n" + strings.Join(lines, "\n") +
		"\n\nOpen Taskdeck to review them."

	if _, err := s.mailer.Send(ctx, pref.Email, subject, body); err != nil {
		return len(lines), err
	}
	s.logger.Info("digest sent", logging.UserHash(pref.Email), "tasks", len(lines))
	return len(lines), nil
}

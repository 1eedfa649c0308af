// Package sweep closes scheduled quizzes whose due date has passed. Every
// student on the class roster without a grade gets a zero.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/classquiz/internal/events"
	"github.com/pavelanni/classquiz/internal/metrics"
	"github.com/pavelanni/classquiz/internal/model"
)

// ErrSweepInProgress is returned by Run when another sweep holds the lock.
var ErrSweepInProgress = errors.New("completion sweep already in progress")

// Store is the persistence the sweep needs. *store.Store implements it.
type Store interface {
	ListOverdue(ctx context.Context, cutoff time.Time) ([]model.ScheduledQuiz, error)
	ClassStudentIDs(ctx context.Context, classID int64) ([]int64, error)
	GradedStudentIDs(ctx context.Context, scheduledQuizID int64) ([]int64, error)
	CompleteScheduledQuiz(ctx context.Context, id int64, zeroFill []int64, at time.Time) (bool, int, error)
}

// Report summarizes one sweep run.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	Cutoff     time.Time `json:"cutoff"`
	Selected   int       `json:"selected"`
	Completed  int       `json:"completed"`
	Skipped    int       `json:"skipped"`
	ZeroFilled int       `json:"zero_filled"`
	Failed     int       `json:"failed"`
}

// Sweeper runs the completion sweep.
type Sweeper struct {
	store   Store
	events  events.Publisher
	now     func() time.Time
	loc     *time.Location
	lockers []Locker
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithLocation sets the timezone that decides where a day starts.
func WithLocation(loc *time.Location) Option {
	return func(s *Sweeper) { s.loc = loc }
}

// WithLocker adds a lock that must be held during a run, in addition to the
// process-local one.
func WithLocker(l Locker) Option {
	return func(s *Sweeper) { s.lockers = append(s.lockers, l) }
}

// WithPublisher sets where completion events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Sweeper) { s.events = p }
}

// New creates a Sweeper. It defaults to UTC, the wall clock and no events.
func New(st Store, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:   st,
		events:  events.Nop{},
		now:     time.Now,
		loc:     time.UTC,
		lockers: []Locker{&LocalLocker{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cutoff returns the start of the day containing now in the sweep's
// timezone. Quizzes due at or before it are closed.
func (s *Sweeper) Cutoff(now time.Time) time.Time {
	local := now.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}

// Run closes every open scheduled quiz due before today. A failure on one
// quiz is logged and counted; the others are still processed. A quiz that
// is already complete is skipped without writing grades, so running twice
// is harmless.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	release, err := s.lock(ctx)
	if err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			metrics.SweepRuns.WithLabelValues("busy").Inc()
		} else {
			metrics.SweepRuns.WithLabelValues("failed").Inc()
		}
		return Report{}, err
	}
	defer release()

	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	now := s.now()
	report := Report{RunID: uuid.NewString(), StartedAt: now, Cutoff: s.Cutoff(now)}
	log := slog.With("run_id", report.RunID)

	due, err := s.store.ListOverdue(ctx, report.Cutoff)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("failed").Inc()
		return report, fmt.Errorf("list overdue quizzes: %w", err)
	}
	report.Selected = len(due)
	log.Info("completion sweep started", "cutoff", report.Cutoff, "selected", len(due))

	for _, sq := range due {
		if err := ctx.Err(); err != nil {
			metrics.SweepRuns.WithLabelValues("failed").Inc()
			return report, err
		}
		completed, filled, err := s.complete(ctx, sq, now)
		switch {
		case err != nil:
			report.Failed++
			log.Error("failed to complete scheduled quiz", "scheduled_quiz_id", sq.ID, "error", err)
		case !completed:
			report.Skipped++
			log.Debug("scheduled quiz already complete", "scheduled_quiz_id", sq.ID)
		default:
			report.Completed++
			report.ZeroFilled += filled
			metrics.SweepQuizzesCompleted.Inc()
			metrics.GradesRecorded.WithLabelValues("sweep").Add(float64(filled))
			log.Info("completed scheduled quiz", "scheduled_quiz_id", sq.ID, "zero_filled", filled)
			s.publish(ctx, events.QuizCompleted{
				ScheduledQuizID: sq.ID,
				ZeroFilled:      filled,
				CompletedAt:     now,
				RunID:           report.RunID,
			})
		}
	}

	status := "ok"
	if report.Failed > 0 {
		status = "partial"
	}
	metrics.SweepRuns.WithLabelValues(status).Inc()
	log.Info("completion sweep finished",
		"completed", report.Completed, "skipped", report.Skipped,
		"zero_filled", report.ZeroFilled, "failed", report.Failed)
	return report, nil
}

func (s *Sweeper) complete(ctx context.Context, sq model.ScheduledQuiz, now time.Time) (bool, int, error) {
	roster, err := s.store.ClassStudentIDs(ctx, sq.ClassID)
	if err != nil {
		return false, 0, fmt.Errorf("load roster: %w", err)
	}
	graded, err := s.store.GradedStudentIDs(ctx, sq.ID)
	if err != nil {
		return false, 0, fmt.Errorf("load graded students: %w", err)
	}
	return s.store.CompleteScheduledQuiz(ctx, sq.ID, missing(roster, graded), now)
}

// missing returns the roster ids not in graded, in roster order.
func missing(roster, graded []int64) []int64 {
	have := make(map[int64]struct{}, len(graded))
	for _, id := range graded {
		have[id] = struct{}{}
	}
	out := make([]int64, 0, len(roster))
	for _, id := range roster {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (s *Sweeper) publish(ctx context.Context, ev events.QuizCompleted) {
	if err := s.events.Publish(ctx, events.KeyQuizCompleted, ev); err != nil {
		slog.Warn("failed to publish event", "key", events.KeyQuizCompleted, "error", err)
	}
}

// lock takes every configured lock in order and returns a function that
// releases them in reverse.
func (s *Sweeper) lock(ctx context.Context) (func(), error) {
	held := make([]func(), 0, len(s.lockers))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	for _, l := range s.lockers {
		unlock, err := l.TryLock(ctx)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, unlock)
	}
	return release, nil
}

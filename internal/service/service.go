// Package service implements the classroom operations behind the HTTP API
// and the command line: rosters, quizzes, submissions and grade reports.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pavelanni/classquiz/internal/events"
	"github.com/pavelanni/classquiz/internal/model"
)

// Store is the persistence the service needs. *store.Store implements it.
type Store interface {
	CreateUser(ctx context.Context, u model.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id int64) (model.User, error)
	StudentIDsByEmail(ctx context.Context, emails []string) ([]int64, error)

	CreateClass(ctx context.Context, c model.Class) (int64, error)
	GetClass(ctx context.Context, id int64) (model.Class, error)
	ListClasses(ctx context.Context, instructorID int64) ([]model.Class, error)
	ClassStudentIDs(ctx context.Context, classID int64) ([]int64, error)
	RenameClass(ctx context.Context, id int64, title string) error
	AddStudents(ctx context.Context, classID int64, studentIDs []int64) (int, error)
	RemoveStudents(ctx context.Context, classID int64, studentIDs []int64) (int, error)
	DeleteClass(ctx context.Context, id int64) error

	CreateQuiz(ctx context.Context, q model.Quiz) (int64, error)
	GetQuiz(ctx context.Context, id int64) (model.Quiz, error)
	ListQuizzes(ctx context.Context, instructorID int64) ([]model.QuizSummary, error)
	UpdateQuiz(ctx context.Context, q model.Quiz) error
	DeleteQuiz(ctx context.Context, id int64) error

	ScheduleQuiz(ctx context.Context, sq model.ScheduledQuiz) (int64, error)
	GetScheduledQuiz(ctx context.Context, id int64) (model.ScheduledQuiz, error)
	UpdateDueDate(ctx context.Context, id int64, due time.Time) error
	DeleteScheduledQuiz(ctx context.Context, id int64) error
	RecordGrade(ctx context.Context, g model.Grade) error

	ListScheduledQuizDetails(ctx context.Context, f model.ScheduledQuizQuery) ([]model.ScheduledQuizDetail, error)
	ListGrades(ctx context.Context, scheduledQuizIDs []int64) ([]model.Grade, error)
	StudentGradesIn(ctx context.Context, studentID int64, scheduledQuizIDs []int64) ([]model.Grade, error)
}

// Service holds shared dependencies of the core operations.
type Service struct {
	store  Store
	events events.Publisher
	now    func() time.Time
}

// New creates a Service. A nil publisher discards events.
func New(s Store, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: s, events: pub, now: time.Now}
}

// publish sends an event without failing the operation that produced it.
func (s *Service) publish(ctx context.Context, key string, payload any) {
	if err := s.events.Publish(ctx, key, payload); err != nil {
		slog.Warn("failed to publish event", "key", key, "error", err)
	}
}

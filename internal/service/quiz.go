package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pavelanni/classquiz/internal/model"
)

// CreateQuiz stores a new quiz owned by instructorID.
func (s *Service) CreateQuiz(ctx context.Context, instructorID int64, req model.NewQuiz) (model.Quiz, error) {
	if err := model.Validate(req); err != nil {
		return model.Quiz{}, err
	}
	q := model.Quiz{
		InstructorID: instructorID,
		Title:        strings.TrimSpace(req.Title),
		TimeLimit:    req.TimeLimit,
		Questions:    req.Questions,
	}
	id, err := s.store.CreateQuiz(ctx, q)
	if err != nil {
		return model.Quiz{}, err
	}
	slog.Info("created quiz", "id", id, "instructor_id", instructorID, "questions", len(q.Questions))
	return s.store.GetQuiz(ctx, id)
}

// UpdateQuiz replaces the content of an owned quiz. Grades already recorded
// are kept as they are.
func (s *Service) UpdateQuiz(ctx context.Context, instructorID, quizID int64, req model.NewQuiz) (model.Quiz, error) {
	if err := model.Validate(req); err != nil {
		return model.Quiz{}, err
	}
	q, err := s.ownedQuiz(ctx, instructorID, quizID)
	if err != nil {
		return model.Quiz{}, err
	}
	q.Title = strings.TrimSpace(req.Title)
	q.TimeLimit = req.TimeLimit
	q.Questions = req.Questions
	if err := s.store.UpdateQuiz(ctx, q); err != nil {
		return model.Quiz{}, err
	}
	return q, nil
}

// GetQuiz returns an owned quiz including its answer key.
func (s *Service) GetQuiz(ctx context.Context, instructorID, quizID int64) (model.Quiz, error) {
	return s.ownedQuiz(ctx, instructorID, quizID)
}

// ListQuizzes returns the instructor's quizzes sorted by title.
func (s *Service) ListQuizzes(ctx context.Context, instructorID int64) ([]model.QuizSummary, error) {
	return s.store.ListQuizzes(ctx, instructorID)
}

// DeleteQuiz deletes an owned quiz with its scheduled quizzes and grades.
func (s *Service) DeleteQuiz(ctx context.Context, instructorID, quizID int64) error {
	if _, err := s.ownedQuiz(ctx, instructorID, quizID); err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	slog.Info("deleted quiz", "id", quizID, "instructor_id", instructorID)
	return nil
}

// ScheduleQuiz assigns an owned quiz to an owned class.
func (s *Service) ScheduleQuiz(ctx context.Context, instructorID int64, req model.NewScheduledQuiz) (model.ScheduledQuiz, error) {
	if err := model.Validate(req); err != nil {
		return model.ScheduledQuiz{}, err
	}
	if _, err := s.ownedQuiz(ctx, instructorID, req.QuizID); err != nil {
		return model.ScheduledQuiz{}, err
	}
	if _, err := s.ownedClass(ctx, instructorID, req.ClassID); err != nil {
		return model.ScheduledQuiz{}, err
	}
	id, err := s.store.ScheduleQuiz(ctx, model.ScheduledQuiz{QuizID: req.QuizID, ClassID: req.ClassID, DueDate: req.DueDate})
	if err != nil {
		return model.ScheduledQuiz{}, err
	}
	slog.Info("scheduled quiz", "id", id, "quiz_id", req.QuizID, "class_id", req.ClassID, "due", req.DueDate)
	return s.store.GetScheduledQuiz(ctx, id)
}

// RescheduleQuiz moves the due date of an owned, still open scheduled quiz.
func (s *Service) RescheduleQuiz(ctx context.Context, instructorID, scheduledQuizID int64, req model.DueDateUpdate) error {
	if err := model.Validate(req); err != nil {
		return err
	}
	if _, err := s.ownedScheduledQuiz(ctx, instructorID, scheduledQuizID); err != nil {
		return err
	}
	return s.store.UpdateDueDate(ctx, scheduledQuizID, req.DueDate)
}

// DeleteScheduledQuiz deletes an owned scheduled quiz and its grades.
func (s *Service) DeleteScheduledQuiz(ctx context.Context, instructorID, scheduledQuizID int64) error {
	if _, err := s.ownedScheduledQuiz(ctx, instructorID, scheduledQuizID); err != nil {
		return err
	}
	return s.store.DeleteScheduledQuiz(ctx, scheduledQuizID)
}

func (s *Service) ownedQuiz(ctx context.Context, instructorID, quizID int64) (model.Quiz, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return model.Quiz{}, err
	}
	if q.InstructorID != instructorID {
		return model.Quiz{}, model.ErrForbidden
	}
	return q, nil
}

// ownedScheduledQuiz checks ownership through the scheduled quiz's quiz.
func (s *Service) ownedScheduledQuiz(ctx context.Context, instructorID, scheduledQuizID int64) (model.ScheduledQuiz, error) {
	sq, err := s.store.GetScheduledQuiz(ctx, scheduledQuizID)
	if err != nil {
		return model.ScheduledQuiz{}, err
	}
	if _, err := s.ownedQuiz(ctx, instructorID, sq.QuizID); err != nil {
		return model.ScheduledQuiz{}, err
	}
	return sq, nil
}

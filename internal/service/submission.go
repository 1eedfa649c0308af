package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/pavelanni/classquiz/internal/events"
	"github.com/pavelanni/classquiz/internal/metrics"
	"github.com/pavelanni/classquiz/internal/model"
	"github.com/pavelanni/classquiz/internal/scoring"
)

// ScoreAndRecordSubmission grades a student's responses and stores the
// grade. Only members of the scheduled quiz's class may submit, once, while
// the quiz is open.
func (s *Service) ScoreAndRecordSubmission(ctx context.Context, sub model.Submission) (model.SubmissionResult, error) {
	res, err := s.scoreAndRecord(ctx, sub)
	metrics.SubmissionsTotal.WithLabelValues(submissionOutcome(err)).Inc()
	return res, err
}

func (s *Service) scoreAndRecord(ctx context.Context, sub model.Submission) (model.SubmissionResult, error) {
	if err := model.Validate(sub); err != nil {
		return model.SubmissionResult{}, err
	}
	sq, quiz, err := s.enrolledQuiz(ctx, sub.StudentID, sub.ScheduledQuizID)
	if err != nil {
		return model.SubmissionResult{}, err
	}
	if sq.Complete {
		return model.SubmissionResult{}, model.ErrQuizClosed
	}

	scored, err := scoring.Score(quiz.Questions, sub.Responses)
	if err != nil {
		return model.SubmissionResult{}, err
	}

	g := model.Grade{
		ScheduledQuizID: sq.ID,
		StudentID:       sub.StudentID,
		Grade:           scored.Percentage,
		Date:            s.now(),
	}
	if err := s.store.RecordGrade(ctx, g); err != nil {
		return model.SubmissionResult{}, err
	}
	metrics.GradesRecorded.WithLabelValues("submission").Inc()
	metrics.GradeHistogram.Observe(g.Grade)
	slog.Info("recorded submission", "scheduled_quiz_id", sq.ID, "student_id", sub.StudentID,
		"correct", scored.Correct, "total", scored.Total, "grade", scored.Percentage)

	s.publish(ctx, events.KeyGradeRecorded, events.GradeRecorded{
		ScheduledQuizID: g.ScheduledQuizID,
		StudentID:       g.StudentID,
		Grade:           g.Grade,
		Date:            g.Date,
	})

	return model.SubmissionResult{
		ScheduledQuizID: sq.ID,
		Correct:         scored.Correct,
		Total:           scored.Total,
		Grade:           scored.Percentage,
		PerQuestion:     scored.PerQuestion,
	}, nil
}

func submissionOutcome(err error) string {
	switch {
	case err == nil:
		return "recorded"
	case errors.Is(err, model.ErrDuplicateSubmission):
		return "duplicate"
	case errors.Is(err, model.ErrQuizClosed):
		return "closed"
	case errors.Is(err, model.ErrForbidden), errors.Is(err, model.ErrNotFound):
		return "rejected"
	default:
		var verr *model.ValidationError
		if errors.As(err, &verr) || errors.Is(err, model.ErrInvalidQuiz) {
			return "invalid"
		}
		return "error"
	}
}

// ListStudentQuizzes returns the scheduled quizzes of the student's classes
// sorted by due date, flagging the ones already submitted.
func (s *Service) ListStudentQuizzes(ctx context.Context, studentID int64) ([]model.StudentQuizView, error) {
	details, err := s.store.ListScheduledQuizDetails(ctx, model.ScheduledQuizQuery{StudentID: studentID})
	if err != nil {
		return nil, fmt.Errorf("list scheduled quizzes: %w", err)
	}
	grades, err := s.store.StudentGradesIn(ctx, studentID, detailIDs(details))
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	submitted := make(map[int64]bool, len(grades))
	for _, g := range grades {
		submitted[g.ScheduledQuizID] = true
	}

	out := make([]model.StudentQuizView, 0, len(details))
	for _, d := range details {
		out = append(out, model.StudentQuizView{
			ScheduledQuizID: d.ID,
			QuizID:          d.QuizID,
			ClassTitle:      d.ClassTitle,
			QuizTitle:       d.QuizTitle,
			DueDate:         d.DueDate,
			TimeLimit:       d.TimeLimit,
			Complete:        d.Complete,
			Submitted:       submitted[d.ID],
		})
	}
	return out, nil
}

// GetStudentQuiz returns the quiz behind a scheduled quiz without its
// answer key.
func (s *Service) GetStudentQuiz(ctx context.Context, studentID, scheduledQuizID int64) (model.Quiz, error) {
	_, quiz, err := s.enrolledQuiz(ctx, studentID, scheduledQuizID)
	if err != nil {
		return model.Quiz{}, err
	}
	return quiz.WithoutAnswers(), nil
}

// enrolledQuiz loads a scheduled quiz and its quiz, requiring the student
// to be on the class roster.
func (s *Service) enrolledQuiz(ctx context.Context, studentID, scheduledQuizID int64) (model.ScheduledQuiz, model.Quiz, error) {
	sq, err := s.store.GetScheduledQuiz(ctx, scheduledQuizID)
	if err != nil {
		return model.ScheduledQuiz{}, model.Quiz{}, err
	}
	roster, err := s.store.ClassStudentIDs(ctx, sq.ClassID)
	if err != nil {
		return model.ScheduledQuiz{}, model.Quiz{}, fmt.Errorf("load roster: %w", err)
	}
	if !slices.Contains(roster, studentID) {
		return model.ScheduledQuiz{}, model.Quiz{}, model.ErrForbidden
	}
	quiz, err := s.store.GetQuiz(ctx, sq.QuizID)
	if err != nil {
		return model.ScheduledQuiz{}, model.Quiz{}, err
	}
	return sq, quiz, nil
}

func detailIDs(details []model.ScheduledQuizDetail) []int64 {
	ids := make([]int64, len(details))
	for i, d := range details {
		ids[i] = d.ID
	}
	return ids
}

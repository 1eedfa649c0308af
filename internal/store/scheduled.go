package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pavelanni/classquiz/internal/model"
)

const scheduledColumns = `id, quiz_id, class_id, due_date, complete, created_at`

// ScheduleQuiz assigns a quiz to a class. New scheduled quizzes are open.
func (s *Store) ScheduleQuiz(ctx context.Context, sq model.ScheduledQuiz) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(
		`INSERT INTO scheduled_quizzes (quiz_id, class_id, due_date, complete, created_at)
		 VALUES (?, ?, ?, FALSE, ?) RETURNING id`),
		sq.QuizID, sq.ClassID, dbTime(sq.DueDate), dbTime(time.Now()),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert scheduled quiz: %w", err)
	}
	return id, nil
}

// GetScheduledQuiz returns a scheduled quiz with its grades.
func (s *Store) GetScheduledQuiz(ctx context.Context, id int64) (model.ScheduledQuiz, error) {
	var sq model.ScheduledQuiz
	err := s.db.GetContext(ctx, &sq, s.db.Rebind(`SELECT `+scheduledColumns+` FROM scheduled_quizzes WHERE id = ?`), id)
	if err != nil {
		return sq, notFound(err)
	}
	sq.Grades, err = s.ListGrades(ctx, []int64{id})
	return sq, err
}

// UpdateDueDate moves the due date of an open scheduled quiz. A completed
// one yields model.ErrQuizClosed.
func (s *Store) UpdateDueDate(ctx context.Context, id int64, due time.Time) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE scheduled_quizzes SET due_date = ? WHERE id = ? AND complete = FALSE`), dbTime(due), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.closedOrMissing(ctx, id, model.ErrQuizClosed)
}

// DeleteScheduledQuiz removes a scheduled quiz and its grades.
func (s *Store) DeleteScheduledQuiz(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM grades WHERE scheduled_quiz_id = ?`), id); err != nil {
			return fmt.Errorf("delete grades: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM scheduled_quizzes WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete scheduled quiz: %w", err)
		}
		return expectRow(res)
	})
}

// ListOverdue returns the open scheduled quizzes due at or before cutoff.
func (s *Store) ListOverdue(ctx context.Context, cutoff time.Time) ([]model.ScheduledQuiz, error) {
	var out []model.ScheduledQuiz
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(
		`SELECT `+scheduledColumns+` FROM scheduled_quizzes
		 WHERE complete = FALSE AND due_date <= ? ORDER BY due_date, id`), dbTime(cutoff))
	return out, err
}

// GradedStudentIDs returns the students holding a grade on a scheduled quiz.
func (s *Store) GradedStudentIDs(ctx context.Context, scheduledQuizID int64) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, s.db.Rebind(
		`SELECT student_id FROM grades WHERE scheduled_quiz_id = ? ORDER BY student_id`), scheduledQuizID)
	return ids, err
}

// ListGrades returns the grades of the given scheduled quizzes ordered by
// scheduled quiz and date.
func (s *Store) ListGrades(ctx context.Context, scheduledQuizIDs []int64) ([]model.Grade, error) {
	if len(scheduledQuizIDs) == 0 {
		return nil, nil
	}
	q, args, err := in(s.db,
		`SELECT id, scheduled_quiz_id, student_id, grade, graded_at FROM grades
		 WHERE scheduled_quiz_id IN (?) ORDER BY scheduled_quiz_id, graded_at, id`, scheduledQuizIDs)
	if err != nil {
		return nil, err
	}
	var out []model.Grade
	err = s.db.SelectContext(ctx, &out, q, args...)
	return out, err
}

// RecordGrade stores a student's grade on an open scheduled quiz. The insert
// only happens while the quiz is not complete and the student has no grade
// yet, so it cannot race the completion sweep into a second entry. It
// returns model.ErrQuizClosed, model.ErrDuplicateSubmission or
// model.ErrNotFound when nothing was written.
func (s *Store) RecordGrade(ctx context.Context, g model.Grade) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO grades (scheduled_quiz_id, student_id, grade, graded_at)
		 SELECT id, ?, ?, ? FROM scheduled_quizzes WHERE id = ? AND complete = FALSE
		 ON CONFLICT (scheduled_quiz_id, student_id) DO NOTHING`),
		g.StudentID, g.Grade, dbTime(g.Date), g.ScheduledQuizID)
	if err != nil {
		return fmt.Errorf("insert grade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.closedOrMissing(ctx, g.ScheduledQuizID, model.ErrDuplicateSubmission)
}

// closedOrMissing explains why a write to an open scheduled quiz matched no
// row: the quiz is gone, it is complete, or openErr applies.
func (s *Store) closedOrMissing(ctx context.Context, id int64, openErr error) error {
	var complete bool
	err := s.db.GetContext(ctx, &complete, s.db.Rebind(`SELECT complete FROM scheduled_quizzes WHERE id = ?`), id)
	if err != nil {
		return notFound(err)
	}
	if complete {
		return model.ErrQuizClosed
	}
	return openErr
}

// CompleteScheduledQuiz closes an open scheduled quiz, writing a zero grade
// dated at for each listed student without a grade. It reports false and
// writes nothing when the quiz was already complete.
func (s *Store) CompleteScheduledQuiz(ctx context.Context, id int64, zeroFill []int64, at time.Time) (bool, int, error) {
	completed := false
	filled := 0
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE scheduled_quizzes SET complete = TRUE WHERE id = ? AND complete = FALSE`), id)
		if err != nil {
			return fmt.Errorf("mark complete: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		completed = true

		stmt, err := tx.PreparexContext(ctx, tx.Rebind(
			`INSERT INTO grades (scheduled_quiz_id, student_id, grade, graded_at) VALUES (?, ?, 0, ?)
			 ON CONFLICT (scheduled_quiz_id, student_id) DO NOTHING`))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, studentID := range zeroFill {
			res, err := stmt.ExecContext(ctx, id, studentID, dbTime(at))
			if err != nil {
				return fmt.Errorf("zero grade for student %d: %w", studentID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			filled += int(n)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return completed, filled, nil
}

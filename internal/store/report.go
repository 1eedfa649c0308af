package store

import (
	"context"
	"strings"

	"github.com/pavelanni/classquiz/internal/model"
)

// ListScheduledQuizDetails returns scheduled quizzes joined with their quiz
// and class, sorted by due date. InstructorID filters on the quiz owner,
// StudentID on class membership.
func (s *Store) ListScheduledQuizDetails(ctx context.Context, f model.ScheduledQuizQuery) ([]model.ScheduledQuizDetail, error) {
	var b strings.Builder
	b.WriteString(`SELECT sq.id, sq.quiz_id, sq.class_id, q.title AS quiz_title, c.title AS class_title,
	       sq.due_date, q.time_limit, sq.complete,
	       (SELECT COUNT(*) FROM class_students cs WHERE cs.class_id = sq.class_id) AS num_students
	FROM scheduled_quizzes sq
	JOIN quizzes q ON q.id = sq.quiz_id
	JOIN classes c ON c.id = sq.class_id
	WHERE 1=1`)
	var args []any
	if f.InstructorID != 0 {
		b.WriteString(` AND q.instructor_id = ?`)
		args = append(args, f.InstructorID)
	}
	if f.ClassID != 0 {
		b.WriteString(` AND sq.class_id = ?`)
		args = append(args, f.ClassID)
	}
	if f.StudentID != 0 {
		b.WriteString(` AND EXISTS (SELECT 1 FROM class_students m WHERE m.class_id = sq.class_id AND m.student_id = ?)`)
		args = append(args, f.StudentID)
	}
	switch f.Filter {
	case model.FilterComplete:
		b.WriteString(` AND sq.complete = TRUE`)
	case model.FilterIncomplete:
		b.WriteString(` AND sq.complete = FALSE`)
	}
	b.WriteString(` ORDER BY sq.due_date, sq.id`)

	var out []model.ScheduledQuizDetail
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(b.String()), args...)
	return out, err
}

// StudentGradesIn returns one student's grades on the given scheduled quizzes.
func (s *Store) StudentGradesIn(ctx context.Context, studentID int64, scheduledQuizIDs []int64) ([]model.Grade, error) {
	if len(scheduledQuizIDs) == 0 {
		return nil, nil
	}
	q, args, err := in(s.db,
		`SELECT id, scheduled_quiz_id, student_id, grade, graded_at FROM grades
		 WHERE student_id = ? AND scheduled_quiz_id IN (?) ORDER BY graded_at DESC, id DESC`,
		studentID, scheduledQuizIDs)
	if err != nil {
		return nil, err
	}
	var out []model.Grade
	err = s.db.SelectContext(ctx, &out, q, args...)
	return out, err
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pavelanni/classquiz/internal/model"
)

type questionRow struct {
	QuizID   int64  `db:"quiz_id"`
	Position int    `db:"position"`
	Prompt   string `db:"prompt"`
	Options  string `db:"options"`
	Answer   string `db:"answer"`
}

// CreateQuiz inserts a quiz and its questions.
func (s *Store) CreateQuiz(ctx context.Context, q model.Quiz) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, tx.Rebind(
			`INSERT INTO quizzes (instructor_id, title, time_limit, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
			q.InstructorID, q.Title, q.TimeLimit, dbTime(time.Now()),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		return insertQuestions(ctx, tx, id, q.Questions)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func insertQuestions(ctx context.Context, tx *sqlx.Tx, quizID int64, questions []model.Question) error {
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(
		`INSERT INTO questions (quiz_id, position, prompt, options, answer) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, qq := range questions {
		opts, err := json.Marshal(qq.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, quizID, i, qq.Prompt, string(opts), qq.Answer); err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	return nil
}

// GetQuiz returns a quiz with its questions in order.
func (s *Store) GetQuiz(ctx context.Context, id int64) (model.Quiz, error) {
	var q model.Quiz
	err := s.db.GetContext(ctx, &q, s.db.Rebind(
		`SELECT id, instructor_id, title, time_limit, created_at FROM quizzes WHERE id = ?`), id)
	if err != nil {
		return q, notFound(err)
	}

	var rows []questionRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT quiz_id, position, prompt, options, answer FROM questions WHERE quiz_id = ? ORDER BY position`), id)
	if err != nil {
		return q, err
	}
	q.Questions = make([]model.Question, 0, len(rows))
	for _, r := range rows {
		var opts []model.Option
		if err := json.Unmarshal([]byte(r.Options), &opts); err != nil {
			return q, fmt.Errorf("decode options of quiz %d question %d: %w", id, r.Position, err)
		}
		q.Questions = append(q.Questions, model.Question{Prompt: r.Prompt, Options: opts, Answer: r.Answer})
	}
	return q, nil
}

// ListQuizzes returns an instructor's quizzes sorted by title, ignoring case.
func (s *Store) ListQuizzes(ctx context.Context, instructorID int64) ([]model.QuizSummary, error) {
	var out []model.QuizSummary
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(
		`SELECT q.id, q.title, q.time_limit,
		        (SELECT COUNT(*) FROM questions qq WHERE qq.quiz_id = q.id) AS question_count
		 FROM quizzes q WHERE q.instructor_id = ?
		 ORDER BY LOWER(q.title), q.id`), instructorID)
	return out, err
}

// UpdateQuiz replaces the title, time limit and questions of a quiz.
func (s *Store) UpdateQuiz(ctx context.Context, q model.Quiz) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE quizzes SET title = ?, time_limit = ? WHERE id = ?`), q.Title, q.TimeLimit, q.ID)
		if err != nil {
			return fmt.Errorf("update quiz: %w", err)
		}
		if err := expectRow(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM questions WHERE quiz_id = ?`), q.ID); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		return insertQuestions(ctx, tx, q.ID, q.Questions)
	})
}

// DeleteQuiz removes a quiz and, in order, the grades of its scheduled
// quizzes, the scheduled quizzes and its questions.
func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		steps := []struct{ name, query string }{
			{"grades", `DELETE FROM grades WHERE scheduled_quiz_id IN (SELECT id FROM scheduled_quizzes WHERE quiz_id = ?)`},
			{"scheduled quizzes", `DELETE FROM scheduled_quizzes WHERE quiz_id = ?`},
			{"questions", `DELETE FROM questions WHERE quiz_id = ?`},
		}
		for _, st := range steps {
			if _, err := tx.ExecContext(ctx, tx.Rebind(st.query), id); err != nil {
				return fmt.Errorf("delete %s: %w", st.name, err)
			}
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM quizzes WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete quiz: %w", err)
		}
		return expectRow(res)
	})
}

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pavelanni/classquiz/internal/model"
)

// CreateClass inserts a class without students.
func (s *Store) CreateClass(ctx context.Context, c model.Class) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(
		`INSERT INTO classes (instructor_id, title, description, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		c.InstructorID, c.Title, c.Description, dbTime(time.Now()),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert class: %w", err)
	}
	return id, nil
}

// GetClass returns a class with its roster.
func (s *Store) GetClass(ctx context.Context, id int64) (model.Class, error) {
	var c model.Class
	err := s.db.GetContext(ctx, &c, s.db.Rebind(
		`SELECT id, instructor_id, title, description, created_at FROM classes WHERE id = ?`), id)
	if err != nil {
		return c, notFound(err)
	}
	c.StudentIDs, err = s.ClassStudentIDs(ctx, id)
	return c, err
}

// ListClasses returns the classes of an instructor sorted by title, with
// their rosters.
func (s *Store) ListClasses(ctx context.Context, instructorID int64) ([]model.Class, error) {
	var classes []model.Class
	err := s.db.SelectContext(ctx, &classes, s.db.Rebind(
		`SELECT id, instructor_id, title, description, created_at FROM classes
		 WHERE instructor_id = ? ORDER BY title, id`), instructorID)
	if err != nil {
		return nil, err
	}

	var members []struct {
		ClassID   int64 `db:"class_id"`
		StudentID int64 `db:"student_id"`
	}
	err = s.db.SelectContext(ctx, &members, s.db.Rebind(
		`SELECT cs.class_id, cs.student_id FROM class_students cs
		 JOIN classes c ON c.id = cs.class_id
		 WHERE c.instructor_id = ? ORDER BY cs.student_id`), instructorID)
	if err != nil {
		return nil, err
	}
	byClass := make(map[int64][]int64)
	for _, m := range members {
		byClass[m.ClassID] = append(byClass[m.ClassID], m.StudentID)
	}
	for i := range classes {
		classes[i].StudentIDs = byClass[classes[i].ID]
	}
	return classes, nil
}

// ClassStudentIDs returns the roster of a class.
func (s *Store) ClassStudentIDs(ctx context.Context, classID int64) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, s.db.Rebind(
		`SELECT student_id FROM class_students WHERE class_id = ? ORDER BY student_id`), classID)
	return ids, err
}

// RenameClass updates the title of a class.
func (s *Store) RenameClass(ctx context.Context, id int64, title string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE classes SET title = ? WHERE id = ?`), title, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// AddStudents enrolls students in a class. Students already enrolled are
// left alone; the returned count covers new members only.
func (s *Store) AddStudents(ctx context.Context, classID int64, studentIDs []int64) (int, error) {
	added := 0
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(
			`INSERT INTO class_students (class_id, student_id) VALUES (?, ?) ON CONFLICT DO NOTHING`))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range studentIDs {
			res, err := stmt.ExecContext(ctx, classID, id)
			if err != nil {
				return fmt.Errorf("enroll student %d: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// RemoveStudents drops students from a class together with their grades on
// every scheduled quiz of that class.
func (s *Store) RemoveStudents(ctx context.Context, classID int64, studentIDs []int64) (int, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	removed := 0
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		q, args, err := in(tx,
			`DELETE FROM grades WHERE student_id IN (?)
			 AND scheduled_quiz_id IN (SELECT id FROM scheduled_quizzes WHERE class_id = ?)`,
			studentIDs, classID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("delete grades: %w", err)
		}
		grades, _ := res.RowsAffected()

		q, args, err = in(tx, `DELETE FROM class_students WHERE class_id = ? AND student_id IN (?)`, classID, studentIDs)
		if err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = int(n)
		slog.Debug("removed students", "class_id", classID, "members", removed, "grades", grades)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteClass removes a class and, in order, the grades of its scheduled
// quizzes, the scheduled quizzes and the roster.
func (s *Store) DeleteClass(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		steps := []struct{ name, query string }{
			{"grades", `DELETE FROM grades WHERE scheduled_quiz_id IN (SELECT id FROM scheduled_quizzes WHERE class_id = ?)`},
			{"scheduled quizzes", `DELETE FROM scheduled_quizzes WHERE class_id = ?`},
			{"roster", `DELETE FROM class_students WHERE class_id = ?`},
		}
		for _, st := range steps {
			if _, err := tx.ExecContext(ctx, tx.Rebind(st.query), id); err != nil {
				return fmt.Errorf("delete %s: %w", st.name, err)
			}
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM classes WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete class: %w", err)
		}
		return expectRow(res)
	})
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/classquiz/internal/model"
)

// CreateClass creates an empty class owned by instructorID.
func (s *Service) CreateClass(ctx context.Context, instructorID int64, req model.NewClass) (model.Class, error) {
	if err := model.Validate(req); err != nil {
		return model.Class{}, err
	}
	c := model.Class{
		InstructorID: instructorID,
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
	}
	id, err := s.store.CreateClass(ctx, c)
	if err != nil {
		return model.Class{}, err
	}
	slog.Info("created class", "id", id, "instructor_id", instructorID)
	return s.store.GetClass(ctx, id)
}

// ListClasses returns the instructor's classes sorted by title.
func (s *Service) ListClasses(ctx context.Context, instructorID int64) ([]model.Class, error) {
	return s.store.ListClasses(ctx, instructorID)
}

// GetClass returns a class owned by instructorID.
func (s *Service) GetClass(ctx context.Context, instructorID, classID int64) (model.Class, error) {
	return s.ownedClass(ctx, instructorID, classID)
}

// RenameClass changes the title of an owned class.
func (s *Service) RenameClass(ctx context.Context, instructorID, classID int64, req model.ClassRename) error {
	if err := model.Validate(req); err != nil {
		return err
	}
	if _, err := s.ownedClass(ctx, instructorID, classID); err != nil {
		return err
	}
	return s.store.RenameClass(ctx, classID, strings.TrimSpace(req.Title))
}

// DeleteClass deletes an owned class with its scheduled quizzes and grades.
func (s *Service) DeleteClass(ctx context.Context, instructorID, classID int64) error {
	if _, err := s.ownedClass(ctx, instructorID, classID); err != nil {
		return err
	}
	if err := s.store.DeleteClass(ctx, classID); err != nil {
		return err
	}
	slog.Info("deleted class", "id", classID, "instructor_id", instructorID)
	return nil
}

// AddStudentsToClass enrolls the students with the given emails. Emails
// that do not belong to a student are skipped. Added counts new members.
func (s *Service) AddStudentsToClass(ctx context.Context, instructorID, classID int64, emails []string) (model.AddStudentsResult, error) {
	if err := model.Validate(model.RosterAddition{Emails: emails}); err != nil {
		return model.AddStudentsResult{}, err
	}
	c, err := s.ownedClass(ctx, instructorID, classID)
	if err != nil {
		return model.AddStudentsResult{}, err
	}

	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		normalized = append(normalized, normalizeEmail(e))
	}
	ids, err := s.store.StudentIDsByEmail(ctx, normalized)
	if err != nil {
		return model.AddStudentsResult{}, fmt.Errorf("resolve students: %w", err)
	}

	added := 0
	if len(ids) > 0 {
		added, err = s.store.AddStudents(ctx, classID, ids)
		if err != nil {
			return model.AddStudentsResult{}, fmt.Errorf("add students: %w", err)
		}
	}
	slog.Info("updated roster", "class_id", classID, "requested", len(emails), "resolved", len(ids), "added", added)
	return model.AddStudentsResult{Added: added, ClassID: c.ID, ClassTitle: c.Title}, nil
}

// RemoveStudentsFromClass drops students from a class and deletes their
// grades on every scheduled quiz of the class.
func (s *Service) RemoveStudentsFromClass(ctx context.Context, instructorID, classID int64, studentIDs []int64) (int, error) {
	if err := model.Validate(model.RosterRemoval{StudentIDs: studentIDs}); err != nil {
		return 0, err
	}
	if _, err := s.ownedClass(ctx, instructorID, classID); err != nil {
		return 0, err
	}
	removed, err := s.store.RemoveStudents(ctx, classID, studentIDs)
	if err != nil {
		return 0, fmt.Errorf("remove students: %w", err)
	}
	slog.Info("removed students", "class_id", classID, "removed", removed)
	return removed, nil
}

func (s *Service) ownedClass(ctx context.Context, instructorID, classID int64) (model.Class, error) {
	c, err := s.store.GetClass(ctx, classID)
	if err != nil {
		return model.Class{}, err
	}
	if c.InstructorID != instructorID {
		return model.Class{}, model.ErrForbidden
	}
	return c, nil
}

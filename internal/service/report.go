package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/pavelanni/classquiz/internal/model"
)

// ComputeQuizGrades returns one view per scheduled quiz of the instructor's
// quizzes, sorted by due date. Average is nil for a quiz nobody took.
func (s *Service) ComputeQuizGrades(ctx context.Context, instructorID int64, filter model.CompletionFilter) ([]model.QuizGradeView, error) {
	details, err := s.store.ListScheduledQuizDetails(ctx, model.ScheduledQuizQuery{InstructorID: instructorID, Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("list scheduled quizzes: %w", err)
	}
	grades, err := s.store.ListGrades(ctx, detailIDs(details))
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return QuizGradeViews(details, grades), nil
}

// ComputeClassGrades returns, for every class of the instructor sorted by
// title, the mean of its per-quiz averages. Scheduled quizzes without grades
// do not contribute.
func (s *Service) ComputeClassGrades(ctx context.Context, instructorID int64) ([]model.ClassGradeView, error) {
	classes, err := s.store.ListClasses(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	quizViews, err := s.ComputeQuizGrades(ctx, instructorID, model.FilterAll)
	if err != nil {
		return nil, err
	}
	return ClassGradeViews(classes, quizViews), nil
}

// ComputeStudentGrades returns a student's grade history, newest first, and
// their own average per class.
func (s *Service) ComputeStudentGrades(ctx context.Context, studentID int64) (model.StudentGrades, error) {
	details, err := s.store.ListScheduledQuizDetails(ctx, model.ScheduledQuizQuery{StudentID: studentID})
	if err != nil {
		return model.StudentGrades{}, fmt.Errorf("list scheduled quizzes: %w", err)
	}
	grades, err := s.store.StudentGradesIn(ctx, studentID, detailIDs(details))
	if err != nil {
		return model.StudentGrades{}, fmt.Errorf("list grades: %w", err)
	}
	return StudentGradeViews(studentID, details, grades), nil
}

// QuizGradeViews joins scheduled quiz details with their grades. The order
// of details is kept.
func QuizGradeViews(details []model.ScheduledQuizDetail, grades []model.Grade) []model.QuizGradeView {
	byQuiz := make(map[int64][]float64)
	for _, g := range grades {
		byQuiz[g.ScheduledQuizID] = append(byQuiz[g.ScheduledQuizID], g.Grade)
	}
	out := make([]model.QuizGradeView, 0, len(details))
	for _, d := range details {
		values := byQuiz[d.ID]
		out = append(out, model.QuizGradeView{
			ScheduledQuizID: d.ID,
			ClassID:         d.ClassID,
			QuizID:          d.QuizID,
			ClassTitle:      d.ClassTitle,
			QuizTitle:       d.QuizTitle,
			DueDate:         d.DueDate,
			TimeLimit:       d.TimeLimit,
			Complete:        d.Complete,
			NumComplete:     len(values),
			NumStudents:     d.NumStudents,
			Average:         mean(values),
		})
	}
	return out
}

// ClassGradeViews averages the per-quiz averages of each class.
func ClassGradeViews(classes []model.Class, quizViews []model.QuizGradeView) []model.ClassGradeView {
	averages := make(map[int64][]float64)
	for _, v := range quizViews {
		if v.Average != nil {
			averages[v.ClassID] = append(averages[v.ClassID], *v.Average)
		}
	}
	out := make([]model.ClassGradeView, 0, len(classes))
	for _, c := range classes {
		out = append(out, model.ClassGradeView{
			ClassID:    c.ID,
			ClassTitle: c.Title,
			Average:    mean(averages[c.ID]),
			Count:      len(averages[c.ID]),
		})
	}
	slices.SortStableFunc(out, func(a, b model.ClassGradeView) int {
		return cmp.Compare(a.ClassTitle, b.ClassTitle)
	})
	return out
}

// StudentGradeViews builds the student report from the scheduled quizzes
// of the student's classes and the student's grades. Grades of other
// students or other scheduled quizzes are ignored.
func StudentGradeViews(studentID int64, details []model.ScheduledQuizDetail, grades []model.Grade) model.StudentGrades {
	byID := make(map[int64]model.ScheduledQuizDetail, len(details))
	for _, d := range details {
		byID[d.ID] = d
	}

	report := model.StudentGrades{
		Grades:  []model.StudentGradeView{},
		Classes: []model.StudentClassView{},
	}
	perClass := make(map[int64][]float64)
	classTitle := make(map[int64]string)
	for _, g := range grades {
		d, ok := byID[g.ScheduledQuizID]
		if !ok || g.StudentID != studentID {
			continue
		}
		report.Grades = append(report.Grades, model.StudentGradeView{
			ScheduledQuizID: d.ID,
			ClassID:         d.ClassID,
			ClassTitle:      d.ClassTitle,
			QuizTitle:       d.QuizTitle,
			Grade:           g.Grade,
			Date:            g.Date,
		})
		perClass[d.ClassID] = append(perClass[d.ClassID], g.Grade)
		classTitle[d.ClassID] = d.ClassTitle
	}
	slices.SortStableFunc(report.Grades, func(a, b model.StudentGradeView) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ScheduledQuizID, a.ScheduledQuizID)
	})

	for classID, values := range perClass {
		report.Classes = append(report.Classes, model.StudentClassView{
			ClassID:    classID,
			ClassTitle: classTitle[classID],
			Average:    *mean(values),
			Count:      len(values),
		})
	}
	slices.SortFunc(report.Classes, func(a, b model.StudentClassView) int {
		if c := cmp.Compare(a.ClassTitle, b.ClassTitle); c != 0 {
			return c
		}
		return cmp.Compare(a.ClassID, b.ClassID)
	})
	return report
}

// mean returns nil for an empty list.
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

// ExportGrades builds the grade report of the instructor with the given
// email.
func (s *Service) ExportGrades(ctx context.Context, instructorEmail string) (model.GradeExport, error) {
	u, err := s.Instructor(ctx, instructorEmail)
	if err != nil {
		return model.GradeExport{}, err
	}
	quizzes, err := s.ComputeQuizGrades(ctx, u.ID, model.FilterAll)
	if err != nil {
		return model.GradeExport{}, err
	}
	classes, err := s.ComputeClassGrades(ctx, u.ID)
	if err != nil {
		return model.GradeExport{}, err
	}
	return model.GradeExport{
		Instructor:  u.Email,
		GeneratedAt: s.now().UTC(),
		Quizzes:     quizzes,
		Classes:     classes,
	}, nil
}

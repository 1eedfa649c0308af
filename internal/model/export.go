package model

import "time"

// QuizGradeView summarizes one scheduled quiz for its instructor.
type QuizGradeView struct {
	ScheduledQuizID int64     `json:"id"`
	ClassID         int64     `json:"class_id"`
	QuizID          int64     `json:"quiz_id"`
	ClassTitle      string    `json:"class_title"`
	QuizTitle       string    `json:"quiz_title"`
	DueDate         time.Time `json:"due_date"`
	TimeLimit       int       `json:"time_limit"`
	Complete        bool      `json:"complete"`
	NumComplete     int       `json:"num_complete"`
	NumStudents     int       `json:"num_students"`
	Average         *float64  `json:"average"`
}

// ClassGradeView is the average of per-quiz averages of one class. Count is
// the number of scheduled quizzes that contributed.
type ClassGradeView struct {
	ClassID    int64    `json:"id"`
	ClassTitle string   `json:"class_title"`
	Average    *float64 `json:"average"`
	Count      int      `json:"count"`
}

// StudentGradeView is one grade in a student's history.
type StudentGradeView struct {
	ScheduledQuizID int64     `json:"id"`
	ClassID         int64     `json:"class_id"`
	ClassTitle      string    `json:"class_title"`
	QuizTitle       string    `json:"quiz_title"`
	Grade           float64   `json:"grade"`
	Date            time.Time `json:"date"`
}

// StudentClassView is a student's own average in one class.
type StudentClassView struct {
	ClassID    int64   `json:"id"`
	ClassTitle string  `json:"class_title"`
	Average    float64 `json:"average"`
	Count      int     `json:"count"`
}

// StudentGrades is the student-facing grade report.
type StudentGrades struct {
	Grades  []StudentGradeView `json:"grades"`
	Classes []StudentClassView `json:"classes"`
}

// StudentQuizView is a scheduled quiz as listed to an enrolled student.
type StudentQuizView struct {
	ScheduledQuizID int64     `json:"id"`
	QuizID          int64     `json:"quiz_id"`
	ClassTitle      string    `json:"class_title"`
	QuizTitle       string    `json:"quiz_title"`
	DueDate         time.Time `json:"due_date"`
	TimeLimit       int       `json:"time_limit"`
	Complete        bool      `json:"complete"`
	Submitted       bool      `json:"submitted"`
}

// GradeExport is the top-level JSON structure of the export command.
type GradeExport struct {
	Instructor  string           `json:"instructor"`
	GeneratedAt time.Time        `json:"generated_at"`
	Quizzes     []QuizGradeView  `json:"quizzes"`
	Classes     []ClassGradeView `json:"classes"`
}

package model

import (
	"context"
	"time"
)

// Role is a user's access level. It is fixed at registration.
type Role string

const (
	// RoleInstructor owns classes and quizzes.
	RoleInstructor Role = "instructor"
	// RoleStudent is enrolled in classes and submits quizzes.
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleInstructor || r == RoleStudent
}

// User represents a system user.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	BirthDate    *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Role         Role       `db:"role" json:"role"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID int64
	Role   Role
}

type principalCtxKey struct{}

// ContextWithPrincipal stores the authenticated principal in the request context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext retrieves the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

// Class is a group of students owned by one instructor.
type Class struct {
	ID           int64     `db:"id" json:"id"`
	InstructorID int64     `db:"instructor_id" json:"instructor_id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	StudentIDs   []int64   `db:"-" json:"student_ids"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Option is one selectable answer of a question.
type Option struct {
	Key  string `json:"key" validate:"required,max=32"`
	Text string `json:"text" validate:"required"`
}

// Question is a multiple choice question. Answer holds the key of the
// correct option.
type Question struct {
	Prompt  string   `json:"prompt" validate:"required"`
	Options []Option `json:"options" validate:"min=2,dive"`
	Answer  string   `json:"answer,omitempty" validate:"required"`
}

// Quiz is an ordered list of questions owned by one instructor.
type Quiz struct {
	ID           int64      `db:"id" json:"id"`
	InstructorID int64      `db:"instructor_id" json:"instructor_id"`
	Title        string     `db:"title" json:"title"`
	TimeLimit    int        `db:"time_limit" json:"time_limit"` // minutes, 0 means none
	Questions    []Question `db:"-" json:"questions"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// WithoutAnswers returns a copy of the quiz with the answer key removed.
func (q Quiz) WithoutAnswers() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		qq.Answer = ""
		out.Questions[i] = qq
	}
	return out
}

// QuizSummary is a quiz listing entry.
type QuizSummary struct {
	ID            int64  `db:"id" json:"id"`
	Title         string `db:"title" json:"title"`
	TimeLimit     int    `db:"time_limit" json:"time_limit"`
	QuestionCount int    `db:"question_count" json:"question_count"`
}

// ScheduledQuiz binds a quiz to a class with a due date. Complete moves from
// false to true once, when the completion sweep closes it.
type ScheduledQuiz struct {
	ID        int64     `db:"id" json:"id"`
	QuizID    int64     `db:"quiz_id" json:"quiz_id"`
	ClassID   int64     `db:"class_id" json:"class_id"`
	DueDate   time.Time `db:"due_date" json:"due_date"`
	Complete  bool      `db:"complete" json:"complete"`
	Grades    []Grade   `db:"-" json:"grades,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Grade is one student's result on a scheduled quiz.
type Grade struct {
	ID              int64     `db:"id" json:"id"`
	ScheduledQuizID int64     `db:"scheduled_quiz_id" json:"scheduled_quiz_id"`
	StudentID       int64     `db:"student_id" json:"student_id"`
	Grade           float64   `db:"grade" json:"grade"`
	Date            time.Time `db:"graded_at" json:"date"`
}

// CompletionFilter narrows scheduled quiz listings by their complete flag.
type CompletionFilter string

const (
	FilterAll        CompletionFilter = ""
	FilterComplete   CompletionFilter = "complete"
	FilterIncomplete CompletionFilter = "incomplete"
)

// ParseCompletionFilter maps a query value to a filter. Unknown values mean all.
func ParseCompletionFilter(s string) CompletionFilter {
	switch CompletionFilter(s) {
	case FilterComplete:
		return FilterComplete
	case FilterIncomplete:
		return FilterIncomplete
	default:
		return FilterAll
	}
}

// ScheduledQuizQuery selects scheduled quizzes with their quiz and class data.
// Zero values mean no filtering on that field.
type ScheduledQuizQuery struct {
	InstructorID int64
	StudentID    int64
	ClassID      int64
	Filter       CompletionFilter
}

// ScheduledQuizDetail is a scheduled quiz joined with its quiz and class.
type ScheduledQuizDetail struct {
	ID          int64     `db:"id"`
	QuizID      int64     `db:"quiz_id"`
	ClassID     int64     `db:"class_id"`
	QuizTitle   string    `db:"quiz_title"`
	ClassTitle  string    `db:"class_title"`
	DueDate     time.Time `db:"due_date"`
	TimeLimit   int       `db:"time_limit"`
	Complete    bool      `db:"complete"`
	NumStudents int       `db:"num_students"`
}

// Submission is a student's answers to a scheduled quiz, in question order.
type Submission struct {
	ScheduledQuizID int64    `json:"-"`
	StudentID       int64    `json:"-"`
	Responses       []string `json:"responses" validate:"required"`
}

// SubmissionResult is the outcome of a recorded submission.
type SubmissionResult struct {
	ScheduledQuizID int64   `json:"scheduled_quiz_id"`
	Correct         int     `json:"correct"`
	Total           int     `json:"total"`
	Grade           float64 `json:"grade"`
	PerQuestion     []bool  `json:"per_question"`
}

// AddStudentsResult reports a roster update.
type AddStudentsResult struct {
	Added      int    `json:"count"`
	ClassID    int64  `json:"id"`
	ClassTitle string `json:"class"`
}

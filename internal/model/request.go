package model

import "time"

// Registration is a new account request.
type Registration struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"notblank,max=100"`
	LastName  string `json:"last_name" validate:"notblank,max=100"`
	BirthDate string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Role      Role   `json:"role" validate:"role"`
}

// Credentials is a login request.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// NewClass is a class creation request.
type NewClass struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// ClassRename is a class rename request.
type ClassRename struct {
	Title string `json:"title" validate:"notblank,max=200"`
}

// NewQuiz is a quiz creation or replacement request. It is also the format
// of quiz import files.
type NewQuiz struct {
	Title     string     `json:"title" validate:"notblank,max=200"`
	TimeLimit int        `json:"time_limit" validate:"gte=0,lte=1440"`
	Questions []Question `json:"questions" validate:"required,min=1,dive"`
}

// NewScheduledQuiz assigns a quiz to a class.
type NewScheduledQuiz struct {
	QuizID  int64     `json:"quiz_id" validate:"required,gt=0"`
	ClassID int64     `json:"class_id" validate:"required,gt=0"`
	DueDate time.Time `json:"due_date" validate:"required"`
}

// DueDateUpdate moves the due date of a scheduled quiz.
type DueDateUpdate struct {
	DueDate time.Time `json:"due_date" validate:"required"`
}

// RosterAddition lists the emails of students to enroll.
type RosterAddition struct {
	Emails []string `json:"emails" validate:"required,min=1,dive,required"`
}

// RosterRemoval lists the ids of students to drop.
type RosterRemoval struct {
	StudentIDs []int64 `json:"student_ids" validate:"required,min=1,dive,gt=0"`
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/classquiz/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, email string, role model.Role) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), model.User{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "First",
		LastName:     "Last",
		Role:         role,
	})
	if err != nil {
		t.Fatalf("createTestUser(%s): %v", email, err)
	}
	return id
}

func testQuestions(answers ...string) []model.Question {
	qs := make([]model.Question, len(answers))
	for i, a := range answers {
		qs[i] = model.Question{
			Prompt:  "question",
			Options: []model.Option{{Key: "r1", Text: "a"}, {Key: "r2", Text: "b"}, {Key: "r3", Text: "c"}, {Key: "r4", Text: "d"}},
			Answer:  a,
		}
	}
	return qs
}

type fixture struct {
	instructor int64
	students   []int64
	class      int64
	quiz       int64
	scheduled  int64
}

// newFixture creates an instructor, three enrolled students, a class, a quiz
// and an open scheduled quiz due at due.
func newFixture(t *testing.T, s *Store, due time.Time) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{instructor: createTestUser(t, s, "teacher@example.com", model.RoleInstructor)}
	for _, e := range []string{"s1@example.com", "s2@example.com", "s3@example.com"} {
		f.students = append(f.students, createTestUser(t, s, e, model.RoleStudent))
	}
	var err error
	f.class, err = s.CreateClass(ctx, model.Class{InstructorID: f.instructor, Title: "Physics"})
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	if _, err := s.AddStudents(ctx, f.class, f.students); err != nil {
		t.Fatalf("AddStudents: %v", err)
	}
	f.quiz, err = s.CreateQuiz(ctx, model.Quiz{InstructorID: f.instructor, Title: "Kinematics", TimeLimit: 20, Questions: testQuestions("r1", "r2")})
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	f.scheduled, err = s.ScheduleQuiz(ctx, model.ScheduledQuiz{QuizID: f.quiz, ClassID: f.class, DueDate: due})
	if err != nil {
		t.Fatalf("ScheduleQuiz: %v", err)
	}
	return f
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	count, err := s.UserCount(ctx)
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	birth := time.Date(2001, 5, 4, 0, 0, 0, 0, time.UTC)
	id, err := s.CreateUser(ctx, model.User{
		Email:        "ada@example.com",
		PasswordHash: "hash",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		BirthDate:    &birth,
		Role:         model.RoleStudent,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.ID != id || u.FirstName != "Ada" || u.Role != model.RoleStudent {
		t.Errorf("unexpected user: %+v", u)
	}
	if u.BirthDate == nil || !u.BirthDate.Equal(birth) {
		t.Errorf("birth date = %v, want %v", u.BirthDate, birth)
	}

	byID, err := s.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID.Email != "ada@example.com" {
		t.Errorf("email = %q", byID.Email)
	}

	_, err = s.CreateUser(ctx, model.User{Email: "ada@example.com", PasswordHash: "x", Role: model.RoleStudent})
	if !errors.Is(err, model.ErrAlreadyExists) {
		t.Errorf("duplicate email error = %v, want ErrAlreadyExists", err)
	}

	_, err = s.GetUserByID(ctx, 999)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing user error = %v, want ErrNotFound", err)
	}
}

func TestStudentIDsByEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s1 := createTestUser(t, s, "s1@example.com", model.RoleStudent)
	s2 := createTestUser(t, s, "s2@example.com", model.RoleStudent)
	createTestUser(t, s, "prof@example.com", model.RoleInstructor)

	ids, err := s.StudentIDsByEmail(ctx, []string{"s1@example.com", "s2@example.com", "prof@example.com", "nobody@example.com", "s1@example.com"})
	if err != nil {
		t.Fatalf("StudentIDsByEmail: %v", err)
	}
	if len(ids) != 2 || ids[0] != s1 || ids[1] != s2 {
		t.Errorf("ids = %v, want [%d %d]", ids, s1, s2)
	}

	ids, err = s.StudentIDsByEmail(ctx, nil)
	if err != nil || len(ids) != 0 {
		t.Errorf("empty lookup = %v, %v", ids, err)
	}
}

func TestRosterSetSemantics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, time.Now().Add(24*time.Hour))

	added, err := s.AddStudents(ctx, f.class, f.students)
	if err != nil {
		t.Fatalf("AddStudents: %v", err)
	}
	if added != 0 {
		t.Errorf("re-adding members added %d, want 0", added)
	}

	c, err := s.GetClass(ctx, f.class)
	if err != nil {
		t.Fatalf("GetClass: %v", err)
	}
	if len(c.StudentIDs) != 3 {
		t.Errorf("roster size = %d, want 3", len(c.StudentIDs))
	}

	extra := createTestUser(t, s, "s4@example.com", model.RoleStudent)
	added, err = s.AddStudents(ctx, f.class, []int64{extra, extra, f.students[0]})
	if err != nil {
		t.Fatalf("AddStudents: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
}

func TestRemoveStudentsCleansGrades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, time.Now().Add(24*time.Hour))

	for i, st := range f.students {
		err := s.RecordGrade(ctx, model.Grade{ScheduledQuizID: f.scheduled, StudentID: st, Grade: float64(50 + i*10), Date: time.Now()})
		if err != nil {
			t.Fatalf("RecordGrade: %v", err)
		}
	}

	removed, err := s.RemoveStudents(ctx, f.class, []int64{f.students[1]})
	if err != nil {
		t.Fatalf("RemoveStudents: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	graded, err := s.GradedStudentIDs(ctx, f.scheduled)
	if err != nil {
		t.Fatalf("GradedStudentIDs: %v", err)
	}
	for _, id := range graded {
		if id == f.students[1] {
			t.Errorf("removed student still has a grade")
		}
	}
	if len(graded) != 2 {
		t.Errorf("graded = %v, want 2 students", graded)
	}

	roster, err := s.ClassStudentIDs(ctx, f.class)
	if err != nil {
		t.Fatalf("ClassStudentIDs: %v", err)
	}
	if len(roster) != 2 {
		t.Errorf("roster = %v, want 2 students", roster)
	}
}

func TestQuizRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	instructor := createTestUser(t, s, "teacher@example.com", model.RoleInstructor)

	id, err := s.CreateQuiz(ctx, model.Quiz{InstructorID: instructor, Title: "beta", TimeLimit: 15, Questions: testQuestions("r1", "r4", "r2")})
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	if _, err := s.CreateQuiz(ctx, model.Quiz{InstructorID: instructor, Title: "Alpha", Questions: testQuestions("r3")}); err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}

	q, err := s.GetQuiz(ctx, id)
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if q.Title != "beta" || q.TimeLimit != 15 || len(q.Questions) != 3 {
		t.Fatalf("unexpected quiz: %+v", q)
	}
	if q.Questions[1].Answer != "r4" || len(q.Questions[1].Options) != 4 || q.Questions[1].Options[3].Key != "r4" {
		t.Errorf("question order or options lost: %+v", q.Questions[1])
	}

	list, err := s.ListQuizzes(ctx, instructor)
	if err != nil {
		t.Fatalf("ListQuizzes: %v", err)
	}
	if len(list) != 2 || list[0].Title != "Alpha" || list[1].Title != "beta" {
		t.Fatalf("expected case-insensitive title order, got %+v", list)
	}
	if list[1].QuestionCount != 3 {
		t.Errorf("question count = %d, want 3", list[1].QuestionCount)
	}

	q.Title = "Beta v2"
	q.Questions = testQuestions("r2")
	if err := s.UpdateQuiz(ctx, q); err != nil {
		t.Fatalf("UpdateQuiz: %v", err)
	}
	q, err = s.GetQuiz(ctx, id)
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if q.Title != "Beta v2" || len(q.Questions) != 1 {
		t.Errorf("update not applied: %+v", q)
	}
}

func TestRecordGrade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, time.Now().Add(24*time.Hour))

	g := model.Grade{ScheduledQuizID: f.scheduled, StudentID: f.students[0], Grade: 75, Date: time.Now()}
	if err := s.RecordGrade(ctx, g); err != nil {
		t.Fatalf("RecordGrade: %v", err)
	}

	g.Grade = 100
	if err := s.RecordGrade(ctx, g); !errors.Is(err, model.ErrDuplicateSubmission) {
		t.Errorf("second submission error = %v, want ErrDuplicateSubmission", err)
	}

	sq, err := s.GetScheduledQuiz(ctx, f.scheduled)
	if err != nil {
		t.Fatalf("GetScheduledQuiz: %v", err)
	}
	if len(sq.Grades) != 1 || sq.Grades[0].Grade != 75 {
		t.Errorf("grades = %+v, want a single 75", sq.Grades)
	}

	missing := model.Grade{ScheduledQuizID: 999, StudentID: f.students[0], Grade: 10, Date: time.Now()}
	if err := s.RecordGrade(ctx, missing); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown scheduled quiz error = %v, want ErrNotFound", err)
	}
}

func TestCompleteScheduledQuiz(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	due := time.Date(2024, 1, 14, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, s, due)

	if err := s.RecordGrade(ctx, model.Grade{ScheduledQuizID: f.scheduled, StudentID: f.students[0], Grade: 75, Date: due}); err != nil {
		t.Fatalf("RecordGrade: %v", err)
	}

	overdue, err := s.ListOverdue(ctx, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListOverdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != f.scheduled {
		t.Fatalf("overdue = %+v", overdue)
	}
	notYet, err := s.ListOverdue(ctx, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListOverdue: %v", err)
	}
	if len(notYet) != 0 {
		t.Errorf("quiz due later than cutoff listed: %+v", notYet)
	}

	at := time.Date(2024, 1, 15, 0, 1, 0, 0, time.UTC)
	// students[0] is listed too; its real grade must survive.
	completed, filled, err := s.CompleteScheduledQuiz(ctx, f.scheduled, f.students, at)
	if err != nil {
		t.Fatalf("CompleteScheduledQuiz: %v", err)
	}
	if !completed || filled != 2 {
		t.Errorf("completed=%v filled=%d, want true 2", completed, filled)
	}

	completed, filled, err = s.CompleteScheduledQuiz(ctx, f.scheduled, f.students, at)
	if err != nil {
		t.Fatalf("second CompleteScheduledQuiz: %v", err)
	}
	if completed || filled != 0 {
		t.Errorf("second run completed=%v filled=%d, want false 0", completed, filled)
	}

	sq, err := s.GetScheduledQuiz(ctx, f.scheduled)
	if err != nil {
		t.Fatalf("GetScheduledQuiz: %v", err)
	}
	if !sq.Complete {
		t.Errorf("scheduled quiz not complete")
	}
	byStudent := map[int64]float64{}
	for _, g := range sq.Grades {
		byStudent[g.StudentID] = g.Grade
	}
	want := map[int64]float64{f.students[0]: 75, f.students[1]: 0, f.students[2]: 0}
	if len(byStudent) != len(want) {
		t.Fatalf("grades = %+v", sq.Grades)
	}
	for id, g := range want {
		if byStudent[id] != g {
			t.Errorf("grade of %d = %v, want %v", id, byStudent[id], g)
		}
	}

	late := model.Grade{ScheduledQuizID: f.scheduled, StudentID: f.students[1], Grade: 90, Date: at}
	if err := s.RecordGrade(ctx, late); !errors.Is(err, model.ErrQuizClosed) {
		t.Errorf("late submission error = %v, want ErrQuizClosed", err)
	}
	if err := s.UpdateDueDate(ctx, f.scheduled, at.Add(48*time.Hour)); !errors.Is(err, model.ErrQuizClosed) {
		t.Errorf("reschedule error = %v, want ErrQuizClosed", err)
	}

	overdue, err = s.ListOverdue(ctx, at)
	if err != nil {
		t.Fatalf("ListOverdue: %v", err)
	}
	if len(overdue) != 0 {
		t.Errorf("completed quiz still listed as overdue")
	}
}

func TestDeleteClassCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, time.Now().Add(time.Hour))
	if err := s.RecordGrade(ctx, model.Grade{ScheduledQuizID: f.scheduled, StudentID: f.students[0], Grade: 80, Date: time.Now()}); err != nil {
		t.Fatalf("RecordGrade: %v", err)
	}

	if err := s.DeleteClass(ctx, f.class); err != nil {
		t.Fatalf("DeleteClass: %v", err)
	}
	if _, err := s.GetClass(ctx, f.class); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetClass after delete = %v, want ErrNotFound", err)
	}
	if _, err := s.GetScheduledQuiz(ctx, f.scheduled); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetScheduledQuiz after class delete = %v, want ErrNotFound", err)
	}
	if _, err := s.GetQuiz(ctx, f.quiz); err != nil {
		t.Errorf("quiz should survive class deletion: %v", err)
	}
	if err := s.DeleteClass(ctx, f.class); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second DeleteClass = %v, want ErrNotFound", err)
	}
}

func TestDeleteQuizCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, time.Now().Add(time.Hour))
	if err := s.RecordGrade(ctx, model.Grade{ScheduledQuizID: f.scheduled, StudentID: f.students[0], Grade: 80, Date: time.Now()}); err != nil {
		t.Fatalf("RecordGrade: %v", err)
	}

	if err := s.DeleteQuiz(ctx, f.quiz); err != nil {
		t.Fatalf("DeleteQuiz: %v", err)
	}
	if _, err := s.GetQuiz(ctx, f.quiz); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetQuiz after delete = %v, want ErrNotFound", err)
	}
	if _, err := s.GetScheduledQuiz(ctx, f.scheduled); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("scheduled quiz survived quiz deletion: %v", err)
	}
	if _, err := s.GetClass(ctx, f.class); err != nil {
		t.Errorf("class should survive quiz deletion: %v", err)
	}
}

func TestListScheduledQuizDetails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	earlier, err := s.ScheduleQuiz(ctx, model.ScheduledQuiz{QuizID: f.quiz, ClassID: f.class, DueDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("ScheduleQuiz: %v", err)
	}
	if _, _, err := s.CompleteScheduledQuiz(ctx, earlier, nil, time.Now()); err != nil {
		t.Fatalf("CompleteScheduledQuiz: %v", err)
	}

	all, err := s.ListScheduledQuizDetails(ctx, model.ScheduledQuizQuery{InstructorID: f.instructor})
	if err != nil {
		t.Fatalf("ListScheduledQuizDetails: %v", err)
	}
	if len(all) != 2 || all[0].ID != earlier || all[1].ID != f.scheduled {
		t.Fatalf("expected due date order, got %+v", all)
	}
	if all[1].ClassTitle != "Physics" || all[1].QuizTitle != "Kinematics" || all[1].NumStudents != 3 || all[1].TimeLimit != 20 {
		t.Errorf("unexpected detail: %+v", all[1])
	}

	open, err := s.ListScheduledQuizDetails(ctx, model.ScheduledQuizQuery{InstructorID: f.instructor, Filter: model.FilterIncomplete})
	if err != nil {
		t.Fatalf("ListScheduledQuizDetails: %v", err)
	}
	if len(open) != 1 || open[0].ID != f.scheduled {
		t.Errorf("incomplete filter = %+v", open)
	}

	other := createTestUser(t, s, "other@example.com", model.RoleInstructor)
	none, err := s.ListScheduledQuizDetails(ctx, model.ScheduledQuizQuery{InstructorID: other})
	if err != nil {
		t.Fatalf("ListScheduledQuizDetails: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("other instructor sees %d scheduled quizzes", len(none))
	}

	outsider := createTestUser(t, s, "outsider@example.com", model.RoleStudent)
	mine, err := s.ListScheduledQuizDetails(ctx, model.ScheduledQuizQuery{StudentID: outsider})
	if err != nil {
		t.Fatalf("ListScheduledQuizDetails: %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("student outside the class sees %d scheduled quizzes", len(mine))
	}
	mine, err = s.ListScheduledQuizDetails(ctx, model.ScheduledQuizQuery{StudentID: f.students[2]})
	if err != nil {
		t.Fatalf("ListScheduledQuizDetails: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("enrolled student sees %d scheduled quizzes, want 2", len(mine))
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hash, err := s.GetImportedFileHash(ctx, "quizzes/physics.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Fatalf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash(ctx, "quizzes/physics.json", "abc"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	if err := s.SetImportedFileHash(ctx, "quizzes/physics.json", "def"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, err = s.GetImportedFileHash(ctx, "quizzes/physics.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "def" {
		t.Errorf("hash = %q, want 'def'", hash)
	}
}

func TestRevokedTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.RevokeToken(ctx, "old", now.Add(-time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if err := s.RevokeToken(ctx, "fresh", now.Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if err := s.RevokeToken(ctx, "fresh", now.Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken twice: %v", err)
	}

	revoked, err := s.IsTokenRevoked(ctx, "fresh")
	if err != nil || !revoked {
		t.Errorf("IsTokenRevoked(fresh) = %v, %v", revoked, err)
	}
	revoked, err = s.IsTokenRevoked(ctx, "unknown")
	if err != nil || revoked {
		t.Errorf("IsTokenRevoked(unknown) = %v, %v", revoked, err)
	}

	n, err := s.CleanupRevokedTokens(ctx, now)
	if err != nil {
		t.Fatalf("CleanupRevokedTokens: %v", err)
	}
	if n != 1 {
		t.Errorf("cleaned %d tokens, want 1", n)
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn     string
		dialect Dialect
		driver  string
	}{
		{":memory:", DialectSQLite, "sqlite"},
		{"classquiz.db", DialectSQLite, "sqlite"},
		{"sqlite://data/classquiz.db", DialectSQLite, "sqlite"},
		{"postgres://u:p@localhost/db?sslmode=disable", DialectPostgres, "postgres"},
		{"postgresql://localhost/db", DialectPostgres, "postgres"},
	}
	for _, tt := range tests {
		dialect, driver, _ := parseDSN(tt.dsn)
		if dialect != tt.dialect || driver != tt.driver {
			t.Errorf("parseDSN(%q) = %s %s, want %s %s", tt.dsn, dialect, driver, tt.dialect, tt.driver)
		}
	}
}

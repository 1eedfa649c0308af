package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/classquiz/internal/model"
	"github.com/pavelanni/classquiz/internal/service"
	"github.com/pavelanni/classquiz/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSeedInstructor(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)

	require.NoError(t, seedInstructor(ctx, db, "", ""), "missing credentials only warn")
	n, err := db.UserCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, seedInstructor(ctx, db, " Prof@Example.com ", "s3cret"))
	u, err := db.GetUserByEmail(ctx, "prof@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleInstructor, u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret")))

	// Second run is a no-op once a user exists.
	require.NoError(t, seedInstructor(ctx, db, "other@example.com", "pw"))
	n, err = db.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func writeQuizFile(t *testing.T, path string, titles ...string) {
	t.Helper()
	quizzes := make([]model.NewQuiz, len(titles))
	for i, title := range titles {
		quizzes[i] = model.NewQuiz{
			Title: title,
			Questions: []model.Question{{
				Prompt:  "2 + 2",
				Options: []model.Option{{Key: "a", Text: "3"}, {Key: "b", Text: "4"}},
				Answer:  "b",
			}},
		}
	}
	data, err := json.Marshal(quizzes)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestImportQuizzes(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	svc := service.New(db, nil)
	require.NoError(t, seedInstructor(ctx, db, "prof@example.com", "pw"))
	prof, err := svc.Instructor(ctx, "prof@example.com")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "quizzes.json")
	writeQuizFile(t, path, "Week 1", "Week 2")

	require.NoError(t, importQuizzes(ctx, db, svc, "prof@example.com", []string{path}))
	quizzes, err := svc.ListQuizzes(ctx, prof.ID)
	require.NoError(t, err)
	assert.Len(t, quizzes, 2)

	// Unchanged and changed files are both skipped.
	require.NoError(t, importQuizzes(ctx, db, svc, "prof@example.com", []string{path}))
	writeQuizFile(t, path, "Week 1", "Week 2", "Week 3")
	require.NoError(t, importQuizzes(ctx, db, svc, "prof@example.com", []string{path}))
	quizzes, err = svc.ListQuizzes(ctx, prof.ID)
	require.NoError(t, err)
	assert.Len(t, quizzes, 2)
}

func TestImportQuizzesErrors(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	svc := service.New(db, nil)
	require.NoError(t, seedInstructor(ctx, db, "prof@example.com", "pw"))
	dir := t.TempDir()

	err := importQuizzes(ctx, db, svc, "nobody@example.com", []string{filepath.Join(dir, "x.json")})
	assert.ErrorIs(t, err, model.ErrNotFound)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"title":`), 0o600))
	assert.Error(t, importQuizzes(ctx, db, svc, "prof@example.com", []string{bad}))

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`[{"title":"","questions":[]}]`), 0o600))
	err = importQuizzes(ctx, db, svc, "prof@example.com", []string{invalid})
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)

	hash, err := db.GetImportedFileHash(ctx, invalid)
	require.NoError(t, err)
	assert.Empty(t, hash, "failed imports are not recorded")
}

func TestWriteJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, writeJSONFile(path, map[string]int{"a": 1}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}\n", string(data))
}

func TestRootCommandDefaultsToServe(t *testing.T) {
	root := rootCmd()
	assert.NotNil(t, root.RunE)
	for _, name := range []string{"addr", "db", "jwt-secret", "sweep-cron", "sweep-timezone"} {
		assert.NotNil(t, root.Flags().Lookup(name), name)
	}
	for _, name := range []string{"serve", "sweep", "import", "export"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

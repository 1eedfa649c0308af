package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pavelanni/classquiz/internal/model"
	"github.com/pavelanni/classquiz/internal/service"
	"github.com/pavelanni/classquiz/internal/store"
)

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	return importQuizzes(cmd.Context(), db, service.New(db, nil), v.GetString("instructor"), args)
}

// importQuizzes creates the quizzes listed in each file for the instructor.
// A file is imported once; later runs skip it, and warn when it changed.
func importQuizzes(ctx context.Context, db *store.Store, svc *service.Service, email string, paths []string) error {
	instructor, err := svc.Instructor(ctx, email)
	if err != nil {
		return err
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(ctx, path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash {
			slog.Info("quiz file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("quiz file changed since last import, skipping to avoid duplicate quizzes", "path", path)
			continue
		}

		var quizzes []model.NewQuiz
		if err := json.Unmarshal(data, &quizzes); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for i, nq := range quizzes {
			q, err := svc.CreateQuiz(ctx, instructor.ID, nq)
			if err != nil {
				return fmt.Errorf("create quiz %d from %s: %w", i+1, path, err)
			}
			slog.Debug("created quiz", "id", q.ID, "title", q.Title)
		}

		if err := db.SetImportedFileHash(ctx, path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported quizzes", "path", path, "count", len(quizzes), "instructor", instructor.Email)
	}

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// writeJSONFile writes v as indented JSON to path, or to stdout for "-".
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("wrote file", "path", path, "bytes", len(data))
	return nil
}

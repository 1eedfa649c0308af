// Package handler serves the JSON HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pavelanni/classquiz/internal/auth"
	appI18n "github.com/pavelanni/classquiz/internal/i18n"
	"github.com/pavelanni/classquiz/internal/metrics"
	"github.com/pavelanni/classquiz/internal/model"
	"github.com/pavelanni/classquiz/internal/service"
)

// maxBodyBytes bounds request bodies; quizzes are the largest payloads.
const maxBodyBytes = 1 << 20

// Sessions revokes and checks bearer tokens. *store.Store implements it.
type Sessions interface {
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	Ping(ctx context.Context) error
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc      *service.Service
	tokens   *auth.Tokens
	sessions Sessions
}

// New creates a new Handler.
func New(svc *service.Service, tokens *auth.Tokens, sessions Sessions) *Handler {
	return &Handler{svc: svc, tokens: tokens, sessions: sessions}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(observeDuration)

		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.tokens.Authenticate(h.sessions, h.writeError))
			r.Post("/logout", h.handleLogout)
			r.Get("/me", h.handleMe)

			r.Route("/instructor", func(r chi.Router) {
				r.Use(auth.RequireRole(h.writeError, model.RoleInstructor))

				r.Get("/classes", h.handleListClasses)
				r.Post("/classes", h.handleCreateClass)
				r.Get("/classes/{classID}", h.handleGetClass)
				r.Patch("/classes/{classID}", h.handleRenameClass)
				r.Delete("/classes/{classID}", h.handleDeleteClass)
				r.Post("/classes/{classID}/students", h.handleAddStudents)
				r.Delete("/classes/{classID}/students", h.handleRemoveStudents)

				r.Get("/quizzes", h.handleListQuizzes)
				r.Post("/quizzes", h.handleCreateQuiz)
				r.Get("/quizzes/{quizID}", h.handleGetQuiz)
				r.Put("/quizzes/{quizID}", h.handleUpdateQuiz)
				r.Delete("/quizzes/{quizID}", h.handleDeleteQuiz)

				r.Get("/scheduled-quizzes", h.handleListScheduledQuizzes)
				r.Post("/scheduled-quizzes", h.handleScheduleQuiz)
				r.Patch("/scheduled-quizzes/{scheduledQuizID}", h.handleRescheduleQuiz)
				r.Delete("/scheduled-quizzes/{scheduledQuizID}", h.handleDeleteScheduledQuiz)

				r.Get("/quiz-grades", h.handleQuizGrades)
				r.Get("/class-grades", h.handleClassGrades)
			})

			r.Route("/student", func(r chi.Router) {
				r.Use(auth.RequireRole(h.writeError, model.RoleStudent))

				r.Get("/quizzes", h.handleStudentQuizzes)
				r.Get("/quizzes/{scheduledQuizID}", h.handleStudentQuiz)
				r.Post("/quizzes/{scheduledQuizID}/submit", h.handleSubmit)
				r.Get("/grades", h.handleStudentGrades)
			})
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// observeDuration records request latency labelled by route pattern, so
// ids in the path do not explode label cardinality.
func observeDuration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.APIRequestDuration.WithLabelValues(
			pattern,
			r.Method,
			strconv.Itoa(status),
		).Observe(time.Since(start).Seconds())
	})
}

// errBadRequest marks bodies and parameters that could not be parsed.
var errBadRequest = errors.New("bad request")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, errBadRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, chi.URLParam(r, name), errBadRequest)
	}
	return id, nil
}

// principal returns the authenticated caller. The auth middleware guarantees
// one on every route that calls it.
func principal(r *http.Request) model.Principal {
	p, _ := model.PrincipalFromContext(r.Context())
	return p
}

type errorResponse struct {
	Code    string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// errorKind maps an error to its HTTP status, response code and message id.
func errorKind(err error) (int, string, string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation_failed", "Error.Validation"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request", "Error.BadRequest"
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "Error.Unauthorized"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "forbidden", "Error.Forbidden"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found", "Error.NotFound"
	case errors.Is(err, model.ErrDuplicateSubmission):
		return http.StatusConflict, "duplicate_submission", "Error.DuplicateSubmission"
	case errors.Is(err, model.ErrQuizClosed):
		return http.StatusConflict, "quiz_closed", "Error.QuizClosed"
	case errors.Is(err, model.ErrAlreadyExists):
		return http.StatusConflict, "already_exists", "Error.AlreadyExists"
	case errors.Is(err, model.ErrInvalidQuiz):
		return http.StatusUnprocessableEntity, "invalid_quiz", "Error.InvalidQuiz"
	default:
		return http.StatusInternalServerError, "internal", "Error.Internal"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msgID := errorKind(err)
	resp := errorResponse{Code: code, Message: appI18n.T(r.Context(), msgID)}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = make(map[string]string, len(verr.Fields))
		for _, f := range verr.Fields {
			resp.Fields[f.Field] = appI18n.TdOr(r.Context(), "Validation."+f.Tag, "Validation.invalid",
				map[string]any{"Field": f.Field, "Param": f.Param})
		}
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
	} else {
		slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

package handler

import (
	"net/http"

	appI18n "github.com/pavelanni/classquiz/internal/i18n"
	"github.com/pavelanni/classquiz/internal/model"
)

func (h *Handler) handleListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.svc.ListClasses(r.Context(), principal(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, classes)
}

func (h *Handler) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var req model.NewClass
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.CreateClass(r.Context(), principal(r).UserID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGetClass(w http.ResponseWriter, r *http.Request) {
	classID, err := idParam(r, "classID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.GetClass(r.Context(), principal(r).UserID, classID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleRenameClass(w http.ResponseWriter, r *http.Request) {
	classID, err := idParam(r, "classID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req model.ClassRename
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.RenameClass(r.Context(), principal(r).UserID, classID, req); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteClass(w http.ResponseWriter, r *http.Request) {
	classID, err := idParam(r, "classID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteClass(r.Context(), principal(r).UserID, classID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addStudentsResponse struct {
	model.AddStudentsResult
	Message string `json:"message"`
}

func (h *Handler) handleAddStudents(w http.ResponseWriter, r *http.Request) {
	classID, err := idParam(r, "classID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req model.RosterAddition
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.AddStudentsToClass(r.Context(), principal(r).UserID, classID, req.Emails)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addStudentsResponse{
		AddStudentsResult: res,
		Message:           appI18n.Tp(r.Context(), "StudentsAdded", res.Added),
	})
}

func (h *Handler) handleRemoveStudents(w http.ResponseWriter, r *http.Request) {
	classID, err := idParam(r, "classID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req model.RosterRemoval
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	removed, err := h.svc.RemoveStudentsFromClass(r.Context(), principal(r).UserID, classID, req.StudentIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   removed,
		"message": appI18n.Tp(r.Context(), "StudentsRemoved", removed),
	})
}

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.svc.ListQuizzes(r.Context(), principal(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req model.NewQuiz
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.svc.CreateQuiz(r.Context(), principal(r).UserID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *Handler) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := idParam(r, "quizID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.svc.GetQuiz(r.Context(), principal(r).UserID, quizID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) handleUpdateQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := idParam(r, "quizID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req model.NewQuiz
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.svc.UpdateQuiz(r.Context(), principal(r).UserID, quizID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := idParam(r, "quizID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteQuiz(r.Context(), principal(r).UserID, quizID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListScheduledQuizzes lists scheduled quizzes with their grade
// summary. The filter query parameter takes all, complete or incomplete.
func (h *Handler) handleListScheduledQuizzes(w http.ResponseWriter, r *http.Request) {
	filter := model.ParseCompletionFilter(r.URL.Query().Get("filter"))
	views, err := h.svc.ComputeQuizGrades(r.Context(), principal(r).UserID, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleScheduleQuiz(w http.ResponseWriter, r *http.Request) {
	var req model.NewScheduledQuiz
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sq, err := h.svc.ScheduleQuiz(r.Context(), principal(r).UserID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sq)
}

func (h *Handler) handleRescheduleQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "scheduledQuizID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req model.DueDateUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.RescheduleQuiz(r.Context(), principal(r).UserID, id, req); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteScheduledQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "scheduledQuizID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteScheduledQuiz(r.Context(), principal(r).UserID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleQuizGrades(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ComputeQuizGrades(r.Context(), principal(r).UserID, model.FilterAll)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleClassGrades(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ComputeClassGrades(r.Context(), principal(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

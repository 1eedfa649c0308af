package handler

import (
	"net/http"

	"github.com/pavelanni/classquiz/internal/model"
)

func (h *Handler) handleStudentQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.svc.ListStudentQuizzes(r.Context(), principal(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) handleStudentQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "scheduledQuizID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.svc.GetStudentQuiz(r.Context(), principal(r).UserID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type submitRequest struct {
	Responses []string `json:"responses"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "scheduledQuizID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.ScoreAndRecordSubmission(r.Context(), model.Submission{
		ScheduledQuizID: id,
		StudentID:       principal(r).UserID,
		Responses:       req.Responses,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleStudentGrades(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.ComputeStudentGrades(r.Context(), principal(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// internal/quiz/handler.go
package quiz

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"quiz-api/internal/auth"
	"quiz-api/internal/httpx"
	"quiz-api/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the quiz routes on an authenticated /api router.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/quiz", h.ListQuizzes).Methods(http.MethodGet)
	router.HandleFunc("/quiz", h.CreateQuiz).Methods(http.MethodPost)
	router.HandleFunc("/quiz/{quiz_id:[0-9]+}", h.GetQuiz).Methods(http.MethodGet)
	router.HandleFunc("/quiz/{quiz_id:[0-9]+}", h.UpdateQuiz).Methods(http.MethodPut, http.MethodPatch)
	router.HandleFunc("/quiz/{quiz_id:[0-9]+}", h.DeleteQuiz).Methods(http.MethodDelete)
	router.HandleFunc("/quiz/{quiz_id:[0-9]+}/submit", h.Submit).Methods(http.MethodPost)
	router.HandleFunc("/quiz/{quiz_id:[0-9]+}/results", h.GetResults).Methods(http.MethodGet)
	router.HandleFunc("/quiz/{quiz_id:[0-9]+}/leaderboard", h.GetLeaderboard).Methods(http.MethodGet)
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListQuizzes(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "quiz_id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	quiz, err := h.service.GetQuiz(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, quiz)
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var in QuizInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	quiz, err := h.service.CreateQuiz(r.Context(), auth.UserFromContext(r.Context()), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "quiz_id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var in QuizInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	quiz, err := h.service.UpdateQuiz(r.Context(), auth.UserFromContext(r.Context()), id, in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, quiz)
}

func (h *Handler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "quiz_id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.DeleteQuiz(r.Context(), auth.UserFromContext(r.Context()), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, id)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "quiz_id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var sub models.Submission
	if err := httpx.Decode(r, &sub); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := h.service.Submit(r.Context(), id, auth.UserFromContext(r.Context()), &sub)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "quiz_id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	results, err := h.service.Results(r.Context(), auth.UserFromContext(r.Context()), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, results)
}

// GetLeaderboard handles GET /api/quiz/{quiz_id}/leaderboard?limit=N.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "quiz_id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			httpx.WriteError(w, r, httpx.Invalid("limit must be a non-negative integer"))
			return
		}
	}
	entries, err := h.service.Leaderboard(r.Context(), id, limit)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entries)
}

// internal/result/handler.go
package result

import (
	"net/http"

	"github.com/gorilla/mux"

	"quiz-api/internal/auth"
	"quiz-api/internal/httpx"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/result", h.List).Methods(http.MethodGet)
	router.HandleFunc("/result/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/result/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
}

// List handles GET /api/result?quiz_id=&user_id=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	quizID, err := httpx.QueryID(r, "quiz_id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	userID, err := httpx.QueryID(r, "user_id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	results, err := h.service.List(r.Context(), auth.UserFromContext(r.Context()), quizID, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, results)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := h.service.Get(r.Context(), auth.UserFromContext(r.Context()), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), auth.UserFromContext(r.Context()), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, id)
}

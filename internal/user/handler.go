// internal/user/handler.go
package user

import (
	"net/http"

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

// Register mounts the admin-only user routes. /user/me is served by the auth handler.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/user", auth.AdminOnly(h.List)).Methods(http.MethodGet)
	router.HandleFunc("/user", auth.AdminOnly(h.Create)).Methods(http.MethodPost)
	router.HandleFunc("/user/{id:[0-9]+}", auth.AdminOnly(h.Get)).Methods(http.MethodGet)
	router.HandleFunc("/user/{id:[0-9]+}", auth.AdminOnly(h.Update)).Methods(http.MethodPut, http.MethodPatch)
	router.HandleFunc("/user/{id:[0-9]+}", auth.AdminOnly(h.Delete)).Methods(http.MethodDelete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.UserInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	u, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var in models.UserInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	u, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, id)
}

// internal/label/handler.go
package label

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
	router.HandleFunc("/label", h.List).Methods(http.MethodGet)
	router.HandleFunc("/label", auth.AdminOnly(h.Create)).Methods(http.MethodPost)
	router.HandleFunc("/label/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/label/{id:[0-9]+}", auth.AdminOnly(h.Update)).Methods(http.MethodPut, http.MethodPatch)
	router.HandleFunc("/label/{id:[0-9]+}", auth.AdminOnly(h.Delete)).Methods(http.MethodDelete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	labels, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, labels)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	label, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, label)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	label, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, label)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var in Input
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	label, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, label)
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

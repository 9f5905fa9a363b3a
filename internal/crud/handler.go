// internal/crud/handler.go
package crud

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"quiz-api/internal/auth"
	"quiz-api/internal/httpx"
)

type Handler[T any] struct {
	store *Store[T]
	// changed is called after every successful write.
	changed func(ctx context.Context)
}

func NewHandler[T any](store *Store[T], changed func(ctx context.Context)) *Handler[T] {
	if changed == nil {
		changed = func(context.Context) {}
	}
	return &Handler[T]{store: store, changed: changed}
}

// Register mounts the routes on an authenticated router. Writes need the admin role.
func (h *Handler[T]) Register(router *mux.Router, path string) {
	router.HandleFunc(path, h.List).Methods(http.MethodGet)
	router.HandleFunc(path, auth.AdminOnly(h.Create)).Methods(http.MethodPost)
	router.HandleFunc(path+"/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	router.HandleFunc(path+"/{id:[0-9]+}", auth.AdminOnly(h.Update)).Methods(http.MethodPut, http.MethodPatch)
	router.HandleFunc(path+"/{id:[0-9]+}", auth.AdminOnly(h.Delete)).Methods(http.MethodDelete)
}

// RegisterAdminRead mounts only list and get, both restricted to admins.
func (h *Handler[T]) RegisterAdminRead(router *mux.Router, path string) {
	router.HandleFunc(path, auth.AdminOnly(h.List)).Methods(http.MethodGet)
	router.HandleFunc(path+"/{id:[0-9]+}", auth.AdminOnly(h.Get)).Methods(http.MethodGet)
}

func (h *Handler[T]) List(w http.ResponseWriter, r *http.Request) {
	var filter uint
	if name := h.store.Filter(); name != "" {
		id, err := httpx.QueryID(r, name)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		filter = id
	}
	items, err := h.store.List(r.Context(), filter)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	item, err := h.store.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler[T]) Create(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := httpx.Decode(r, &item); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.store.Create(r.Context(), &item); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	log.Printf("created %s", h.store.Name())
	h.changed(r.Context())
	httpx.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var item T
	if err := httpx.Decode(r, &item); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.store.Update(r.Context(), id, &item); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	log.Printf("updated %s %d", h.store.Name(), id)
	h.changed(r.Context())
	updated, err := h.store.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	log.Printf("deleted %s %d", h.store.Name(), id)
	h.changed(r.Context())
	httpx.WriteJSON(w, http.StatusOK, id)
}

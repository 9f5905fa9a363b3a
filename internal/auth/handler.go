// internal/auth/handler.go
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"quiz-api/internal/httpx"
	"quiz-api/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token handles POST /api/token with either a form body (OAuth2 password flow) or JSON.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, r, fmt.Errorf("%w: invalid JSON body", models.ErrValidation))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.WriteError(w, r, fmt.Errorf("%w: invalid form body", models.ErrValidation))
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}
	if req.Username == "" || req.Password == "" {
		httpx.WriteError(w, r, fmt.Errorf("%w: username and password are required", models.ErrValidation))
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	token, err := h.service.IssueToken(user)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me returns the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		httpx.WriteError(w, r, models.ErrUnauthorized)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

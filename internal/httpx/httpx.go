// Package httpx holds the JSON request and response helpers shared by the handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"quiz-api/internal/models"
)

var validate = validator.New()

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

// FieldError carries per-field validator failures inside an ErrValidation chain.
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name, tag := range e.Fields {
		names = append(names, name+" ("+tag+")")
	}
	sort.Strings(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

func (e *FieldError) Unwrap() error { return models.ErrValidation }

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// WriteError answers with {"detail": ...}. Unknown errors are logged and hidden behind a 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := ErrorBody{Detail: err.Error()}
	switch status {
	case http.StatusInternalServerError:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		body.Detail = "internal server error"
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		body.Fields = fe.Fields
	}
	WriteJSON(w, status, body)
}

// Decode reads a JSON body into v and runs struct validation on it.
func Decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", models.ErrValidation, err)
	}
	return Validate(v)
}

// Validate runs validator tags on v and translates failures to ErrValidation.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	fields := make(map[string]string, len(ve))
	for _, fieldErr := range ve {
		fields[fieldErr.Namespace()] = fieldErr.Tag()
	}
	return &FieldError{Fields: fields}
}

// PathID parses a numeric mux path variable.
func PathID(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", models.ErrValidation, name, raw)
	}
	return uint(id), nil
}

// QueryID parses an optional numeric query parameter; absent yields 0.
func QueryID(r *http.Request, name string) (uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", models.ErrValidation, name, raw)
	}
	return uint(id), nil
}

// Invalid builds an ErrValidation with a message.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", models.ErrValidation, msg)
}

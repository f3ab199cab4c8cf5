package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/validate"
)

// APIError is the JSON error body. Name is only set for authentication
// failures.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
}

var errInvalidBody = errors.New("invalid request body")

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIError{Status: status, Message: message})
}

// writeAuthError writes the 401 body shared by every authentication failure.
func writeAuthError(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, APIError{
		Status:  http.StatusUnauthorized,
		Message: "Unauthorized",
		Name:    "AuthenticationError",
	})
}

func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Not Found")
}

// writeStoreError maps an error from the request path to a response. Errors
// that are not the client's fault are logged and reported as 500.
func (a *App) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	err = classifySQLite(classifyPQ(err))

	var verr *validate.Error
	var valErr *valueError
	switch {
	case errors.As(err, &verr):
		writeError(w, verr.Status(), verr.Error())
	case errors.Is(err, errInvalidBody):
		writeError(w, http.StatusBadRequest, "Invalid request body")
	case errors.Is(err, errUsernameTaken):
		writeError(w, http.StatusUnprocessableEntity, "Username already taken")
	case errors.As(err, &valErr):
		msg := "Invalid value"
		if valErr.Field != "" {
			msg += ": " + valErr.Field
		}
		writeError(w, http.StatusUnprocessableEntity, msg)
	default:
		a.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

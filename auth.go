package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/auth"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AuthToken string `json:"authToken"`
}

var structValidator = validator.New()

// HandleLogin exchanges a username and password for a bearer token. Every
// rejection looks the same to the client.
func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.Metrics.RecordLoginFailure()
		writeAuthError(w)
		return
	}
	if err := structValidator.Struct(req); err != nil {
		a.Metrics.RecordLoginFailure()
		writeAuthError(w)
		return
	}

	p, err := a.Auth.VerifyCredentials(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		a.Metrics.RecordLoginFailure()
		writeAuthError(w)
		return
	}
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}

	a.writeToken(w, r, p)
}

// HandleRefresh issues a fresh token for the caller of a still valid one.
func (a *App) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	a.writeToken(w, r, principalFrom(r.Context()))
}

// HandleValidate reports the principal a bearer token resolves to.
func (a *App) HandleValidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, principalFrom(r.Context()))
}

func (a *App) writeToken(w http.ResponseWriter, r *http.Request, p *auth.Principal) {
	token, err := a.Auth.IssueToken(p)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AuthToken: token})
}

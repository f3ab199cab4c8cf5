package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/schema"
	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/validate"
)

const maxBodyBytes = 1 << 20

// decodeObject reads a JSON object body. Numbers are kept as json.Number.
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil || body == nil || dec.More() {
		return nil, errInvalidBody
	}
	return body, nil
}

// readPayload decodes the body and validates it for op on res. It writes the
// error response itself and returns false when the request cannot proceed.
func (a *App) readPayload(w http.ResponseWriter, r *http.Request, res *schema.Resource, op schema.Operation) (map[string]any, bool) {
	body, err := decodeObject(w, r)
	if err != nil {
		a.writeStoreError(w, r, err)
		return nil, false
	}
	in, err := validate.Validate(res, op, body)
	if err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			a.Metrics.RecordValidationFailure(res.Name, verr.Kind.String())
		}
		a.writeStoreError(w, r, err)
		return nil, false
	}
	return in, true
}

// pathID reads the {id} route variable.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

// hashPasswordField replaces a plaintext password in in with its hash.
func (a *App) hashPasswordField(in map[string]any) error {
	pw, ok := in["password"].(string)
	if !ok {
		return nil
	}
	hash, err := a.Auth.HashPassword(pw)
	if err != nil {
		return err
	}
	in["password"] = hash
	return nil
}

// HandleCreateUser registers a new account.
func (a *App) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	in, ok := a.readPayload(w, r, schema.User, schema.Create)
	if !ok {
		return
	}
	if err := a.hashPasswordField(in); err != nil {
		a.writeStoreError(w, r, err)
		return
	}

	u, err := a.DB.CreateUser(r.Context(), in)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/user")
	writeJSON(w, http.StatusCreated, u)
}

func (a *App) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	u, err := a.DB.GetUser(r.Context(), p.UserID)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	if u == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *App) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	in, ok := a.readPayload(w, r, schema.User, schema.Update)
	if !ok {
		return
	}
	if err := a.hashPasswordField(in); err != nil {
		a.writeStoreError(w, r, err)
		return
	}

	u, err := a.DB.UpdateUser(r.Context(), p.UserID, in)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	if u == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleDeleteUser removes the caller's account and everything it owns.
func (a *App) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	deleted, err := a.DB.DeleteUser(r.Context(), p.UserID)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	if !deleted {
		writeNotFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package main

import (
	"fmt"
	"net/http"

	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/schema"
)

func (a *App) HandleListVehicles(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	list, err := a.DB.ListVehicles(r.Context(), p.UserID)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *App) HandleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	in, ok := a.readPayload(w, r, schema.Vehicle, schema.Create)
	if !ok {
		return
	}
	v, err := a.DB.CreateVehicle(r.Context(), p.UserID, in)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/vehicle/%d", v.VehicleID))
	writeJSON(w, http.StatusCreated, v)
}

func (a *App) HandleGetVehicle(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	v, err := a.DB.GetVehicle(r.Context(), p.UserID, id)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	if v == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *App) HandleUpdateVehicle(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	in, ok := a.readPayload(w, r, schema.Vehicle, schema.Update)
	if !ok {
		return
	}
	v, err := a.DB.UpdateVehicle(r.Context(), p.UserID, id, in)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	if v == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleDeleteVehicle deletes a vehicle and its fuel purchases.
func (a *App) HandleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	deleted, err := a.DB.DeleteVehicle(r.Context(), p.UserID, id)
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

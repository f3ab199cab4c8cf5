package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/schema"
)

// HandleListFuelPurchases lists the caller's purchases. ?vehicle_id=N limits
// the list to one vehicle.
func (a *App) HandleListFuelPurchases(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	var vehicleID *int64
	if raw := r.URL.Query().Get("vehicle_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid query parameter: vehicle_id")
			return
		}
		vehicleID = &id
	}

	list, err := a.DB.ListFuelPurchases(r.Context(), p.UserID, vehicleID)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *App) HandleCreateFuelPurchase(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	in, ok := a.readPayload(w, r, schema.FuelPurchase, schema.Create)
	if !ok {
		return
	}
	fp, err := a.DB.CreateFuelPurchase(r.Context(), p.UserID, in)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/fuel-purchase/%d", fp.FuelPurchaseID))
	writeJSON(w, http.StatusCreated, fp)
}

func (a *App) HandleGetFuelPurchase(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	fp, err := a.DB.GetFuelPurchase(r.Context(), p.UserID, id)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	if fp == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, fp)
}

func (a *App) HandleUpdateFuelPurchase(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	in, ok := a.readPayload(w, r, schema.FuelPurchase, schema.Update)
	if !ok {
		return
	}
	fp, err := a.DB.UpdateFuelPurchase(r.Context(), p.UserID, id, in)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	if fp == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, fp)
}

func (a *App) HandleDeleteFuelPurchase(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	deleted, err := a.DB.DeleteFuelPurchase(r.Context(), p.UserID, id)
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

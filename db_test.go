package main

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) *SQLDB {
	t.Helper()
	db, err := NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateUser(t *testing.T, db *SQLDB, username string) *User {
	t.Helper()
	u, err := db.CreateUser(context.Background(), map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "hashed-" + username,
	})
	require.NoError(t, err)
	return u
}

func jsonInt(n int64) string { return strconv.FormatInt(n, 10) }

func requireValueError(t *testing.T, err error, field string) {
	t.Helper()
	var verr *valueError
	require.True(t, errors.As(err, &verr), "expected *valueError, got %v", err)
	require.Equal(t, field, verr.Field)
}

func TestUserStore(t *testing.T) {
	db := newMemStore(t)
	ctx := context.Background()

	u := mustCreateUser(t, db, "alice")
	require.NotZero(t, u.UserID)
	require.True(t, u.Onboarding)
	require.Nil(t, u.SelectedVehicleID)
	require.NotEmpty(t, u.CreatedAt)

	_, err := db.CreateUser(ctx, map[string]any{"username": "alice", "email": "a@b.c", "password": "x"})
	require.ErrorIs(t, err, errUsernameTaken)

	cred, err := db.CredentialByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "hashed-alice", cred.PasswordHash)
	require.Equal(t, u.UserID, cred.UserID)

	cred, err = db.CredentialByUsername(ctx, "nobody")
	require.NoError(t, err)
	require.Nil(t, cred)

	p, err := db.AccountByID(ctx, u.UserID)
	require.NoError(t, err)
	require.Equal(t, "alice", p.Username)

	p, err = db.AccountByID(ctx, u.UserID+100)
	require.NoError(t, err)
	require.Nil(t, p)

	updated, err := db.UpdateUser(ctx, u.UserID, map[string]any{"email": "new@example.com", "onboarding": false})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", updated.Email)
	require.False(t, updated.Onboarding)

	same, err := db.UpdateUser(ctx, u.UserID, map[string]any{})
	require.NoError(t, err)
	require.Equal(t, updated, same)

	_, err = db.CreateUser(ctx, map[string]any{"username": "bob", "email": "b@b.c", "password": "x", "selected_vehicle_id": json.Number("1")})
	requireValueError(t, err, "selected_vehicle_id")
}

func TestVehicleStoreOwnership(t *testing.T) {
	db := newMemStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	v, err := db.CreateVehicle(ctx, alice.UserID, map[string]any{
		"name":         "Jeep",
		"vehicle_year": json.Number("2020"),
		"odometer":     json.Number("41000.5"),
		"user_id":      json.Number("999"),
		"vehicle_id":   json.Number("999"),
	})
	require.NoError(t, err)
	require.Equal(t, alice.UserID, v.UserID)
	require.NotEqual(t, int64(999), v.VehicleID)
	require.Equal(t, int64(2020), *v.VehicleYear)
	require.Equal(t, 41000.5, *v.Odometer)
	require.Nil(t, v.Make)

	got, err := db.GetVehicle(ctx, bob.UserID, v.VehicleID)
	require.NoError(t, err)
	require.Nil(t, got)

	list, err := db.ListVehicles(ctx, bob.UserID)
	require.NoError(t, err)
	require.Empty(t, list)

	upd, err := db.UpdateVehicle(ctx, bob.UserID, v.VehicleID, map[string]any{"name": "Stolen"})
	require.NoError(t, err)
	require.Nil(t, upd)

	upd, err = db.UpdateVehicle(ctx, alice.UserID, v.VehicleID, map[string]any{"make": "Jeep", "model": "Wrangler"})
	require.NoError(t, err)
	require.Equal(t, "Wrangler", *upd.Model)
	require.Equal(t, "Jeep", upd.Name)

	_, err = db.UpdateVehicle(ctx, alice.UserID, v.VehicleID, map[string]any{"vehicle_year": json.Number("2020.5")})
	requireValueError(t, err, "vehicle_year")

	deleted, err := db.DeleteVehicle(ctx, bob.UserID, v.VehicleID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestFuelPurchaseStore(t *testing.T) {
	db := newMemStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	jeep, err := db.CreateVehicle(ctx, alice.UserID, map[string]any{"name": "Jeep"})
	require.NoError(t, err)
	truck, err := db.CreateVehicle(ctx, alice.UserID, map[string]any{"name": "Truck"})
	require.NoError(t, err)
	bobsCar, err := db.CreateVehicle(ctx, bob.UserID, map[string]any{"name": "Civic"})
	require.NoError(t, err)

	purchase := func(vehicleID int64, date string) map[string]any {
		return map[string]any{
			"vehicle_id":      json.Number(jsonInt(vehicleID)),
			"date_of_fill_up": date,
			"odometer":        json.Number("12000"),
			"gallons":         json.Number("10.5"),
			"price":           json.Number("3.49"),
		}
	}

	first, err := db.CreateFuelPurchase(ctx, alice.UserID, purchase(jeep.VehicleID, "2024-03-01T10:00:00Z"))
	require.NoError(t, err)
	require.Equal(t, jeep.VehicleID, first.VehicleID)
	require.Equal(t, 10.5, first.Gallons)
	require.Equal(t, "2024-03-01T10:00:00Z", first.DateOfFillUp)

	_, err = db.CreateFuelPurchase(ctx, alice.UserID, purchase(truck.VehicleID, "2024-03-05"))
	require.NoError(t, err)

	_, err = db.CreateFuelPurchase(ctx, alice.UserID, purchase(bobsCar.VehicleID, "2024-03-01T10:00:00Z"))
	requireValueError(t, err, "vehicle_id")

	_, err = db.CreateFuelPurchase(ctx, alice.UserID, purchase(jeep.VehicleID, "yesterday"))
	requireValueError(t, err, "date_of_fill_up")

	all, err := db.ListFuelPurchases(ctx, alice.UserID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, truck.VehicleID, all[0].VehicleID, "newest fill-up first")

	onlyJeep, err := db.ListFuelPurchases(ctx, alice.UserID, &jeep.VehicleID)
	require.NoError(t, err)
	require.Len(t, onlyJeep, 1)

	none, err := db.ListFuelPurchases(ctx, bob.UserID, nil)
	require.NoError(t, err)
	require.Empty(t, none)

	upd, err := db.UpdateFuelPurchase(ctx, alice.UserID, first.FuelPurchaseID, map[string]any{"price": json.Number("3.99"), "location": "Main St"})
	require.NoError(t, err)
	require.Equal(t, 3.99, upd.Price)
	require.Equal(t, "Main St", *upd.Location)

	got, err := db.GetFuelPurchase(ctx, bob.UserID, first.FuelPurchaseID)
	require.NoError(t, err)
	require.Nil(t, got)

	deleted, err := db.DeleteFuelPurchase(ctx, bob.UserID, first.FuelPurchaseID)
	require.NoError(t, err)
	require.False(t, deleted)
	deleted, err = db.DeleteFuelPurchase(ctx, alice.UserID, first.FuelPurchaseID)
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestDeleteCascades(t *testing.T) {
	db := newMemStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, db, "alice")

	jeep, err := db.CreateVehicle(ctx, alice.UserID, map[string]any{"name": "Jeep"})
	require.NoError(t, err)
	_, err = db.UpdateUser(ctx, alice.UserID, map[string]any{"selected_vehicle_id": json.Number(jsonInt(jeep.VehicleID))})
	require.NoError(t, err)
	_, err = db.CreateFuelPurchase(ctx, alice.UserID, map[string]any{
		"vehicle_id": json.Number(jsonInt(jeep.VehicleID)), "date_of_fill_up": "2024-03-01",
		"odometer": 1, "gallons": 1, "price": 1,
	})
	require.NoError(t, err)

	deleted, err := db.DeleteVehicle(ctx, alice.UserID, jeep.VehicleID)
	require.NoError(t, err)
	require.True(t, deleted)

	u, err := db.GetUser(ctx, alice.UserID)
	require.NoError(t, err)
	require.Nil(t, u.SelectedVehicleID)
	purchases, err := db.ListFuelPurchases(ctx, alice.UserID, nil)
	require.NoError(t, err)
	require.Empty(t, purchases)

	_, err = db.CreateVehicle(ctx, alice.UserID, map[string]any{"name": "Truck"})
	require.NoError(t, err)
	deleted, err = db.DeleteUser(ctx, alice.UserID)
	require.NoError(t, err)
	require.True(t, deleted)

	vehicles, err := db.ListVehicles(ctx, alice.UserID)
	require.NoError(t, err)
	require.Empty(t, vehicles)

	deleted, err = db.DeleteUser(ctx, alice.UserID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestSQLiteUsernameConstraint(t *testing.T) {
	db := newMemStore(t)
	ctx := context.Background()
	mustCreateUser(t, db, "alice")

	_, err := db.db.ExecContext(ctx, `INSERT INTO users (username, email, password) VALUES ('alice', 'x', 'y')`)
	require.Error(t, err)
	require.ErrorIs(t, classifySQLite(err), errUsernameTaken)

	_, err = db.db.ExecContext(ctx, `INSERT INTO users (username, email, password) VALUES (NULL, 'x', 'y')`)
	require.Error(t, err)
	require.NotErrorIs(t, classifySQLite(err), errUsernameTaken)

	plain := errors.New("disk I/O error")
	require.Equal(t, plain, classifySQLite(plain))
}

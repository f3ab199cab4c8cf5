package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/auth"
	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/schema"
)

// SQLDB implements DB on any database/sql driver that sqlx can rebind for.
type SQLDB struct {
	db *sqlx.DB
}

const (
	userColumns     = `user_id, username, email, password, onboarding, selected_vehicle_id, created_at`
	vehicleColumns  = `vehicle_id, user_id, name, vehicle_year, make, model, odometer, oil_change_frequency, next_oil_change, created_at`
	purchaseColumns = `fuel_purchase_id, user_id, vehicle_id, date_of_fill_up, odometer, gallons, price, location, created_at`
)

// integerColumns are stored as integers; fractional input is rejected.
var integerColumns = map[string]bool{
	"user_id":             true,
	"vehicle_id":          true,
	"fuel_purchase_id":    true,
	"selected_vehicle_id": true,
	"vehicle_year":        true,
}

// identityColumns are assigned by the server and dropped from client input.
var identityColumns = map[string]bool{
	"user_id":          true,
	"vehicle_id":       true,
	"fuel_purchase_id": true,
}

func (s *SQLDB) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQLDB) Close() error                   { return s.db.Close() }

// get runs a single-row query and maps sql.ErrNoRows to found == false.
func (s *SQLDB) get(ctx context.Context, q sqlx.QueryerContext, dest any, query string, args ...any) (bool, error) {
	err := sqlx.GetContext(ctx, q, dest, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// --- credentials ---

func (s *SQLDB) CredentialByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	u := &User{}
	found, err := s.get(ctx, s.db, u, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, fmt.Errorf("selecting user by username: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &auth.Credential{Principal: principalOf(u), PasswordHash: u.Password}, nil
}

func (s *SQLDB) AccountByID(ctx context.Context, userID int64) (*auth.Principal, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil || u == nil {
		return nil, err
	}
	p := principalOf(u)
	return &p, nil
}

func principalOf(u *User) auth.Principal {
	return auth.Principal{
		UserID:            u.UserID,
		Username:          u.Username,
		Email:             u.Email,
		Onboarding:        u.Onboarding,
		SelectedVehicleID: u.SelectedVehicleID,
	}
}

// --- users ---

// CreateUser inserts an account. in must carry an already hashed password.
func (s *SQLDB) CreateUser(ctx context.Context, in map[string]any) (*User, error) {
	cols, args, err := columnValues(schema.User, in)
	if err != nil {
		return nil, err
	}
	if _, ok := in["selected_vehicle_id"]; ok {
		// a new account owns no vehicles yet
		return nil, &valueError{Field: "selected_vehicle_id"}
	}

	var exists bool
	if err := sqlx.GetContext(ctx, s.db, &exists, s.db.Rebind(`SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`), in["username"]); err != nil {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if exists {
		return nil, errUsernameTaken
	}

	id, err := s.insert(ctx, "users", "user_id", cols, args)
	if err != nil {
		// a concurrent signup can win between the check and the insert
		if err := classifySQLite(classifyPQ(err)); errors.Is(err, errUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (s *SQLDB) GetUser(ctx context.Context, userID int64) (*User, error) {
	u := &User{}
	found, err := s.get(ctx, s.db, u, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("selecting user: %w", err)
	}
	if !found {
		return nil, nil
	}
	return u, nil
}

// UpdateUser applies in to the account. in must carry an already hashed
// password when it carries one at all.
func (s *SQLDB) UpdateUser(ctx context.Context, userID int64, in map[string]any) (*User, error) {
	cols, args, err := columnValues(schema.User, in)
	if err != nil {
		return nil, err
	}
	if v, ok := in["selected_vehicle_id"]; ok {
		if err := s.requireVehicle(ctx, userID, v, "selected_vehicle_id"); err != nil {
			return nil, err
		}
	}
	ok, err := s.update(ctx, "users", cols, args, "user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return s.GetUser(ctx, userID)
}

// DeleteUser removes the account together with its vehicles and purchases.
func (s *SQLDB) DeleteUser(ctx context.Context, userID int64) (bool, error) {
	var deleted bool
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM fuel_purchase WHERE user_id = ?`), userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET selected_vehicle_id = NULL WHERE user_id = ?`), userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM vehicle WHERE user_id = ?`), userID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE user_id = ?`), userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	if err != nil {
		return false, fmt.Errorf("deleting user: %w", err)
	}
	return deleted, nil
}

// --- vehicles ---

func (s *SQLDB) ListVehicles(ctx context.Context, userID int64) ([]*Vehicle, error) {
	out := []*Vehicle{}
	q := s.db.Rebind(`SELECT ` + vehicleColumns + ` FROM vehicle WHERE user_id = ? ORDER BY vehicle_id`)
	if err := s.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, fmt.Errorf("selecting vehicles: %w", err)
	}
	return out, nil
}

func (s *SQLDB) GetVehicle(ctx context.Context, userID, vehicleID int64) (*Vehicle, error) {
	v := &Vehicle{}
	found, err := s.get(ctx, s.db, v, `SELECT `+vehicleColumns+` FROM vehicle WHERE vehicle_id = ? AND user_id = ?`, vehicleID, userID)
	if err != nil {
		return nil, fmt.Errorf("selecting vehicle: %w", err)
	}
	if !found {
		return nil, nil
	}
	return v, nil
}

func (s *SQLDB) CreateVehicle(ctx context.Context, userID int64, in map[string]any) (*Vehicle, error) {
	cols, args, err := columnValues(schema.Vehicle, in)
	if err != nil {
		return nil, err
	}
	cols = append(cols, "user_id")
	args = append(args, userID)

	id, err := s.insert(ctx, "vehicle", "vehicle_id", cols, args)
	if err != nil {
		return nil, fmt.Errorf("inserting vehicle: %w", err)
	}
	return s.GetVehicle(ctx, userID, id)
}

func (s *SQLDB) UpdateVehicle(ctx context.Context, userID, vehicleID int64, in map[string]any) (*Vehicle, error) {
	cols, args, err := columnValues(schema.Vehicle, in)
	if err != nil {
		return nil, err
	}
	ok, err := s.update(ctx, "vehicle", cols, args, "vehicle_id = ? AND user_id = ?", vehicleID, userID)
	if err != nil {
		return nil, fmt.Errorf("updating vehicle: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return s.GetVehicle(ctx, userID, vehicleID)
}

// DeleteVehicle removes a vehicle with its fuel purchases and clears it as
// the owner's selected vehicle.
func (s *SQLDB) DeleteVehicle(ctx context.Context, userID, vehicleID int64) (bool, error) {
	var deleted bool
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM fuel_purchase WHERE vehicle_id = ? AND user_id = ?`), vehicleID, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET selected_vehicle_id = NULL WHERE user_id = ? AND selected_vehicle_id = ?`), userID, vehicleID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM vehicle WHERE vehicle_id = ? AND user_id = ?`), vehicleID, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	if err != nil {
		return false, fmt.Errorf("deleting vehicle: %w", err)
	}
	return deleted, nil
}

// requireVehicle checks that v names a vehicle owned by userID.
func (s *SQLDB) requireVehicle(ctx context.Context, userID int64, v any, field string) error {
	id, err := integerArg(field, v)
	if err != nil {
		return err
	}
	veh, err := s.GetVehicle(ctx, userID, id)
	if err != nil {
		return err
	}
	if veh == nil {
		return &valueError{Field: field}
	}
	return nil
}

// --- fuel purchases ---

// ListFuelPurchases returns the user's purchases, newest fill-up first,
// optionally limited to one vehicle.
func (s *SQLDB) ListFuelPurchases(ctx context.Context, userID int64, vehicleID *int64) ([]*FuelPurchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM fuel_purchase WHERE user_id = ?`
	args := []any{userID}
	if vehicleID != nil {
		q += ` AND vehicle_id = ?`
		args = append(args, *vehicleID)
	}
	q += ` ORDER BY date_of_fill_up DESC, fuel_purchase_id DESC`

	out := []*FuelPurchase{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("selecting fuel purchases: %w", err)
	}
	return out, nil
}

func (s *SQLDB) GetFuelPurchase(ctx context.Context, userID, purchaseID int64) (*FuelPurchase, error) {
	p := &FuelPurchase{}
	found, err := s.get(ctx, s.db, p, `SELECT `+purchaseColumns+` FROM fuel_purchase WHERE fuel_purchase_id = ? AND user_id = ?`, purchaseID, userID)
	if err != nil {
		return nil, fmt.Errorf("selecting fuel purchase: %w", err)
	}
	if !found {
		return nil, nil
	}
	return p, nil
}

func (s *SQLDB) CreateFuelPurchase(ctx context.Context, userID int64, in map[string]any) (*FuelPurchase, error) {
	cols, args, err := columnValues(schema.FuelPurchase, in)
	if err != nil {
		return nil, err
	}
	vehicleID, err := integerArg("vehicle_id", in["vehicle_id"])
	if err != nil {
		return nil, err
	}
	if err := s.requireVehicle(ctx, userID, vehicleID, "vehicle_id"); err != nil {
		return nil, err
	}
	cols = append(cols, "user_id", "vehicle_id")
	args = append(args, userID, vehicleID)

	id, err := s.insert(ctx, "fuel_purchase", "fuel_purchase_id", cols, args)
	if err != nil {
		return nil, fmt.Errorf("inserting fuel purchase: %w", err)
	}
	return s.GetFuelPurchase(ctx, userID, id)
}

func (s *SQLDB) UpdateFuelPurchase(ctx context.Context, userID, purchaseID int64, in map[string]any) (*FuelPurchase, error) {
	cols, args, err := columnValues(schema.FuelPurchase, in)
	if err != nil {
		return nil, err
	}
	ok, err := s.update(ctx, "fuel_purchase", cols, args, "fuel_purchase_id = ? AND user_id = ?", purchaseID, userID)
	if err != nil {
		return nil, fmt.Errorf("updating fuel purchase: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return s.GetFuelPurchase(ctx, userID, purchaseID)
}

func (s *SQLDB) DeleteFuelPurchase(ctx context.Context, userID, purchaseID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM fuel_purchase WHERE fuel_purchase_id = ? AND user_id = ?`), purchaseID, userID)
	if err != nil {
		return false, fmt.Errorf("deleting fuel purchase: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting fuel purchase: %w", err)
	}
	return n > 0, nil
}

// --- helpers ---

func (s *SQLDB) insert(ctx context.Context, table, idColumn string, cols []string, args []any) (int64, error) {
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		table, strings.Join(cols, ", "), placeholders(len(cols)), idColumn)
	var id int64
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(q), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// update sets cols on the rows matched by where. With no columns it only
// reports whether a row matches.
func (s *SQLDB) update(ctx context.Context, table string, cols []string, args []any, where string, whereArgs ...any) (bool, error) {
	if len(cols) == 0 {
		var exists bool
		q := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s)`, table, where)
		err := sqlx.GetContext(ctx, s.db, &exists, s.db.Rebind(q), whereArgs...)
		return exists, err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	q := fmt.Sprintf(`UPDATE %s SET %s WHERE %s`, table, strings.Join(sets, ", "), where)
	res, err := s.db.ExecContext(ctx, s.db.Rebind(q), append(args, whereArgs...)...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLDB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// columnValues turns validated input into sorted column names and driver
// arguments. Identity fields are dropped; the caller supplies ownership.
// Only names declared by res are used as column names.
func columnValues(res *schema.Resource, in map[string]any) ([]string, []any, error) {
	names := make([]string, 0, len(in))
	for k := range in {
		if res.Has(k) && !identityColumns[k] {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	args := make([]any, 0, len(names))
	for _, name := range names {
		f, _ := res.Field(name)
		v, err := columnArg(f, in[name])
		if err != nil {
			return nil, nil, err
		}
		args = append(args, v)
	}
	return names, args, nil
}

func columnArg(f schema.FieldSpec, v any) (any, error) {
	switch f.Kind {
	case schema.Number:
		if integerColumns[f.Name] {
			return integerArg(f.Name, v)
		}
		return floatArg(f.Name, v)
	case schema.Datetime:
		s, ok := v.(string)
		if !ok {
			return nil, &valueError{Field: f.Name}
		}
		t, err := parseDatetime(s)
		if err != nil {
			return nil, &valueError{Field: f.Name}
		}
		return t.UTC().Format(time.RFC3339), nil
	}
	return v, nil
}

func integerArg(field string, v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err == nil && f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
			return int64(f), nil
		}
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < math.MaxInt64 {
			return int64(n), nil
		}
	}
	return 0, &valueError{Field: field}
}

func floatArg(field string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, nil
		}
	}
	return 0, &valueError{Field: field}
}

var datetimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func parseDatetime(s string) (time.Time, error) {
	var err error
	for _, layout := range datetimeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

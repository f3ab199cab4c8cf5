package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/auth"
)

var (
	errUsernameTaken = errors.New("username already taken")
)

// valueError reports a value the store cannot persist for a field that the
// validator accepted, such as a fractional year or a vehicle the caller does
// not own.
type valueError struct {
	Field string
}

func (e *valueError) Error() string { return "invalid value: " + e.Field }

// classifySQLite maps the SQLite unique violation on users.username onto
// errUsernameTaken. Other errors are returned unchanged.
func classifySQLite(err error) error {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return err
	}
	if sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE && strings.Contains(sqlErr.Error(), "users.username") {
		return errUsernameTaken
	}
	return err
}

// DB is the persistence boundary for the API. Lookups return nil, nil when
// the row does not exist or is not owned by the given user.
type DB interface {
	auth.CredentialStore

	CreateUser(ctx context.Context, in map[string]any) (*User, error)
	GetUser(ctx context.Context, userID int64) (*User, error)
	UpdateUser(ctx context.Context, userID int64, in map[string]any) (*User, error)
	DeleteUser(ctx context.Context, userID int64) (bool, error)

	ListVehicles(ctx context.Context, userID int64) ([]*Vehicle, error)
	GetVehicle(ctx context.Context, userID, vehicleID int64) (*Vehicle, error)
	CreateVehicle(ctx context.Context, userID int64, in map[string]any) (*Vehicle, error)
	UpdateVehicle(ctx context.Context, userID, vehicleID int64, in map[string]any) (*Vehicle, error)
	DeleteVehicle(ctx context.Context, userID, vehicleID int64) (bool, error)

	ListFuelPurchases(ctx context.Context, userID int64, vehicleID *int64) ([]*FuelPurchase, error)
	GetFuelPurchase(ctx context.Context, userID, purchaseID int64) (*FuelPurchase, error)
	CreateFuelPurchase(ctx context.Context, userID int64, in map[string]any) (*FuelPurchase, error)
	UpdateFuelPurchase(ctx context.Context, userID, purchaseID int64, in map[string]any) (*FuelPurchase, error)
	DeleteFuelPurchase(ctx context.Context, userID, purchaseID int64) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		password TEXT NOT NULL,
		onboarding INTEGER NOT NULL DEFAULT 1,
		selected_vehicle_id INTEGER,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS vehicle (
		vehicle_id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		vehicle_year INTEGER,
		make TEXT,
		model TEXT,
		odometer REAL,
		oil_change_frequency REAL,
		next_oil_change REAL,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS vehicle_user_id_idx ON vehicle(user_id);`,
	`CREATE TABLE IF NOT EXISTS fuel_purchase (
		fuel_purchase_id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		vehicle_id INTEGER NOT NULL,
		date_of_fill_up TEXT NOT NULL,
		odometer REAL NOT NULL,
		gallons REAL NOT NULL,
		price REAL NOT NULL,
		location TEXT,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS fuel_purchase_user_id_idx ON fuel_purchase(user_id);`,
}

// NewSQLiteDB opens (or creates) a SQLite database file and ensures the
// schema exists.
func NewSQLiteDB(path string) (*SQLDB, error) {
	d, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	s := &SQLDB{db: d}
	if err := s.initSQLite(); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

// NewMemoryDB returns a store backed by a private in-memory SQLite database.
// Data is lost when the process exits.
func NewMemoryDB() (*SQLDB, error) {
	d, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// every connection to :memory: is a separate database
	d.SetMaxOpenConns(1)
	s := &SQLDB{db: d}
	if err := s.initSQLite(); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLDB) initSQLite() error {
	for _, q := range sqliteSchema {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("creating sqlite schema: %w", err)
		}
	}
	return nil
}

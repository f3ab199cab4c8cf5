package main

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// NewPostgresDB connects to PostgreSQL. Tables come from the migrations in
// ./migrations, so this only verifies connectivity.
func NewPostgresDB(dsn string) (*SQLDB, error) {
	d, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := d.Ping(); err != nil {
		d.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &SQLDB{db: d}, nil
}

// classifyPQ maps PostgreSQL errors that describe bad client input onto the
// store's own error values. Other errors are returned unchanged.
func classifyPQ(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch {
	case pqErr.Code == "23505" && pqErr.Constraint == "users_username_key":
		return errUsernameTaken
	case pqErr.Code.Class() == "22":
		return &valueError{Field: pqErr.Column}
	}
	return err
}

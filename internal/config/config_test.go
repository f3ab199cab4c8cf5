package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1d", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"3600", time.Hour},
		{"90m", 90 * time.Minute},
		{" 2h ", 2 * time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseExpiry(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "d", "0d", "-1d", "0", "-5", "soon", "-1h"} {
		_, err := ParseExpiry(bad)
		require.Error(t, err, bad)
	}
}

func TestNewDefaults(t *testing.T) {
	t.Setenv("DB_ADAPTER", "memory")
	t.Setenv("PORT", "")
	t.Setenv("JWT_EXPIRY", "")
	t.Setenv("ENV", "")
	t.Setenv("NODE_ENV", "")

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, "8080", c.Port)
	require.Equal(t, 24*time.Hour, c.JwtExpiry)
	require.Equal(t, 10, c.BcryptCost)
	require.Equal(t, "*", c.ClientOrigin)
	require.Equal(t, "./migrations", c.MigrationsDir)
	require.False(t, c.IsProduction())
}

func TestNewRejectsBadValues(t *testing.T) {
	t.Setenv("DB_ADAPTER", "memory")

	t.Run("port", func(t *testing.T) {
		t.Setenv("PORT", "http")
		_, err := New()
		require.Error(t, err)
	})
	t.Run("adapter", func(t *testing.T) {
		t.Setenv("DB_ADAPTER", "mongo")
		_, err := New()
		require.Error(t, err)
	})
	t.Run("expiry", func(t *testing.T) {
		t.Setenv("JWT_EXPIRY", "forever")
		_, err := New()
		require.Error(t, err)
	})
	t.Run("bcrypt cost", func(t *testing.T) {
		t.Setenv("BCRYPT_COST", "64")
		_, err := New()
		require.Error(t, err)
	})
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("DB_ADAPTER", "memory")
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := New()
	require.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	c, err := New()
	require.NoError(t, err)
	require.True(t, c.IsProduction())
}

func TestBuildPostgresDSN(t *testing.T) {
	c := &Config{PostgresHost: "db", PostgresUser: "u", PostgresDB: "d", PostgresPassword: "p"}
	dsn, err := c.BuildPostgresDSN()
	require.NoError(t, err)
	require.Equal(t, "host=db port=5432 user=u dbname=d sslmode=disable password=p", dsn)

	c = &Config{PostgresDSN: "postgres://x"}
	dsn, err = c.BuildPostgresDSN()
	require.NoError(t, err)
	require.Equal(t, "postgres://x", dsn)

	_, err = (&Config{}).BuildPostgresDSN()
	require.Error(t, err)
}

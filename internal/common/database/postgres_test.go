package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresConfig_ConnectionStrings(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: 5433, User: "svc", Password: "secret", DBName: "bookings", SSLMode: "disable",
	}

	assert.Equal(t, "host=db port=5433 user=svc password=secret dbname=bookings sslmode=disable TimeZone=UTC", cfg.DSN())
	assert.Equal(t, "postgres://svc:secret@db:5433/bookings?sslmode=disable", cfg.DatabaseURL())
}

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lexcal-api/pkg/config"
)

func TestPostgresDSNQuotesValues(t *testing.T) {
	dsn := postgresDSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "lexcal",
		Password: `p@ss word's\x`,
		Name:     "lexcal",
	})
	assert.Equal(t, `host=db.internal port=5432 user=lexcal password='p@ss word\'s\\x' dbname=lexcal sslmode=disable application_name=lexcal-api`, dsn)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpenSQLiteMigrates(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM cases"))
	assert.Zero(t, count)
}

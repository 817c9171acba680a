package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, "file:connect-test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exchanges`).Scan(&n))
	assert.Equal(t, 0, n)

	// Opening twice must not fail on existing tables.
	require.NoError(t, ensureSchema(ctx, db, DriverSQLite))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Driver("mysql"), "")
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestSplitSQL(t *testing.T) {
	got := splitSQL("CREATE TABLE a (x INT);\n\n  ;CREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, got)
	assert.Equal(t, "CREATE TABLE a (", firstLine("\n CREATE TABLE a (\n x INT)"))
}

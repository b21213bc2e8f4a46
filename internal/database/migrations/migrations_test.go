package migrations

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"techsymposium/internal/logger"
)

func TestInitializeFailsWithoutMigrationsDir(t *testing.T) {
	sqldb, err := sql.Open("postgres", "postgres://nobody@127.0.0.1:1/none?sslmode=disable")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	r := NewRunner(db, MigrateOptions{MigrationsDir: t.TempDir() + "/missing"}, logger.NewTestLogger(nil))
	err = r.Initialize()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "migrations directory does not exist")
	assert.NoError(t, r.Close())
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, "./migrations", opts.MigrationsDir)
	assert.True(t, opts.AutoMigrate)
}

package seed_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"techsymposium/internal/database"
	"techsymposium/internal/models"
	"techsymposium/internal/seed"
)

func setupTestDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, database.CreateSchema(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadShippedCatalogue(t *testing.T) {
	events, err := seed.LoadFile("../../seed/events.yaml")
	require.NoError(t, err)

	require.Len(t, events, 6)
	assert.Equal(t, "1", events[0].ID)
	assert.Equal(t, "Tech Conference 2025", events[0].Title)
	assert.Equal(t, "August 15-17, 2025", events[0].Date)
	assert.Equal(t, "Food & Drink", events[2].Category)
	assert.Equal(t, "All Day", events[5].Time)
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	doc := `
events:
  - id: "1"
    title: A
  - id: "1"
    title: B
`
	_, err := seed.Load(strings.NewReader(doc))
	assert.ErrorContains(t, err, "duplicate id")
}

func TestLoadRequiresTitle(t *testing.T) {
	_, err := seed.Load(strings.NewReader("events:\n  - id: \"9\"\n"))
	assert.ErrorContains(t, err, "id and title are required")
}

func TestSeedUpserts(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	events := []models.Event{{ID: "1", Title: "Old title"}, {ID: "2", Title: "Art in the Park"}}
	_, err := seed.Seed(ctx, db, events)
	require.NoError(t, err)

	_, err = seed.Seed(ctx, db, []models.Event{{ID: "1", Title: "Tech Conference 2025"}})
	require.NoError(t, err)

	var stored []models.Event
	require.NoError(t, db.NewSelect().Model(&stored).Order("id").Scan(ctx))
	require.Len(t, stored, 2)
	assert.Equal(t, "Tech Conference 2025", stored[0].Title)
}

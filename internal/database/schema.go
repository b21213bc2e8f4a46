package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"techsymposium/internal/models"
)

// CreateSchema builds the tables from the bun models. Postgres deployments
// use the SQL files under migrations/ instead; this serves SQLite and tests.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	tables := []interface{}{
		(*models.Event)(nil),
		(*models.Student)(nil),
		(*models.Registration)(nil),
		(*models.Payment)(nil),
		(*models.TeamMember)(nil),
	}
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		model  interface{}
		name   string
		column string
	}{
		{(*models.Student)(nil), "idx_students_email", "email"},
		{(*models.Registration)(nil), "idx_registrations_student_id", "student_id"},
		{(*models.TeamMember)(nil), "idx_team_members_registration_id", "registration_id"},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.column).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

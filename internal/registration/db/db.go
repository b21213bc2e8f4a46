package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"techsymposium/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type DB struct {
	Bun *bun.DB
}

// Record is every row written for one submission.
type Record struct {
	Student      *models.Student
	Registration *models.Registration
	Payment      *models.Payment
	TeamMembers  []models.TeamMember
}

// ---------------- EVENTS ----------------

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("e.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ---------------- REGISTRATIONS ----------------

// IsRegistered reports whether email already holds a registration for the event.
func (d *DB) IsRegistered(ctx context.Context, email, eventID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Registration)(nil)).
		Join("JOIN students AS s ON s.id = r.student_id").
		Where("r.event_id = ?", eventID).
		Where("lower(s.email) = lower(?)", email).
		Exists(ctx)
}

// CreateRegistration writes the student, registration, payment and team
// members in one transaction. Nothing from the attempt survives a failure.
func (d *DB) CreateRegistration(ctx context.Context, rec *Record) error {
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(rec.Student).Exec(ctx); err != nil {
			return fmt.Errorf("insert student: %w", err)
		}
		if _, err := tx.NewInsert().Model(rec.Registration).Exec(ctx); err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}
		if _, err := tx.NewInsert().Model(rec.Payment).Exec(ctx); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		// Sequential on purpose: one transaction, one connection.
		for i := range rec.TeamMembers {
			member := &rec.TeamMembers[i]
			existing, err := findStudentIDByEmail(ctx, tx, member.Email, rec.Student.ID)
			if err != nil {
				return fmt.Errorf("look up team member %s: %w", member.Email, err)
			}
			member.StudentMemberID = existing
			if _, err := tx.NewInsert().Model(member).Exec(ctx); err != nil {
				return fmt.Errorf("insert team member: %w", err)
			}
		}
		return nil
	})
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// findStudentIDByEmail returns the oldest other student with this email, or "".
func findStudentIDByEmail(ctx context.Context, tx bun.Tx, email, excludeID string) (string, error) {
	var id string
	err := tx.NewSelect().
		Model((*models.Student)(nil)).
		Column("s.id").
		Where("lower(s.email) = lower(?)", email).
		Where("s.id != ?", excludeID).
		OrderExpr("s.created_at ASC").
		Limit(1).
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (d *DB) GetRegistrationByID(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("r.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (d *DB) GetStudentByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	err := d.Bun.NewSelect().
		Model(&student).
		Where("s.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// isUniqueViolation covers postgres (23505) and sqlite constraint errors.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

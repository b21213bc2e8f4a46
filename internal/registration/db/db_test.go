package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"techsymposium/internal/database"
	"techsymposium/internal/models"
	"techsymposium/internal/registration/db"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, database.CreateSchema(context.Background(), bunDB))

	_, err = bunDB.NewInsert().Model(&models.Event{ID: "evt1", Title: "Tech Conference 2025", CreatedAt: time.Now()}).Exec(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB}, bunDB
}

func newRecord(email, eventType string, members ...models.TeamMemberInput) *db.Record {
	now := time.Now().UTC()
	student := &models.Student{
		ID: uuid.NewString(), Name: "Ann", Email: email, PhoneNo: "1234567890",
		CollegeName: "MIT", Year: "1", EventID: "evt1", CreatedAt: now,
	}
	participants := 1
	if eventType == models.RegistrationTypeGroup {
		participants = len(members) + 1
	}
	reg := &models.Registration{
		ID: uuid.NewString(), StudentID: student.ID, EventID: "evt1", StudentEmail: email,
		RegistrationType: eventType, TotalAmount: int64(participants) * 100, ParticipantCount: participants, CreatedAt: now,
	}
	payment := &models.Payment{
		ID: uuid.NewString(), StudentID: student.ID, RegistrationID: reg.ID, Image: "https://img/a.png",
		PaymentMethod: "UPI", PaymentID: "PAY1", PaymentStatus: models.PaymentStatusPaid, Amount: reg.TotalAmount, CreatedAt: now,
	}
	rec := &db.Record{Student: student, Registration: reg, Payment: payment}
	for _, m := range members {
		rec.TeamMembers = append(rec.TeamMembers, models.TeamMember{
			ID: uuid.NewString(), Name: m.Name, Email: m.Email, TeamLeaderID: student.ID, RegistrationID: reg.ID, CreatedAt: now,
		})
	}
	return rec
}

func count(t *testing.T, bunDB *bun.DB, model interface{}) int {
	n, err := bunDB.NewSelect().Model(model).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestGetEventByID(t *testing.T) {
	regDB, _ := setupTestDB(t)

	event, err := regDB.GetEventByID(context.Background(), "evt1")
	require.NoError(t, err)
	assert.Equal(t, "Tech Conference 2025", event.Title)

	event, err = regDB.GetEventByID(context.Background(), "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Nil(t, event)
}

func TestCreateIndividualRegistration(t *testing.T) {
	ctx := context.Background()
	regDB, bunDB := setupTestDB(t)

	rec := newRecord("ann@x.com", models.RegistrationTypeIndividual)
	require.NoError(t, regDB.CreateRegistration(ctx, rec))

	assert.Equal(t, 1, count(t, bunDB, (*models.Student)(nil)))
	assert.Equal(t, 1, count(t, bunDB, (*models.Registration)(nil)))
	assert.Equal(t, 1, count(t, bunDB, (*models.Payment)(nil)))
	assert.Equal(t, 0, count(t, bunDB, (*models.TeamMember)(nil)))

	reg, err := regDB.GetRegistrationByID(ctx, rec.Registration.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), reg.TotalAmount)

	student, err := regDB.GetStudentByID(ctx, rec.Student.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", student.Email)
}

func TestCreateGroupRegistrationLinksExistingStudents(t *testing.T) {
	ctx := context.Background()
	regDB, bunDB := setupTestDB(t)

	_, err := bunDB.NewInsert().Model(&models.Event{ID: "evt2", Title: "Art in the Park", CreatedAt: time.Now()}).Exec(ctx)
	require.NoError(t, err)

	// bob registered earlier for another event
	earlier := newRecord("bob@x.com", models.RegistrationTypeIndividual)
	earlier.Student.EventID = "evt2"
	earlier.Registration.EventID = "evt2"
	require.NoError(t, regDB.CreateRegistration(ctx, earlier))

	rec := newRecord("ann@x.com", models.RegistrationTypeGroup,
		models.TeamMemberInput{Name: "Bob", Email: "bob@x.com"},
		models.TeamMemberInput{Name: "Cid", Email: "cid@x.com"},
	)
	require.NoError(t, regDB.CreateRegistration(ctx, rec))

	var members []models.TeamMember
	require.NoError(t, bunDB.NewSelect().Model(&members).Where("tm.registration_id = ?", rec.Registration.ID).Order("tm.email").Scan(ctx))
	require.Len(t, members, 2)
	assert.Equal(t, earlier.Student.ID, members[0].StudentMemberID)
	assert.Empty(t, members[1].StudentMemberID)
	for _, m := range members {
		assert.Equal(t, rec.Student.ID, m.TeamLeaderID)
	}
}

func TestCreateRegistrationRollsBackWhenPaymentFails(t *testing.T) {
	ctx := context.Background()
	regDB, bunDB := setupTestDB(t)

	// Without the payments table the third insert fails after student and registration.
	_, err := bunDB.NewDropTable().Model((*models.Payment)(nil)).Exec(ctx)
	require.NoError(t, err)

	err = regDB.CreateRegistration(ctx, newRecord("ann@x.com", models.RegistrationTypeIndividual))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert payment")

	assert.Equal(t, 0, count(t, bunDB, (*models.Student)(nil)))
	assert.Equal(t, 0, count(t, bunDB, (*models.Registration)(nil)))
}

func TestCreateRegistrationDuplicateIsRejectedByConstraint(t *testing.T) {
	ctx := context.Background()
	regDB, bunDB := setupTestDB(t)

	require.NoError(t, regDB.CreateRegistration(ctx, newRecord("ann@x.com", models.RegistrationTypeIndividual)))

	err := regDB.CreateRegistration(ctx, newRecord("ann@x.com", models.RegistrationTypeIndividual))
	assert.True(t, errors.Is(err, db.ErrDuplicate), "got %v", err)

	assert.Equal(t, 1, count(t, bunDB, (*models.Student)(nil)))
	assert.Equal(t, 1, count(t, bunDB, (*models.Registration)(nil)))
	assert.Equal(t, 1, count(t, bunDB, (*models.Payment)(nil)))
}

func TestIsRegisteredIgnoresCase(t *testing.T) {
	ctx := context.Background()
	regDB, _ := setupTestDB(t)

	ok, err := regDB.IsRegistered(ctx, "ann@x.com", "evt1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, regDB.CreateRegistration(ctx, newRecord("ann@x.com", models.RegistrationTypeIndividual)))

	ok, err = regDB.IsRegistered(ctx, "ANN@x.com", "evt1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = regDB.IsRegistered(ctx, "ann@x.com", "evt2")
	require.NoError(t, err)
	assert.False(t, ok)
}

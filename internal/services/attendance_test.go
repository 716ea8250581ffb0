package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

func day(yearOffset, dayOffset int) time.Time {
	return time.Date(2025+yearOffset, time.January, 1+dayOffset, 15, 30, 0, 0, time.UTC)
}

func TestRecordDuplicateDayConflicts(t *testing.T) {
	env := newTestEnv(t, "att-dup", 3)
	ctx := superadminCtx()
	env.seedCatalog(t, 2, true)
	person := env.seedPerson(t, "Ana", nil)

	if _, err := env.attendance.Record(ctx, person.ID, day(0, 0)); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	// same calendar day at a different hour is still a duplicate
	dup := time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)
	_, err := env.attendance.Record(ctx, person.ID, dup)
	if apierr.CodeOf(err) != apierr.CodeConflict {
		t.Fatalf("expected conflict for duplicate day, got %v", err)
	}

	n, err := env.attendance.Count(ctx, person.ID)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("duplicate must not change the count, got %d", n)
	}
}

func TestAttendanceDerivesMilestoneAtGoal(t *testing.T) {
	env := newTestEnv(t, "att-goal", 3)
	ctx := superadminCtx()
	env.seedCatalog(t, 2, true) // stage 2 attendance-derived

	person := &types.Person{FirstName: "Ben", LastName: "Doe", Phone: "+15550001111"}
	if err := env.db.Create(person).Error; err != nil {
		t.Fatalf("failed to seed person: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := env.attendance.Record(ctx, person.ID, day(0, i)); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}
	record := mustGetProgress(t, env, person.ID, 2)
	if record.Completed {
		t.Fatal("derived stage should be incomplete below the goal")
	}
	if env.smsCount() != 0 {
		t.Fatalf("no SMS expected below the goal, got %d", env.smsCount())
	}

	// third visit crosses the goal
	if _, err := env.attendance.Record(ctx, person.ID, day(0, 2)); err != nil {
		t.Fatalf("third record failed: %v", err)
	}
	record = mustGetProgress(t, env, person.ID, 2)
	if !record.Completed || record.CompletionDate == nil {
		t.Fatalf("derived stage should be complete at the goal, got %+v", record)
	}
	if env.smsCount() != 1 {
		t.Fatalf("expected exactly one goal SMS, got %d", env.smsCount())
	}

	// a fourth visit stays complete and stays quiet
	if _, err := env.attendance.Record(ctx, person.ID, day(0, 3)); err != nil {
		t.Fatalf("fourth record failed: %v", err)
	}
	if env.smsCount() != 1 {
		t.Fatalf("crossing notifies once, got %d SMS", env.smsCount())
	}
}

// Writers for the same person must serialize on the person row: two records
// straddling the goal boundary may not both count short of it and leave the
// committed count at the goal with the derived stage incomplete.
func TestConcurrentRecordsDeriveAtGoal(t *testing.T) {
	env := newTestEnv(t, "att-race", 4)
	ctx := superadminCtx()
	env.seedCatalog(t, 2, true) // stage 2 attendance-derived

	person := &types.Person{FirstName: "Gail", LastName: "Doe", Phone: "+15550002222"}
	if err := env.db.Create(person).Error; err != nil {
		t.Fatalf("failed to seed person: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			if _, err := env.attendance.Record(ctx, person.ID, day(0, offset)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("record failed: %v", err)
	}

	rec := mustGetProgress(t, env, person.ID, 2)
	if !rec.Completed || rec.CompletionDate == nil {
		t.Fatalf("derived stage must be complete once the goal is reached, got %+v", rec)
	}
	if env.smsCount() != 1 {
		t.Fatalf("expected exactly one goal SMS, got %d", env.smsCount())
	}
}

func TestAttendanceDeleteReDerives(t *testing.T) {
	env := newTestEnv(t, "att-delete", 2)
	ctx := superadminCtx()
	env.seedCatalog(t, 1, true)
	person := env.seedPerson(t, "Cara", nil)

	var last *types.AttendanceRecord
	for i := 0; i < 2; i++ {
		row, err := env.attendance.Record(ctx, person.ID, day(0, i))
		if err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
		last = row
	}
	if rec := mustGetProgress(t, env, person.ID, 1); !rec.Completed {
		t.Fatal("derived stage should be complete at the goal")
	}

	if err := env.attendance.Delete(ctx, last.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	rec := mustGetProgress(t, env, person.ID, 1)
	if rec.Completed || rec.CompletionDate != nil {
		t.Fatalf("derived stage should be incomplete after dropping below the goal, got %+v", rec)
	}
}

func TestRecordWithoutAutoStageStillCounts(t *testing.T) {
	env := newTestEnv(t, "att-noauto", 2)
	ctx := superadminCtx()
	env.seedCatalog(t, 2, false)
	person := env.seedPerson(t, "Dan", nil)

	for i := 0; i < 3; i++ {
		if _, err := env.attendance.Record(ctx, person.ID, day(0, i)); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}
	n, err := env.attendance.Count(ctx, person.ID)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}
}

func TestAttendanceLeaderScope(t *testing.T) {
	env := newTestEnv(t, "att-scope", 2)
	env.seedCatalog(t, 1, true)
	alpha := env.seedGroup(t, "Alpha", 2025)
	beta := env.seedGroup(t, "Beta", 2025)
	inBeta := env.seedPerson(t, "Eve", &beta.ID)
	inAlpha := env.seedPerson(t, "Finn", &alpha.ID)

	ctx := leaderCtx(&alpha.ID)
	if _, err := env.attendance.Record(ctx, inBeta.ID, day(0, 0)); apierr.CodeOf(err) != apierr.CodeForbidden {
		t.Fatalf("leader should not record for a foreign person, got %v", err)
	}
	if _, err := env.attendance.Record(ctx, inAlpha.ID, day(0, 0)); err != nil {
		t.Fatalf("leader should record inside own group: %v", err)
	}

	// record deletion is a bulk-delete capability; leaders are denied even in
	// their own group
	rows, err := env.attendance.List(ctx, inAlpha.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("list failed: %v (%d rows)", err, len(rows))
	}
	if err := env.attendance.Delete(ctx, rows[0].ID); apierr.CodeOf(err) != apierr.CodeForbidden {
		t.Fatalf("leader delete should be forbidden, got %v", err)
	}
}

func mustGetProgress(t *testing.T, env *testEnv, personID uuid.UUID, stage int) *types.ProgressRecord {
	t.Helper()
	var rec types.ProgressRecord
	if err := env.db.Where("person_id = ? AND stage_number = ?", personID, stage).First(&rec).Error; err != nil {
		t.Fatalf("failed to load progress record for stage %d: %v", stage, err)
	}
	return &rec
}

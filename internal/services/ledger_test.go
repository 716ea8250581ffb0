package services

import (
	"testing"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

func TestEnsureCompleteIsIdempotent(t *testing.T) {
	env := newTestEnv(t, "ledger-ensure", 20)
	ctx := superadminCtx()
	env.seedCatalog(t, 4, false)
	person := env.seedPerson(t, "Ana", nil)

	inserted, err := env.ledger.EnsureComplete(ctx, person.ID)
	if err != nil {
		t.Fatalf("first ensure failed: %v", err)
	}
	if inserted != 4 {
		t.Fatalf("expected 4 inserted records, got %d", inserted)
	}

	inserted, err = env.ledger.EnsureComplete(ctx, person.ID)
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("second run should insert nothing, got %d", inserted)
	}

	records, err := env.ledger.Get(ctx, person.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	for _, r := range records {
		if r.Completed {
			t.Fatalf("stage %d should start incomplete", r.StageNumber)
		}
	}
}

func TestEnsureCompleteFillsPartialLedger(t *testing.T) {
	env := newTestEnv(t, "ledger-partial", 20)
	ctx := superadminCtx()
	env.seedCatalog(t, 3, false)
	person := env.seedPerson(t, "Ben", nil)

	// existing completed record for stage 2 must survive repair untouched
	if err := env.db.Create(&types.ProgressRecord{
		PersonID: person.ID, StageNumber: 2, Completed: true,
	}).Error; err != nil {
		t.Fatalf("failed to seed partial record: %v", err)
	}

	inserted, err := env.ledger.EnsureComplete(ctx, person.ID)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 inserted records, got %d", inserted)
	}
	rate, err := env.ledger.CompletionRate(ctx, person.ID)
	if err != nil {
		t.Fatalf("completion rate failed: %v", err)
	}
	if rate.Total != 3 || rate.Completed != 1 {
		t.Fatalf("expected 1/3 complete, got %d/%d", rate.Completed, rate.Total)
	}
}

func TestUpsertStampsAndClearsCompletionDate(t *testing.T) {
	env := newTestEnv(t, "ledger-stamp", 20)
	ctx := superadminCtx()
	env.seedCatalog(t, 2, false)
	person := env.seedPerson(t, "Cara", nil)

	row, err := env.ledger.Upsert(ctx, person.ID, 1, true)
	if err != nil {
		t.Fatalf("upsert true failed: %v", err)
	}
	if !row.Completed || row.CompletionDate == nil {
		t.Fatalf("expected completed with a date, got %+v", row)
	}
	if h, m, sec := row.CompletionDate.Clock(); h != 0 || m != 0 || sec != 0 {
		t.Fatalf("completion date should be a bare date, got %v", row.CompletionDate)
	}

	row, err = env.ledger.Upsert(ctx, person.ID, 1, false)
	if err != nil {
		t.Fatalf("upsert false failed: %v", err)
	}
	if row.Completed || row.CompletionDate != nil {
		t.Fatalf("expected cleared completion, got %+v", row)
	}
}

func TestUpsertRejectsAutoDerivedStage(t *testing.T) {
	env := newTestEnv(t, "ledger-auto", 20)
	ctx := superadminCtx()
	env.seedCatalog(t, 3, true) // stage 3 is attendance-derived
	person := env.seedPerson(t, "Dan", nil)

	_, err := env.ledger.Upsert(ctx, person.ID, 3, true)
	if err == nil {
		t.Fatal("expected rejection of the attendance-derived stage")
	}
	if apierr.CodeOf(err) != apierr.CodeValidation {
		t.Fatalf("expected validation code, got %s", apierr.CodeOf(err))
	}
}

func TestUpsertUnknownStageNotFound(t *testing.T) {
	env := newTestEnv(t, "ledger-unknown", 20)
	ctx := superadminCtx()
	env.seedCatalog(t, 1, false)
	person := env.seedPerson(t, "Eve", nil)

	_, err := env.ledger.Upsert(ctx, person.ID, 9, true)
	if apierr.CodeOf(err) != apierr.CodeNotFound {
		t.Fatalf("expected not_found for unknown stage, got %v", err)
	}
}

func TestUpsertSendsOneMilestoneSMS(t *testing.T) {
	env := newTestEnv(t, "ledger-sms", 20)
	ctx := superadminCtx()
	env.seedCatalog(t, 1, false)

	person := &types.Person{FirstName: "Finn", LastName: "Doe", Phone: "+15551234567"}
	if err := env.db.Create(person).Error; err != nil {
		t.Fatalf("failed to seed person: %v", err)
	}

	if _, err := env.ledger.Upsert(ctx, person.ID, 1, true); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if env.smsCount() != 1 {
		t.Fatalf("expected exactly one SMS, got %d", env.smsCount())
	}

	// re-completing an already complete stage does not notify again
	if _, err := env.ledger.Upsert(ctx, person.ID, 1, true); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if env.smsCount() != 1 {
		t.Fatalf("expected no second SMS, got %d", env.smsCount())
	}
}

func TestLedgerScopeContainment(t *testing.T) {
	env := newTestEnv(t, "ledger-scope", 20)
	env.seedCatalog(t, 2, false)
	alpha := env.seedGroup(t, "Alpha", 2025)
	beta := env.seedGroup(t, "Beta", 2025)
	inBeta := env.seedPerson(t, "Gil", &beta.ID)

	ctx := leaderCtx(&alpha.ID)
	if _, err := env.ledger.Get(ctx, inBeta.ID); apierr.CodeOf(err) != apierr.CodeForbidden {
		t.Fatalf("leader should not read a foreign person's ledger, got %v", err)
	}
	if _, err := env.ledger.Upsert(ctx, inBeta.ID, 1, true); apierr.CodeOf(err) != apierr.CodeForbidden {
		t.Fatalf("leader should not write a foreign person's ledger, got %v", err)
	}
}

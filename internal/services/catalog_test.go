package services

import (
	"testing"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

func TestCatalogCreateDuplicateStageConflicts(t *testing.T) {
	env := newTestEnv(t, "catalog-dup", 20)
	ctx := superadminCtx()

	if err := env.catalog.Create(ctx, &types.MilestoneDefinition{StageNumber: 1, Name: "Discover", Active: true}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	err := env.catalog.Create(ctx, &types.MilestoneDefinition{StageNumber: 1, Name: "Discover Again", Active: true})
	if err == nil {
		t.Fatal("expected conflict on duplicate stage number")
	}
	if apierr.CodeOf(err) != apierr.CodeConflict {
		t.Fatalf("expected conflict code, got %s", apierr.CodeOf(err))
	}
}

func TestCatalogSecondAutoDerivedConflicts(t *testing.T) {
	env := newTestEnv(t, "catalog-auto", 20)
	ctx := superadminCtx()

	if err := env.catalog.Create(ctx, &types.MilestoneDefinition{StageNumber: 1, Name: "Attend", AutoDerived: true, Active: true}); err != nil {
		t.Fatalf("first auto-derived create failed: %v", err)
	}
	err := env.catalog.Create(ctx, &types.MilestoneDefinition{StageNumber: 2, Name: "Attend More", AutoDerived: true, Active: true})
	if err == nil {
		t.Fatal("expected conflict on second auto-derived milestone")
	}
	if apierr.CodeOf(err) != apierr.CodeConflict {
		t.Fatalf("expected conflict code, got %s", apierr.CodeOf(err))
	}

	// flipping the flag on a second definition is blocked the same way
	def := &types.MilestoneDefinition{StageNumber: 3, Name: "Serve", Active: true}
	if err := env.catalog.Create(ctx, def); err != nil {
		t.Fatalf("plain create failed: %v", err)
	}
	auto := true
	if _, err := env.catalog.Update(ctx, def.ID, CatalogPatch{AutoDerived: &auto}); apierr.CodeOf(err) != apierr.CodeConflict {
		t.Fatalf("expected conflict flipping auto_derived, got %v", err)
	}
}

func TestCatalogDeleteInUse(t *testing.T) {
	env := newTestEnv(t, "catalog-inuse", 20)
	ctx := superadminCtx()
	defs := env.seedCatalog(t, 2, false)

	person := env.seedPerson(t, "Ana", nil)
	if _, err := env.ledger.EnsureComplete(ctx, person.ID); err != nil {
		t.Fatalf("ensure complete failed: %v", err)
	}
	if _, err := env.ledger.Upsert(ctx, person.ID, 2, true); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	err := env.catalog.Delete(ctx, defs[1].ID)
	if err == nil {
		t.Fatal("expected in_use error deleting a completed stage")
	}
	if apierr.CodeOf(err) != apierr.CodeInUse {
		t.Fatalf("expected in_use code, got %s", apierr.CodeOf(err))
	}

	// a stage with no completions deletes fine
	if err := env.catalog.Delete(ctx, defs[0].ID); err != nil {
		t.Fatalf("deleting unused stage failed: %v", err)
	}
	active, err := env.catalog.ListActive(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 1 || active[0].StageNumber != 2 {
		t.Fatalf("expected only stage 2 to remain, got %d defs", len(active))
	}
}

// Deletion must free the stage number: a dead definition may not keep
// occupying its slot in the unique index.
func TestCatalogDeleteFreesStageNumber(t *testing.T) {
	env := newTestEnv(t, "catalog-reuse", 20)
	ctx := superadminCtx()
	defs := env.seedCatalog(t, 1, false)

	if err := env.catalog.Delete(ctx, defs[0].ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	replacement := &types.MilestoneDefinition{StageNumber: 1, Name: "Stage 1 again", Active: true}
	if err := env.catalog.Create(ctx, replacement); err != nil {
		t.Fatalf("recreating a deleted stage number failed: %v", err)
	}
}

func TestCatalogLeaderCannotEdit(t *testing.T) {
	env := newTestEnv(t, "catalog-leader", 20)
	group := env.seedGroup(t, "Alpha", 2025)
	ctx := leaderCtx(&group.ID)

	err := env.catalog.Create(ctx, &types.MilestoneDefinition{StageNumber: 1, Name: "Discover", Active: true})
	if apierr.CodeOf(err) != apierr.CodeForbidden {
		t.Fatalf("expected forbidden for leader, got %v", err)
	}
}

func TestCatalogDeactivateBlockedWhenInUse(t *testing.T) {
	env := newTestEnv(t, "catalog-deactivate", 20)
	ctx := superadminCtx()
	defs := env.seedCatalog(t, 1, false)

	person := env.seedPerson(t, "Bo", nil)
	if _, err := env.ledger.Upsert(ctx, person.ID, 1, true); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	inactive := false
	_, err := env.catalog.Update(ctx, defs[0].ID, CatalogPatch{Active: &inactive})
	if apierr.CodeOf(err) != apierr.CodeInUse {
		t.Fatalf("expected in_use deactivating a completed stage, got %v", err)
	}
}

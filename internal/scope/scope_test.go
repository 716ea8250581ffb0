package scope

import (
	"testing"

	"github.com/google/uuid"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/requestdata"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

func principal(role string, groupID *uuid.UUID) *requestdata.Principal {
	return &requestdata.Principal{UserID: uuid.New(), Role: role, GroupID: groupID}
}

func TestResolveReadUnrestrictedPassesThrough(t *testing.T) {
	other := uuid.New()
	requested := Filters{GroupID: &other, Year: 2025, Search: "smith"}

	for _, role := range []string{types.RoleSuperAdmin, types.RoleLeadPastor} {
		got, err := ResolveRead(principal(role, nil), requested)
		if err != nil {
			t.Fatalf("role %s: unexpected error: %v", role, err)
		}
		if got.GroupID == nil || *got.GroupID != other || got.Year != 2025 || got.Search != "smith" {
			t.Fatalf("role %s: filters were altered: %+v", role, got)
		}
	}
}

func TestResolveReadPinsRestrictedToOwnGroup(t *testing.T) {
	own := uuid.New()

	for _, role := range []string{types.RoleAdmin, types.RoleLeader} {
		got, err := ResolveRead(principal(role, &own), Filters{Year: 2025})
		if err != nil {
			t.Fatalf("role %s: unexpected error: %v", role, err)
		}
		if got.GroupID == nil || *got.GroupID != own {
			t.Fatalf("role %s: expected filters pinned to own group, got %+v", role, got)
		}
	}
}

func TestResolveReadForeignGroupIsForbidden(t *testing.T) {
	own := uuid.New()
	foreign := uuid.New()

	_, err := ResolveRead(principal(types.RoleLeader, &own), Filters{GroupID: &foreign})
	if err == nil {
		t.Fatal("expected error for foreign group filter")
	}
	if apierr.CodeOf(err) != apierr.CodeForbidden {
		t.Fatalf("expected forbidden, got %s", apierr.CodeOf(err))
	}
}

func TestResolveReadNoGroupMeansEmpty(t *testing.T) {
	got, err := ResolveRead(principal(types.RoleAdmin, nil), Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Empty {
		t.Fatalf("expected Empty filters for ungrouped admin, got %+v", got)
	}
}

func TestResolveReadNilPrincipal(t *testing.T) {
	if _, err := ResolveRead(nil, Filters{}); apierr.CodeOf(err) != apierr.CodeForbidden {
		t.Fatalf("expected forbidden for nil principal, got %v", err)
	}
}

func TestResolveWrite(t *testing.T) {
	own := uuid.New()
	foreign := uuid.New()

	cases := []struct {
		name    string
		p       *requestdata.Principal
		target  *uuid.UUID
		wantErr bool
	}{
		{"superadmin anywhere", principal(types.RoleSuperAdmin, nil), &foreign, false},
		{"leadpastor anywhere", principal(types.RoleLeadPastor, nil), nil, false},
		{"admin own group", principal(types.RoleAdmin, &own), &own, false},
		{"admin foreign group", principal(types.RoleAdmin, &own), &foreign, true},
		{"admin ungrouped target", principal(types.RoleAdmin, &own), nil, true},
		{"leader without group", principal(types.RoleLeader, nil), &own, true},
		{"unknown role", principal("intern", &own), &own, true},
		{"nil principal", nil, &own, true},
	}
	for _, tc := range cases {
		err := ResolveWrite(tc.p, tc.target)
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if tc.wantErr && apierr.CodeOf(err) != apierr.CodeForbidden {
			t.Fatalf("%s: expected forbidden, got %s", tc.name, apierr.CodeOf(err))
		}
	}
}

func TestResolveRecordRead(t *testing.T) {
	own := uuid.New()
	foreign := uuid.New()

	if err := ResolveRecordRead(principal(types.RoleLeader, &own), &own); err != nil {
		t.Fatalf("own group record should be visible: %v", err)
	}
	if err := ResolveRecordRead(principal(types.RoleLeader, &own), &foreign); err == nil {
		t.Fatal("foreign group record should be invisible")
	}
	if err := ResolveRecordRead(principal(types.RoleLeader, &own), nil); err == nil {
		t.Fatal("ungrouped record should be invisible to a leader")
	}
	if err := ResolveRecordRead(principal(types.RoleSuperAdmin, nil), nil); err != nil {
		t.Fatalf("superadmin sees everything: %v", err)
	}
	// empty read scope reads as absent, matching the Empty filter on lists
	if got := apierr.CodeOf(ResolveRecordRead(principal(types.RoleLeader, nil), &own)); got != apierr.CodeNotFound {
		t.Fatalf("ungrouped leader should see not_found, got %q", got)
	}
}

func TestPredicates(t *testing.T) {
	own := uuid.New()

	if !CanRunJobs(principal(types.RoleSuperAdmin, nil)) {
		t.Fatal("superadmin should run jobs")
	}
	for _, role := range []string{types.RoleLeadPastor, types.RoleAdmin, types.RoleLeader} {
		if CanRunJobs(principal(role, &own)) {
			t.Fatalf("role %s should not run jobs", role)
		}
	}

	if CanEditCatalog(principal(types.RoleLeader, &own)) {
		t.Fatal("leader should not edit the catalog")
	}
	for _, role := range []string{types.RoleSuperAdmin, types.RoleLeadPastor, types.RoleAdmin} {
		if !CanEditCatalog(principal(role, &own)) {
			t.Fatalf("role %s should edit the catalog", role)
		}
	}

	if CanManageGroups(principal(types.RoleAdmin, &own)) {
		t.Fatal("admin should not manage group records")
	}
	if !CanManageGroups(principal(types.RoleLeadPastor, nil)) {
		t.Fatal("leadpastor should manage group records")
	}

	if CanBulkDelete(principal(types.RoleLeader, &own)) {
		t.Fatal("leader should not bulk delete")
	}
	if !CanBulkDelete(principal(types.RoleAdmin, &own)) {
		t.Fatal("admin should bulk delete")
	}

	if CanRunJobs(nil) || CanEditCatalog(nil) || CanManageGroups(nil) || CanBulkDelete(nil) {
		t.Fatal("nil principal should hold no capability")
	}
}

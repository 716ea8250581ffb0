package scope

import (
	"github.com/google/uuid"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/requestdata"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

// Filters is what a caller asked to see, and after ResolveRead, what it is
// allowed to see. Empty marks a restricted principal with no assigned group:
// reads must return an empty result set rather than an error.
type Filters struct {
	GroupID *uuid.UUID
	Year    int
	Search  string
	Empty   bool
}

// ResolveRead narrows requested filters to the principal's visibility.
// Unrestricted roles pass through unchanged. Group-bound roles are pinned to
// their own group; explicitly requesting another group is Forbidden, not
// silently ignored, so a caller cannot enumerate foreign groups by filter.
func ResolveRead(p *requestdata.Principal, requested Filters) (Filters, error) {
	if p == nil {
		return Filters{}, apierr.Forbidden("no authenticated principal")
	}
	switch p.Role {
	case types.RoleSuperAdmin, types.RoleLeadPastor:
		return requested, nil
	case types.RoleAdmin, types.RoleLeader:
		if p.GroupID == nil {
			return Filters{Empty: true}, nil
		}
		if requested.GroupID != nil && *requested.GroupID != *p.GroupID {
			return Filters{}, apierr.Forbidden("role %q may not read outside its own group", p.Role)
		}
		requested.GroupID = p.GroupID
		return requested, nil
	default:
		return Filters{}, apierr.Forbidden("unknown role %q", p.Role)
	}
}

// ResolveWrite decides whether the principal may mutate data belonging to
// targetGroupID. A restricted principal with no group has no write scope at
// all, and a target outside its group (including ungrouped targets) is
// Forbidden.
func ResolveWrite(p *requestdata.Principal, targetGroupID *uuid.UUID) error {
	if p == nil {
		return apierr.Forbidden("no authenticated principal")
	}
	switch p.Role {
	case types.RoleSuperAdmin, types.RoleLeadPastor:
		return nil
	case types.RoleAdmin, types.RoleLeader:
		if p.GroupID == nil {
			return apierr.Forbidden("role %q has no group assigned", p.Role)
		}
		if targetGroupID == nil || *targetGroupID != *p.GroupID {
			return apierr.Forbidden("role %q may not write outside its own group", p.Role)
		}
		return nil
	default:
		return apierr.Forbidden("unknown role %q", p.Role)
	}
}

// ResolveRecordRead decides whether the principal may see one specific record
// belonging to recordGroupID. Restricted principals see only their own group;
// ungrouped records are invisible to them. A restricted principal with no
// group has an empty read scope, so the record reads as absent rather than
// forbidden, mirroring the Empty filter on list paths.
func ResolveRecordRead(p *requestdata.Principal, recordGroupID *uuid.UUID) error {
	if p == nil {
		return apierr.Forbidden("no authenticated principal")
	}
	switch p.Role {
	case types.RoleSuperAdmin, types.RoleLeadPastor:
		return nil
	case types.RoleAdmin, types.RoleLeader:
		if p.GroupID == nil {
			return apierr.NotFound("record not found")
		}
		if recordGroupID == nil || *recordGroupID != *p.GroupID {
			return apierr.Forbidden("role %q may not read outside its own group", p.Role)
		}
		return nil
	default:
		return apierr.Forbidden("unknown role %q", p.Role)
	}
}

// CanRunJobs gates the reconciliation surface: backfill, attendance sync,
// rollover, orphan repair.
func CanRunJobs(p *requestdata.Principal) bool {
	return p != nil && p.Role == types.RoleSuperAdmin
}

// CanEditCatalog gates milestone-definition mutations. Leaders are denied;
// they hold the narrowest role and definitions are global records.
func CanEditCatalog(p *requestdata.Principal) bool {
	if p == nil {
		return false
	}
	switch p.Role {
	case types.RoleSuperAdmin, types.RoleLeadPastor, types.RoleAdmin:
		return true
	}
	return false
}

// CanManageGroups gates group lifecycle operations (create, rename, archive,
// delete, rollover targets). Group-bound roles administer people within their
// group, never the group records themselves.
func CanManageGroups(p *requestdata.Principal) bool {
	if p == nil {
		return false
	}
	switch p.Role {
	case types.RoleSuperAdmin, types.RoleLeadPastor:
		return true
	}
	return false
}

// CanBulkDelete gates cross-person destructive operations.
func CanBulkDelete(p *requestdata.Principal) bool {
	if p == nil {
		return false
	}
	return p.Role != types.RoleLeader && p.Role != ""
}

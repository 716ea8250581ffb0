package services

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

func (env *testEnv) seedUser(t *testing.T, email, password, role string, group *types.Group) *types.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &types.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	}
	if group != nil {
		user.GroupID = &group.ID
		user.GroupName = group.Name
	}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func TestLoginAndTokenRoundtrip(t *testing.T) {
	env := newTestEnv(t, "auth-roundtrip", 20)
	alpha := env.seedGroup(t, "Alpha", 2025)
	user := env.seedUser(t, "leader@example.com", "hunter2secret", types.RoleLeader, alpha)

	result, err := env.auth.Login(superadminCtx(), "Leader@Example.com ", "hunter2secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.UserID != user.ID || result.Role != types.RoleLeader {
		t.Fatalf("unexpected login result: %+v", result)
	}

	principal, err := env.auth.PrincipalFromToken(result.AccessToken)
	if err != nil {
		t.Fatalf("token parse failed: %v", err)
	}
	if principal.UserID != user.ID || principal.Role != types.RoleLeader {
		t.Fatalf("principal does not match user: %+v", principal)
	}
	if principal.GroupID == nil || *principal.GroupID != alpha.ID {
		t.Fatalf("principal should carry the group claim: %+v", principal)
	}
	if principal.GroupName != "Alpha" {
		t.Fatalf("principal should carry the group name, got %q", principal.GroupName)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t, "auth-reject", 20)
	env.seedUser(t, "admin@example.com", "rightpassword", types.RoleAdmin, nil)

	if _, err := env.auth.Login(superadminCtx(), "admin@example.com", "wrongpassword"); apierr.StatusOf(err) != 401 {
		t.Fatalf("expected 401 for bad password, got %v", err)
	}
	if _, err := env.auth.Login(superadminCtx(), "nobody@example.com", "whatever"); apierr.StatusOf(err) != 401 {
		t.Fatalf("expected 401 for unknown email, got %v", err)
	}
}

func TestPrincipalFromGarbageToken(t *testing.T) {
	env := newTestEnv(t, "auth-garbage", 20)

	if _, err := env.auth.PrincipalFromToken("not-a-jwt"); apierr.StatusOf(err) != 401 {
		t.Fatalf("expected 401 for garbage token, got %v", err)
	}
}

func TestCreateOperatorGatedToSuperadmin(t *testing.T) {
	env := newTestEnv(t, "auth-create", 20)
	alpha := env.seedGroup(t, "Alpha", 2025)

	in := CreateOperatorInput{
		Email:     "new@example.com",
		Password:  "longenough",
		FirstName: "New",
		LastName:  "Operator",
		Role:      types.RoleLeader,
		GroupID:   &alpha.ID,
	}
	if _, err := env.auth.CreateOperator(leadPastorCtx(), in); apierr.CodeOf(err) != apierr.CodeForbidden {
		t.Fatalf("leadpastor should not create operators, got %v", err)
	}

	user, err := env.auth.CreateOperator(superadminCtx(), in)
	if err != nil {
		t.Fatalf("create operator failed: %v", err)
	}
	if user.Role != types.RoleLeader || user.GroupID == nil {
		t.Fatalf("unexpected operator: %+v", user)
	}

	// second create with the same email conflicts
	if _, err := env.auth.CreateOperator(superadminCtx(), in); apierr.CodeOf(err) != apierr.CodeConflict {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
}

func TestCreateOperatorValidation(t *testing.T) {
	env := newTestEnv(t, "auth-validate", 20)
	ctx := superadminCtx()

	cases := []struct {
		name string
		in   CreateOperatorInput
	}{
		{"bad email", CreateOperatorInput{Email: "nope", Password: "longenough", Role: types.RoleSuperAdmin}},
		{"short password", CreateOperatorInput{Email: "a@b.com", Password: "short", Role: types.RoleSuperAdmin}},
		{"unknown role", CreateOperatorInput{Email: "a@b.com", Password: "longenough", Role: "wizard"}},
		{"group role without group", CreateOperatorInput{Email: "a@b.com", Password: "longenough", Role: types.RoleLeader}},
	}
	for _, tc := range cases {
		if _, err := env.auth.CreateOperator(ctx, tc.in); apierr.CodeOf(err) != apierr.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

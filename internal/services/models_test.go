package services

import (
	"testing"

	"github.com/gracepointe/growthtrack-backend/internal/types"
)

// All models must migrate on sqlite as well as Postgres; dialect-specific
// column defaults in the gorm tags break the test databases.
func TestModelsMigrateOnSqlite(t *testing.T) {
	gdb := newTestDB(t, "models-migrate")

	row := &types.AuditLog{Action: "boot"}
	if err := gdb.Create(row).Error; err != nil {
		t.Fatalf("insert after migration failed: %v", err)
	}
	if row.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be stamped without a column default")
	}

	person := &types.Person{FirstName: "Mig", LastName: "Doe"}
	if err := gdb.Create(person).Error; err != nil {
		t.Fatalf("person insert failed: %v", err)
	}
	if person.CreatedAt.IsZero() || person.UpdatedAt.IsZero() {
		t.Fatal("person timestamps should be stamped without a column default")
	}
}

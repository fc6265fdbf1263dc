package userstore

import (
	"errors"
	"testing"

	"github.com/alquimista/website/internal/app/system/status"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/alquimista/website/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func newTestUser(loginID string) models.User {
	return models.User{
		LoginID: loginID,
		Email:   loginID,
		Profile: models.Profile{
			Role:        models.RoleVisitor,
			DisplayName: "Test User",
		},
	}
}

func TestStore_Create_NormalizesLoginID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newTestUser("  Maria@Example.COM "))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created.LoginID != "maria@example.com" {
		t.Errorf("Create() LoginID = %q, want lowercased and trimmed", created.LoginID)
	}
	if created.Status != status.Active {
		t.Errorf("Create() Status = %q, want %q", created.Status, status.Active)
	}
}

func TestStore_Create_DuplicateLoginID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, newTestUser("dup@example.com")); err != nil {
		t.Fatalf("Create() first error = %v", err)
	}

	_, err := store.Create(ctx, newTestUser("DUP@example.com"))
	if !errors.Is(err, ErrDuplicateLoginID) {
		t.Errorf("Create() duplicate error = %v, want ErrDuplicateLoginID", err)
	}
}

func TestStore_GetByLoginID_IsCaseInsensitive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newTestUser("josé@example.com"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.GetByLoginID(ctx, "JOSE@example.com")
	if err != nil {
		t.Fatalf("GetByLoginID() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByLoginID() ID = %s, want %s", got.ID.Hex(), created.ID.Hex())
	}

	if _, err := store.GetByLoginID(ctx, "nobody@example.com"); err != mongo.ErrNoDocuments {
		t.Errorf("GetByLoginID() unknown error = %v, want mongo.ErrNoDocuments", err)
	}
}

func TestStore_UpdateFromInput_OnlyTouchesProvidedFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newTestUser("edit@example.com"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	name := "Renamed"
	staff := true
	if err := store.UpdateFromInput(ctx, created.ID, UpdateInput{
		DisplayName: &name,
		Staff:       &staff,
	}); err != nil {
		t.Fatalf("UpdateFromInput() error = %v", err)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Profile.DisplayName != "Renamed" || !got.Staff {
		t.Errorf("UpdateFromInput() stored {DisplayName:%q Staff:%v}, want {Renamed true}",
			got.Profile.DisplayName, got.Staff)
	}
	if got.LoginID != "edit@example.com" {
		t.Errorf("UpdateFromInput() changed LoginID to %q", got.LoginID)
	}
}

func TestStore_UpdateFromInput_RejectsBadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newTestUser("role@example.com"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	bad := "overlord"
	if err := store.UpdateFromInput(ctx, created.ID, UpdateInput{Role: &bad}); err == nil {
		t.Error("UpdateFromInput() accepted an invalid role")
	}
}

func TestStore_UpdatePassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newTestUser("pw@example.com"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.UpdatePassword(ctx, created.ID, "new-hash"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.PasswordHash != "new-hash" {
		t.Errorf("UpdatePassword() PasswordHash = %q, want %q", got.PasswordHash, "new-hash")
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newTestUser("gone@example.com"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	n, err := store.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Delete() deleted %d users, want 1", n)
	}

	if _, err := store.GetByID(ctx, created.ID); err != mongo.ErrNoDocuments {
		t.Errorf("GetByID() after Delete() error = %v, want mongo.ErrNoDocuments", err)
	}
}

func TestStore_CountActiveStaff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	staff := newTestUser("staff@example.com")
	staff.Staff = true
	if _, err := store.Create(ctx, staff); err != nil {
		t.Fatalf("Create() staff error = %v", err)
	}

	disabled := newTestUser("disabled@example.com")
	disabled.Staff = true
	disabled.Status = status.Disabled
	if _, err := store.Create(ctx, disabled); err != nil {
		t.Fatalf("Create() disabled error = %v", err)
	}

	if _, err := store.Create(ctx, newTestUser("plain@example.com")); err != nil {
		t.Fatalf("Create() visitor error = %v", err)
	}

	n, err := store.CountActiveStaff(ctx)
	if err != nil {
		t.Fatalf("CountActiveStaff() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountActiveStaff() = %d, want 1", n)
	}
}

func TestStore_ListAll_SortsByLoginID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, loginID := range []string{"carla@example.com", "ana@example.com", "bruno@example.com"} {
		if _, err := store.Create(ctx, newTestUser(loginID)); err != nil {
			t.Fatalf("Create(%q) error = %v", loginID, err)
		}
	}

	users, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("ListAll() returned %d users, want 3", len(users))
	}
	if users[0].LoginID != "ana@example.com" || users[2].LoginID != "carla@example.com" {
		t.Errorf("ListAll() not sorted by login_id: [%s %s %s]",
			users[0].LoginID, users[1].LoginID, users[2].LoginID)
	}
}

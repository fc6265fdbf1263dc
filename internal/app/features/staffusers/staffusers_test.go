package staffusers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	preferencestore "github.com/alquimista/website/internal/app/store/preferences"
	userstore "github.com/alquimista/website/internal/app/store/users"
	"github.com/alquimista/website/internal/app/system/status"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/alquimista/website/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, db *mongo.Database) chi.Router {
	t.Helper()
	h := NewHandler(db, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func postForm(target string, form url.Values, user testutil.TestUser) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return testutil.WithUser(req, user)
}

func newUserForm() url.Values {
	form := url.Values{}
	form.Set("login_id", "created@example.com")
	form.Set("email", "created@example.com")
	form.Set("password", "a-decent-passphrase")
	form.Set("role", models.RoleVisitor)
	form.Set("display_name", "Created User")
	return form
}

func TestStaffUsers_Create(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postForm("/new", newUserForm(), testutil.StaffUser()))
	rec.AssertRedirect(t, "/staff/users?success=created")

	user, err := userstore.New(db).GetByLoginID(ctx, "created@example.com")
	if err != nil {
		t.Fatalf("GetByLoginID() error = %v", err)
	}
	if user.Staff || user.Superuser {
		t.Error("create without flags should leave staff and superuser false")
	}
}

func TestStaffUsers_Create_NonSuperuserCannotGrantSuperuser(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	form := newUserForm()
	form.Set("staff", "on")
	form.Set("superuser", "on")

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postForm("/new", form, testutil.StaffUser()))
	rec.AssertRedirect(t, "/staff/users?success=created")

	user, err := userstore.New(db).GetByLoginID(ctx, "created@example.com")
	if err != nil {
		t.Fatalf("GetByLoginID() error = %v", err)
	}
	if !user.Staff {
		t.Error("staff flag from the form should be applied")
	}
	if user.Superuser {
		t.Error("a non-superuser must not be able to grant the superuser flag")
	}
}

func TestStaffUsers_Create_SuperuserCanGrantSuperuser(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	form := newUserForm()
	form.Set("staff", "on")
	form.Set("superuser", "on")

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postForm("/new", form, testutil.SuperUser()))
	rec.AssertRedirect(t, "/staff/users?success=created")

	user, err := userstore.New(db).GetByLoginID(ctx, "created@example.com")
	if err != nil {
		t.Fatalf("GetByLoginID() error = %v", err)
	}
	if !user.Superuser {
		t.Error("a superuser should be able to grant the superuser flag")
	}
}

func TestStaffUsers_Update_NonSuperuserCannotChangeSuperuser(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := userstore.New(db)
	target, err := store.Create(ctx, models.User{
		LoginID:   "target@example.com",
		Email:     "target@example.com",
		Superuser: true,
		Staff:     true,
		Profile:   models.Profile{Role: models.RoleVisitor},
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	form := url.Values{}
	form.Set("login_id", "target@example.com")
	form.Set("email", "target@example.com")
	form.Set("role", models.RoleVisitor)
	form.Set("staff", "on")
	// superuser checkbox left unchecked by a plain staff editor

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postForm("/"+target.ID.Hex(), form, testutil.StaffUser()))
	rec.AssertRedirect(t, "/staff/users?success=updated")

	got, err := store.GetByID(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.Superuser {
		t.Error("a non-superuser edit must leave the superuser flag untouched")
	}
}

func TestStaffUsers_Update_DisableAccount(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := userstore.New(db)
	target, err := store.Create(ctx, models.User{
		LoginID: "member@example.com",
		Email:   "member@example.com",
		Profile: models.Profile{Role: models.RoleStudent},
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	form := url.Values{}
	form.Set("login_id", "member@example.com")
	form.Set("email", "member@example.com")
	form.Set("role", models.RoleStudent)
	form.Set("disabled", "on")

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postForm("/"+target.ID.Hex(), form, testutil.StaffUser()))
	rec.AssertRedirect(t, "/staff/users?success=updated")

	got, err := store.GetByID(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != status.Disabled {
		t.Errorf("Status = %q, want %q", got.Status, status.Disabled)
	}
}

func TestStaffUsers_Delete_RemovesUserAndPreferences(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := userstore.New(db)
	target, err := store.Create(ctx, models.User{
		LoginID: "gone@example.com",
		Email:   "gone@example.com",
		Profile: models.Profile{Role: models.RoleVisitor},
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	prefs := preferencestore.New(db)
	if err := prefs.CreateMany(ctx, target.ID, []preferencestore.Entry{
		{FacetID: target.ID, Priority: 1},
	}); err != nil {
		t.Fatalf("seed preferences: %v", err)
	}

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postForm("/"+target.ID.Hex()+"/delete", url.Values{}, testutil.StaffUser()))
	rec.AssertRedirect(t, "/staff/users?success=deleted")

	if _, err := store.GetByID(ctx, target.ID); err != mongo.ErrNoDocuments {
		t.Errorf("GetByID() after delete error = %v, want mongo.ErrNoDocuments", err)
	}
	remaining, err := prefs.ListByUser(ctx, target.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("delete left %d preferences behind", len(remaining))
	}
}

func TestStaffUsers_Delete_BlocksSelfDelete(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := userstore.New(db)
	self, err := store.Create(ctx, models.User{
		LoginID: "self@example.com",
		Email:   "self@example.com",
		Staff:   true,
		Profile: models.Profile{Role: models.RoleVisitor},
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	actor := testutil.StaffUser()
	actor.ID = self.ID.Hex()

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postForm("/"+self.ID.Hex()+"/delete", url.Values{}, actor))
	rec.AssertRedirect(t, "/staff/users?error=self_delete")

	if _, err := store.GetByID(ctx, self.ID); err != nil {
		t.Errorf("self delete should leave the account in place: %v", err)
	}
}

package staffsettings

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	settingsstore "github.com/alquimista/website/internal/app/store/settings"
	"github.com/alquimista/website/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, db *mongo.Database) chi.Router {
	t.Helper()
	h := NewHandler(db, nil, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

// postMultipart builds a multipart POST with only text fields, the way the
// settings form submits when no files are chosen.
func postMultipart(t *testing.T, target string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("WriteField(%q): %v", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testutil.WithUser(req, testutil.StaffUser())
}

func TestStaffSettings_Show_RendersDefaults(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.StaffUser()))

	rec.AssertStatus(t, http.StatusOK)
}

func TestStaffSettings_Update_SavesSingleton(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postMultipart(t, "/", map[string]string{
		"site_name":     "Studio Lume",
		"hero_title":    "A Life in Many Crafts",
		"contact_email": "hello@studiolume.example",
		"instagram_url": "https://instagram.com/studiolume",
	}))
	rec.AssertRedirect(t, "/staff/settings?success=1")

	settings, err := settingsstore.New(db).Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if settings.SiteName != "Studio Lume" {
		t.Errorf("SiteName = %q, want %q", settings.SiteName, "Studio Lume")
	}
	if settings.HeroTitle != "A Life in Many Crafts" {
		t.Errorf("HeroTitle = %q", settings.HeroTitle)
	}
	if settings.ContactEmail != "hello@studiolume.example" {
		t.Errorf("ContactEmail = %q", settings.ContactEmail)
	}
	if settings.UpdatedByName == "" {
		t.Error("saving should stamp the editor's name")
	}
}

func TestStaffSettings_Update_RequiresSiteName(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postMultipart(t, "/", map[string]string{
		"site_name": "   ",
	}))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Site name is required")

	exists, err := settingsstore.New(db).Exists(ctx)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("a rejected form must not create the settings document")
	}
}

func TestStaffSettings_Update_SanitizesDescription(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postMultipart(t, "/", map[string]string{
		"site_name":   "Studio Lume",
		"description": `<p>Welcome</p><script>alert("x")</script>`,
	}))
	rec.AssertRedirect(t, "/staff/settings?success=1")

	settings, err := settingsstore.New(db).Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if strings.Contains(settings.Description, "<script>") {
		t.Errorf("Description = %q, script tags should be stripped", settings.Description)
	}
	if !strings.Contains(settings.Description, "<p>Welcome</p>") {
		t.Errorf("Description = %q, safe markup should survive", settings.Description)
	}
}

func TestStaffSettings_Update_RejectsOverlongDescription(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postMultipart(t, "/", map[string]string{
		"site_name":   "Studio Lume",
		"description": strings.Repeat("a", MaxDescriptionLength+1),
	}))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Description is too long")
}

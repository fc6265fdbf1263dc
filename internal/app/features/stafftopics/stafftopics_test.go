package stafftopics

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	topicstore "github.com/alquimista/website/internal/app/store/topics"
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

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return testutil.WithUser(req, testutil.StaffUser())
}

func TestStaffTopics_List(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := topicstore.New(db).Create(ctx, topicstore.CreateInput{Title: "Orchestration", Active: true}); err != nil {
		t.Fatalf("topic Create() error = %v", err)
	}

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.StaffUser()))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Orchestration")
}

func TestStaffTopics_Create(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	form := url.Values{}
	form.Set("title", "Ear Training")
	form.Set("description", "Interval drills")
	form.Set("order", "3")
	form.Set("active", "on")

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postForm("/new", form))
	rec.AssertRedirect(t, "/staff/topics?success=created")

	topics, err := topicstore.New(db).List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(topics) != 1 {
		t.Fatalf("create stored %d topics, want 1", len(topics))
	}
	if topics[0].Title != "Ear Training" || topics[0].Order != 3 || !topics[0].Active {
		t.Errorf("stored topic = {Title:%q Order:%d Active:%v}, want the submitted values",
			topics[0].Title, topics[0].Order, topics[0].Active)
	}
}

func TestStaffTopics_Create_RequiresTitle(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)

	form := url.Values{}
	form.Set("description", "no title")

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postForm("/new", form))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Title is required")
}

func TestStaffTopics_Update(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := topicstore.New(db)
	topic, err := store.Create(ctx, topicstore.CreateInput{Title: "Old", Active: true})
	if err != nil {
		t.Fatalf("topic Create() error = %v", err)
	}

	form := url.Values{}
	form.Set("title", "Renamed")
	form.Set("order", "7")

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postForm("/"+topic.ID.Hex(), form))
	rec.AssertRedirect(t, "/staff/topics?success=updated")

	got, err := store.GetByID(ctx, topic.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Renamed" || got.Order != 7 || got.Active {
		t.Errorf("updated topic = {Title:%q Order:%d Active:%v}, want {Renamed 7 false}",
			got.Title, got.Order, got.Active)
	}
}

func TestStaffTopics_Toggle(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := topicstore.New(db)
	topic, err := store.Create(ctx, topicstore.CreateInput{Title: "Flip", Active: true})
	if err != nil {
		t.Fatalf("topic Create() error = %v", err)
	}

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postForm("/"+topic.ID.Hex()+"/toggle", url.Values{}))
	rec.AssertRedirect(t, "/staff/topics?success=toggled")

	got, err := store.GetByID(ctx, topic.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Active {
		t.Error("toggle should deactivate an active topic")
	}
}

func TestStaffTopics_Delete(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := topicstore.New(db)
	topic, err := store.Create(ctx, topicstore.CreateInput{Title: "Doomed", Active: true})
	if err != nil {
		t.Fatalf("topic Create() error = %v", err)
	}

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, postForm("/"+topic.ID.Hex()+"/delete", url.Values{}))
	rec.AssertRedirect(t, "/staff/topics?success=deleted")

	if _, err := store.GetByID(ctx, topic.ID); err == nil {
		t.Error("GetByID() after delete should fail")
	}
}

func TestStaffTopics_UnknownID(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/000000000000000000000000/edit", testutil.StaffUser()))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/not-a-hex-id/edit", testutil.StaffUser()))
	rec.AssertStatus(t, http.StatusNotFound)
}

package home

import (
	"net/http"
	"strings"
	"testing"

	facetstore "github.com/alquimista/website/internal/app/store/facets"
	preferencestore "github.com/alquimista/website/internal/app/store/preferences"
	settingsstore "github.com/alquimista/website/internal/app/store/settings"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/alquimista/website/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestHome_Index_AnonymousSeesAllActiveFacets(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	facets := facetstore.New(db)
	if _, err := facets.Create(ctx, facetstore.CreateInput{Title: "Woodworking", Order: 1, Active: true}); err != nil {
		t.Fatalf("facet Create() error = %v", err)
	}
	if _, err := facets.Create(ctx, facetstore.CreateInput{Title: "Ceramics", Order: 2, Active: true}); err != nil {
		t.Fatalf("facet Create() error = %v", err)
	}
	if _, err := facets.Create(ctx, facetstore.CreateInput{Title: "Retired Craft", Active: false}); err != nil {
		t.Fatalf("facet Create() error = %v", err)
	}

	rec := testutil.NewRecorder()
	h.Index(rec, testutil.NewRequest(http.MethodGet, "/"))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Woodworking")
	rec.AssertContains(t, "Ceramics")
	if strings.Contains(rec.Body.String(), "Retired Craft") {
		t.Error("index should not show inactive facets")
	}
}

func TestHome_Index_SignedInSeesOnlyChosenFacets(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	facets := facetstore.New(db)
	chosen, err := facets.Create(ctx, facetstore.CreateInput{Title: "Woodworking", Order: 1, Active: true})
	if err != nil {
		t.Fatalf("facet Create() error = %v", err)
	}
	if _, err := facets.Create(ctx, facetstore.CreateInput{Title: "Ceramics", Order: 2, Active: true}); err != nil {
		t.Fatalf("facet Create() error = %v", err)
	}

	user := testutil.VisitorUser()
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		t.Fatalf("ObjectIDFromHex() error = %v", err)
	}
	if err := preferencestore.New(db).CreateMany(ctx, userID, []preferencestore.Entry{
		{FacetID: chosen.ID, Priority: 1},
	}); err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}

	rec := testutil.NewRecorder()
	h.Index(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/", user))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Woodworking")
	if strings.Contains(rec.Body.String(), "Ceramics") {
		t.Error("index should hide facets the user did not pick")
	}
}

func TestHome_Index_OrdersFacetsByPreferencePriority(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	facets := facetstore.New(db)
	wood, err := facets.Create(ctx, facetstore.CreateInput{Title: "Woodworking", Order: 1, Active: true})
	if err != nil {
		t.Fatalf("facet Create() error = %v", err)
	}
	ceramics, err := facets.Create(ctx, facetstore.CreateInput{Title: "Ceramics", Order: 2, Active: true})
	if err != nil {
		t.Fatalf("facet Create() error = %v", err)
	}

	user := testutil.VisitorUser()
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		t.Fatalf("ObjectIDFromHex() error = %v", err)
	}
	// Priorities invert the facets' own display order
	if err := preferencestore.New(db).CreateMany(ctx, userID, []preferencestore.Entry{
		{FacetID: wood.ID, Priority: 2},
		{FacetID: ceramics.ID, Priority: 1},
	}); err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}

	rec := testutil.NewRecorder()
	h.Index(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/", user))

	rec.AssertStatus(t, http.StatusOK)
	body := rec.Body.String()
	if strings.Index(body, "Ceramics") > strings.Index(body, "Woodworking") {
		t.Error("the priority-1 facet should render before the priority-2 facet")
	}
}

func TestHome_Index_PriorityTiesFallBackToFacetOrder(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// The later-ordered facet is inserted first so insertion order and
	// display order disagree
	facets := facetstore.New(db)
	ceramics, err := facets.Create(ctx, facetstore.CreateInput{Title: "Ceramics", Order: 2, Active: true})
	if err != nil {
		t.Fatalf("facet Create() error = %v", err)
	}
	wood, err := facets.Create(ctx, facetstore.CreateInput{Title: "Woodworking", Order: 1, Active: true})
	if err != nil {
		t.Fatalf("facet Create() error = %v", err)
	}

	user := testutil.VisitorUser()
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		t.Fatalf("ObjectIDFromHex() error = %v", err)
	}
	if err := preferencestore.New(db).CreateMany(ctx, userID, []preferencestore.Entry{
		{FacetID: ceramics.ID, Priority: 1},
		{FacetID: wood.ID, Priority: 1},
	}); err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}

	rec := testutil.NewRecorder()
	h.Index(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/", user))

	rec.AssertStatus(t, http.StatusOK)
	body := rec.Body.String()
	if strings.Index(body, "Woodworking") > strings.Index(body, "Ceramics") {
		t.Error("facets sharing a priority should keep their own display order")
	}
}

func TestHome_Index_SignedInWithNoPicksSeesNoFacets(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := facetstore.New(db).Create(ctx, facetstore.CreateInput{Title: "Woodworking", Active: true}); err != nil {
		t.Fatalf("facet Create() error = %v", err)
	}

	rec := testutil.NewRecorder()
	h.Index(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.VisitorUser()))

	rec.AssertStatus(t, http.StatusOK)
	if strings.Contains(rec.Body.String(), "Woodworking") {
		t.Error("a signed-in user with no picks should see no facet sections")
	}
}

func TestHome_Index_UsesHeroSettings(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	settings := settingsstore.New(db)
	input := settings.Defaults()
	input.HeroTitle = "A Life in Many Crafts"
	if err := settings.Upsert(ctx, input); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	rec := testutil.NewRecorder()
	h.Index(rec, testutil.NewRequest(http.MethodGet, "/"))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "A Life in Many Crafts")
}

func TestHome_Index_DefaultHeroWhenUnset(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, zap.NewNop())

	rec := testutil.NewRecorder()
	h.Index(rec, testutil.NewRequest(http.MethodGet, "/"))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, models.DefaultHeroTitle)
}

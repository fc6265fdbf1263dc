package facetstore

import (
	"testing"

	preferencestore "github.com/alquimista/website/internal/app/store/preferences"
	"github.com/alquimista/website/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestStore_Create_DerivesSlug(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	facet, err := store.Create(ctx, CreateInput{
		Title:  "Music & Sound",
		Order:  1,
		Active: true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if facet.Slug != "music-sound" {
		t.Errorf("Create() Slug = %q, want %q", facet.Slug, "music-sound")
	}
	if facet.ID.IsZero() {
		t.Error("Create() should assign an ID")
	}
}

func TestStore_Create_SuffixesDuplicateSlug(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := store.Create(ctx, CreateInput{Title: "Painting", Active: true})
	if err != nil {
		t.Fatalf("Create() first error = %v", err)
	}

	second, err := store.Create(ctx, CreateInput{Title: "Painting", Active: true})
	if err != nil {
		t.Fatalf("Create() second error = %v", err)
	}

	if second.Slug == first.Slug {
		t.Errorf("Create() duplicate title produced the same slug %q", second.Slug)
	}
}

func TestStore_Update_RederivesSlugWhenCleared(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	facet, err := store.Create(ctx, CreateInput{Title: "Old Title", Active: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	title := "New Title"
	emptySlug := ""
	if err := store.Update(ctx, facet.ID, UpdateInput{Title: &title, Slug: &emptySlug}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	updated, err := store.GetByID(ctx, facet.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if updated.Slug != "new-title" {
		t.Errorf("Update() Slug = %q, want %q", updated.Slug, "new-title")
	}
}

func TestStore_List_SortsByOrderThenTitle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, in := range []CreateInput{
		{Title: "Zeta", Order: 1, Active: true},
		{Title: "Alpha", Order: 2, Active: true},
		{Title: "Beta", Order: 1, Active: true},
	} {
		if _, err := store.Create(ctx, in); err != nil {
			t.Fatalf("Create(%q) error = %v", in.Title, err)
		}
	}

	facets, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	got := make([]string, len(facets))
	for i, f := range facets {
		got[i] = f.Title
	}
	want := []string{"Beta", "Zeta", "Alpha"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() order = %v, want %v", got, want)
		}
	}
}

func TestStore_ListActive_FiltersInactive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	active, err := store.Create(ctx, CreateInput{Title: "Shown", Active: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, CreateInput{Title: "Hidden", Active: false}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	facets, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(facets) != 1 || facets[0].ID != active.ID {
		t.Errorf("ListActive() returned %d facets, want only the active one", len(facets))
	}
}

func TestStore_SetActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	facet, err := store.Create(ctx, CreateInput{Title: "Toggle", Active: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.SetActive(ctx, facet.ID, false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	updated, err := store.GetByID(ctx, facet.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if updated.Active {
		t.Error("SetActive(false) left the facet active")
	}
}

func TestStore_Delete_Cascades(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	facet, err := store.Create(ctx, CreateInput{Title: "Doomed", Active: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Seed a milestone, an extra image, and a user preference for the facet
	milestoneID := primitive.NewObjectID()
	if _, err := db.Collection("milestones").InsertOne(ctx, bson.M{
		"_id": milestoneID, "facet_id": facet.ID, "title": "M", "active": true,
	}); err != nil {
		t.Fatalf("seed milestone: %v", err)
	}
	if _, err := db.Collection("milestone_images").InsertOne(ctx, bson.M{
		"milestone_id": milestoneID, "image_path": "x.jpg", "active": true,
	}); err != nil {
		t.Fatalf("seed image: %v", err)
	}
	prefStore := preferencestore.New(db)
	userID := primitive.NewObjectID()
	if err := prefStore.CreateMany(ctx, userID, []preferencestore.Entry{{FacetID: facet.ID, Priority: 1}}); err != nil {
		t.Fatalf("seed preference: %v", err)
	}

	if err := store.Delete(ctx, facet.ID, zap.NewNop()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	for _, coll := range []string{"facets", "milestones", "milestone_images", "facet_preferences"} {
		n, err := db.Collection(coll).CountDocuments(ctx, bson.M{})
		if err != nil {
			t.Fatalf("count %s: %v", coll, err)
		}
		if n != 0 {
			t.Errorf("Delete() left %d documents in %s", n, coll)
		}
	}
}

func TestStore_MilestoneCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	facet, err := store.Create(ctx, CreateInput{Title: "Counted", Active: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := db.Collection("milestones").InsertOne(ctx, bson.M{
			"facet_id": facet.ID, "title": "M", "active": true,
		}); err != nil {
			t.Fatalf("seed milestone: %v", err)
		}
	}

	counts, err := store.MilestoneCounts(ctx)
	if err != nil {
		t.Fatalf("MilestoneCounts() error = %v", err)
	}
	if counts[facet.ID] != 3 {
		t.Errorf("MilestoneCounts() = %d, want 3", counts[facet.ID])
	}
}

func TestStore_ListTree_FiltersByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wanted, err := store.Create(ctx, CreateInput{Title: "Wanted", Order: 1, Active: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, CreateInput{Title: "Other", Order: 2, Active: true}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tree, err := store.ListTree(ctx, []primitive.ObjectID{wanted.ID})
	if err != nil {
		t.Fatalf("ListTree() error = %v", err)
	}
	if len(tree) != 1 || tree[0].ID != wanted.ID {
		t.Fatalf("ListTree() returned %d facets, want only the selected one", len(tree))
	}
}

func TestStore_ListTree_IncludesActiveMilestones(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	facet, err := store.Create(ctx, CreateInput{Title: "With Milestones", Active: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := db.Collection("milestones").InsertOne(ctx, bson.M{
		"facet_id": facet.ID, "title": "Visible", "order": 1, "active": true,
	}); err != nil {
		t.Fatalf("seed milestone: %v", err)
	}
	if _, err := db.Collection("milestones").InsertOne(ctx, bson.M{
		"facet_id": facet.ID, "title": "Hidden", "order": 2, "active": false,
	}); err != nil {
		t.Fatalf("seed milestone: %v", err)
	}

	tree, err := store.ListTree(ctx, nil)
	if err != nil {
		t.Fatalf("ListTree() error = %v", err)
	}
	if len(tree) != 1 {
		t.Fatalf("ListTree() returned %d facets, want 1", len(tree))
	}
	if len(tree[0].Milestones) != 1 {
		t.Fatalf("ListTree() returned %d milestones, want 1 (inactive excluded)", len(tree[0].Milestones))
	}
	if tree[0].Milestones[0].Title != "Visible" {
		t.Errorf("ListTree() milestone = %q, want %q", tree[0].Milestones[0].Title, "Visible")
	}
}

package topicstore

import (
	"testing"

	materialstore "github.com/alquimista/website/internal/app/store/materials"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/alquimista/website/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestStore_Create_And_Get(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	topic, err := store.Create(ctx, CreateInput{
		Title:       "Harmony",
		Description: "Chord progressions and voice leading",
		Order:       1,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.GetByID(ctx, topic.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Harmony" || !got.Active {
		t.Errorf("GetByID() = {Title:%q Active:%v}, want {Harmony true}", got.Title, got.Active)
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	topic, err := store.Create(ctx, CreateInput{Title: "Old", Active: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	title := "New"
	order := 5
	if err := store.Update(ctx, topic.ID, UpdateInput{Title: &title, Order: &order}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := store.GetByID(ctx, topic.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "New" || got.Order != 5 {
		t.Errorf("Update() stored {Title:%q Order:%d}, want {New 5}", got.Title, got.Order)
	}
}

func TestStore_ListActive_FiltersInactive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, CreateInput{Title: "Shown", Order: 1, Active: true}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, CreateInput{Title: "Hidden", Order: 2, Active: false}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	topics, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(topics) != 1 || topics[0].Title != "Shown" {
		t.Errorf("ListActive() returned %d topics, want only the active one", len(topics))
	}
}

func TestStore_Delete_CascadesMaterials(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	matStore := materialstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	topic, err := store.Create(ctx, CreateInput{Title: "Doomed", Active: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	material, err := matStore.Create(ctx, materialstore.CreateInput{
		TopicID: topic.ID,
		Title:   "Worksheet",
		Active:  true,
	})
	if err != nil {
		t.Fatalf("material Create() error = %v", err)
	}
	if err := matStore.ApplyAttachmentRecords(ctx, models.AttachmentPDF, material.ID, []materialstore.AttachmentRecord{
		{DisplayName: "Sheet", FilePath: "materials/2026/01/a.pdf", Order: 1, Active: true},
	}); err != nil {
		t.Fatalf("ApplyAttachmentRecords() error = %v", err)
	}

	if err := store.Delete(ctx, topic.ID, zap.NewNop()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	for _, coll := range []string{"topics", "materials", "material_pdfs"} {
		n, err := db.Collection(coll).CountDocuments(ctx, bson.M{})
		if err != nil {
			t.Fatalf("count %s: %v", coll, err)
		}
		if n != 0 {
			t.Errorf("Delete() left %d documents in %s", n, coll)
		}
	}
}

func TestStore_MaterialCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	matStore := materialstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	topic, err := store.Create(ctx, CreateInput{Title: "Counted", Active: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := matStore.Create(ctx, materialstore.CreateInput{TopicID: topic.ID, Title: "M", Active: true}); err != nil {
			t.Fatalf("material Create() error = %v", err)
		}
	}

	counts, err := store.MaterialCounts(ctx)
	if err != nil {
		t.Fatalf("MaterialCounts() error = %v", err)
	}
	if counts[topic.ID] != 2 {
		t.Errorf("MaterialCounts() = %d, want 2", counts[topic.ID])
	}
}

package dashboard

import (
	"net/http"
	"testing"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	facetstore "github.com/alquimista/website/internal/app/store/facets"
	messagestore "github.com/alquimista/website/internal/app/store/messages"
	"github.com/alquimista/website/internal/testutil"
	"go.uber.org/zap"
)

func TestDashboard_Index(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	facets := facetstore.New(db)
	if _, err := facets.Create(ctx, facetstore.CreateInput{Title: "Woodworking", Active: true}); err != nil {
		t.Fatalf("seed facet: %v", err)
	}
	if _, err := facets.Create(ctx, facetstore.CreateInput{Title: "Retired Craft", Active: false}); err != nil {
		t.Fatalf("seed facet: %v", err)
	}
	messages := messagestore.New(db)
	if _, err := messages.Create(ctx, messagestore.CreateInput{
		Name:  "Ana",
		Email: "ana@example.com",
		Body:  "A question",
	}); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	h := NewHandler(db, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())
	rec := testutil.NewRecorder()
	h.Index(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/staff", testutil.StaffUser()))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Woodworking")
	rec.AssertContains(t, "Ana")
}

func TestDashboard_Index_EmptyDatabase(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)

	h := NewHandler(db, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())
	rec := testutil.NewRecorder()
	h.Index(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/staff", testutil.StaffUser()))

	rec.AssertStatus(t, http.StatusOK)
}

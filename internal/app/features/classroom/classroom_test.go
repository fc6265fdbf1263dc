package classroom

import (
	"net/http"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	materialstore "github.com/alquimista/website/internal/app/store/materials"
	topicstore "github.com/alquimista/website/internal/app/store/topics"
	"github.com/alquimista/website/internal/app/system/auth"
	"github.com/alquimista/website/internal/domain/models"
	"github.com/alquimista/website/internal/testutil"
	"go.uber.org/zap"
)

func TestClassroom_Index_ShowsActiveTopicsAndMaterials(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	topics := topicstore.New(db)
	topic, err := topics.Create(ctx, topicstore.CreateInput{Title: "Counterpoint", Order: 1, Active: true})
	if err != nil {
		t.Fatalf("topic Create() error = %v", err)
	}
	if _, err := topics.Create(ctx, topicstore.CreateInput{Title: "Draft Topic", Active: false}); err != nil {
		t.Fatalf("topic Create() error = %v", err)
	}

	materials := materialstore.New(db)
	material, err := materials.Create(ctx, materialstore.CreateInput{
		TopicID: topic.ID,
		Title:   "Species Exercises",
		Active:  true,
	})
	if err != nil {
		t.Fatalf("material Create() error = %v", err)
	}
	if err := materials.ApplyAttachmentRecords(ctx, models.AttachmentVideo, material.ID, []materialstore.AttachmentRecord{
		{DisplayName: "Lesson Clip", URL: "https://www.youtube.com/watch?v=abc123xyz00", Order: 1, Active: true},
	}); err != nil {
		t.Fatalf("ApplyAttachmentRecords() error = %v", err)
	}

	rec := testutil.NewRecorder()
	h.index(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/classroom", testutil.StudentUser()))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Counterpoint")
	rec.AssertContains(t, "Species Exercises")
	rec.AssertContains(t, "Lesson Clip")
	if strings.Contains(rec.Body.String(), "Draft Topic") {
		t.Error("classroom should hide inactive topics")
	}
}

func TestClassroom_Routes_BlocksVisitors(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())

	sm, err := auth.NewSessionManager("test-session-key-0123456789abcdef", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	router := Routes(h, sm)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.VisitorUser()))

	if rec.Code == http.StatusOK {
		t.Errorf("visitor request status = %d, want a redirect or denial", rec.Code)
	}
}

package contact

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	messagestore "github.com/alquimista/website/internal/app/store/messages"
	"github.com/alquimista/website/internal/app/store/ratelimit"
	"github.com/alquimista/website/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func validForm() url.Values {
	form := url.Values{}
	form.Set("name", "Ana Souza")
	form.Set("email", "ana@example.com")
	form.Set("message", "I would like to ask about lessons.")
	return form
}

func TestContact_Show(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/contact", nil)
	rec := testutil.NewRecorder()
	h.show(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "form")
}

func TestContact_Submit_SavesMessage(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())

	rec := testutil.NewRecorder()
	h.submit(rec, postForm("/contact", validForm()))

	rec.AssertRedirect(t, "/?notice=message_sent")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	messages, err := messagestore.New(db).List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("submit stored %d messages, want 1", len(messages))
	}
	if messages[0].Email != "ana@example.com" {
		t.Errorf("stored Email = %q, want the submitted address", messages[0].Email)
	}
}

func TestContact_Submit_RejectsShortMessage(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())

	form := validForm()
	form.Set("message", "hi")
	rec := testutil.NewRecorder()
	h.submit(rec, postForm("/contact", form))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Ana Souza")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := messagestore.New(db).Count(ctx, bson.M{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("invalid submission stored %d messages, want 0", n)
	}
}

func TestContact_Submit_RateLimited(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	limiter := ratelimit.New(db, 1, time.Hour)
	h := NewHandler(db, limiter, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())

	req := postForm("/contact", validForm())
	req.RemoteAddr = "203.0.113.42:5000"
	rec := testutil.NewRecorder()
	h.submit(rec, req)
	rec.AssertRedirect(t, "/?notice=message_sent")

	req = postForm("/contact", validForm())
	req.RemoteAddr = "203.0.113.42:5001"
	rec = testutil.NewRecorder()
	h.submit(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "too many messages")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := messagestore.New(db).Count(ctx, bson.M{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("rate-limited submission stored %d messages, want 1", n)
	}
}

package messagestore

import (
	"testing"

	"github.com/alquimista/website/internal/testutil"
)

func TestStore_Create_StartsUnread(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	msg, err := store.Create(ctx, CreateInput{
		Name:  "Ana",
		Email: "ana@example.com",
		Body:  "I loved the recital last week.",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Read {
		t.Error("Create() should leave the message unread")
	}
	if got.RepliedAt != nil {
		t.Errorf("Create() RepliedAt = %v, want nil", got.RepliedAt)
	}
}

func TestStore_List_NewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, body := range []string{"first", "second", "third"} {
		if _, err := store.Create(ctx, CreateInput{Name: "N", Email: "n@example.com", Body: body}); err != nil {
			t.Fatalf("Create(%q) error = %v", body, err)
		}
	}

	messages, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("List() returned %d messages, want 3", len(messages))
	}
	if messages[0].Body != "third" {
		t.Errorf("List() first message = %q, want the newest", messages[0].Body)
	}
}

func TestStore_CountUnread_And_MarkRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	msg, err := store.Create(ctx, CreateInput{Name: "N", Email: "n@example.com", Body: "hi"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, CreateInput{Name: "M", Email: "m@example.com", Body: "hello"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	n, err := store.CountUnread(ctx)
	if err != nil {
		t.Fatalf("CountUnread() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountUnread() = %d, want 2", n)
	}

	if err := store.MarkRead(ctx, msg.ID, true); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	n, err = store.CountUnread(ctx)
	if err != nil {
		t.Fatalf("CountUnread() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountUnread() after MarkRead = %d, want 1", n)
	}
}

func TestStore_SaveReply_MarksReadAndStampsTime(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	msg, err := store.Create(ctx, CreateInput{Name: "N", Email: "n@example.com", Body: "question"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.SaveReply(ctx, msg.ID, "Thanks for writing in."); err != nil {
		t.Fatalf("SaveReply() error = %v", err)
	}

	got, err := store.GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Reply != "Thanks for writing in." {
		t.Errorf("SaveReply() Reply = %q, want the reply text", got.Reply)
	}
	if !got.Read {
		t.Error("SaveReply() should mark the message read")
	}
	if got.RepliedAt == nil {
		t.Error("SaveReply() should stamp RepliedAt")
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	msg, err := store.Create(ctx, CreateInput{Name: "N", Email: "n@example.com", Body: "bye"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete(ctx, msg.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.GetByID(ctx, msg.ID); err == nil {
		t.Error("GetByID() after Delete() should fail")
	}
}

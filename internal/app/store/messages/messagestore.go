// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"time"

	"github.com/alquimista/website/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the contact_messages collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new contact message store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("contact_messages")}
}

// CreateInput contains the input for recording a contact form submission.
type CreateInput struct {
	Name  string
	Email string
	Body  string
}

// Create records a contact form submission.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.ContactMessage, error) {
	msg := models.ContactMessage{
		ID:        primitive.NewObjectID(),
		Name:      input.Name,
		Email:     input.Email,
		Body:      input.Body,
		CreatedAt: time.Now(),
	}

	if _, err := s.c.InsertOne(ctx, msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

// GetByID retrieves a message by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ContactMessage, error) {
	var msg models.ContactMessage
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// List returns all messages, newest first.
func (s *Store) List(ctx context.Context) ([]models.ContactMessage, error) {
	cursor, err := s.c.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.ContactMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// CountUnread returns the number of unread messages, for the inbox badge.
func (s *Store) CountUnread(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"read": false})
}

// Count returns the number of messages matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// MarkRead marks a message as read or unread.
func (s *Store) MarkRead(ctx context.Context, id primitive.ObjectID, read bool) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"read": read},
	})
	return err
}

// SaveReply records the reply text on a message, marks it read, and stamps
// the reply time.
func (s *Store) SaveReply(ctx context.Context, id primitive.ObjectID, reply string) error {
	now := time.Now()
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"reply":      reply,
			"replied_at": now,
			"read":       true,
		},
	})
	return err
}

// Delete deletes a message.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

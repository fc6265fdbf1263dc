// internal/app/store/topics/topicstore.go
package topicstore

import (
	"context"
	"time"

	"github.com/alquimista/website/internal/app/system/txn"
	"github.com/alquimista/website/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Store provides access to the topics collection. It holds the database
// handle because deleting a topic cascades into materials and their
// attachments.
type Store struct {
	db *mongo.Database
	c  *mongo.Collection
}

// New creates a new topic store.
func New(db *mongo.Database) *Store {
	return &Store{
		db: db,
		c:  db.Collection("topics"),
	}
}

// CreateInput contains the input for creating a topic.
type CreateInput struct {
	Title       string
	Description string
	Order       int
	Active      bool
}

// Create creates a new topic.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.Topic, error) {
	now := time.Now()
	topic := models.Topic{
		ID:          primitive.NewObjectID(),
		Title:       input.Title,
		Description: input.Description,
		Order:       input.Order,
		Active:      input.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.c.InsertOne(ctx, topic); err != nil {
		return nil, err
	}

	return &topic, nil
}

// GetByID retrieves a topic by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Topic, error) {
	var topic models.Topic
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

// UpdateInput contains the input for updating a topic.
type UpdateInput struct {
	Title       *string
	Description *string
	Order       *int
	Active      *bool
}

// Update updates a topic.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{"updated_at": time.Now()}

	if input.Title != nil {
		set["title"] = *input.Title
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.Order != nil {
		set["order"] = *input.Order
	}
	if input.Active != nil {
		set["active"] = *input.Active
	}

	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// SetActive sets the active status of a topic.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"active":     active,
			"updated_at": time.Now(),
		},
	})
	return err
}

// Delete deletes a topic and cascades into its materials and their
// attachments. The cascade runs in a transaction where supported.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID, log *zap.Logger) error {
	return txn.Run(ctx, s.db, log, func(ctx context.Context) error {
		cur, err := s.db.Collection("materials").Find(ctx, bson.M{"topic_id": id},
			options.Find().SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return err
		}
		var materials []struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.All(ctx, &materials); err != nil {
			return err
		}

		if len(materials) > 0 {
			ids := make([]primitive.ObjectID, len(materials))
			for i, m := range materials {
				ids[i] = m.ID
			}
			for _, kind := range models.AllAttachmentKinds() {
				coll := s.db.Collection(models.AttachmentCollection(kind))
				if _, err := coll.DeleteMany(ctx, bson.M{"material_id": bson.M{"$in": ids}}); err != nil {
					return err
				}
			}
		}

		if _, err := s.db.Collection("materials").DeleteMany(ctx, bson.M{"topic_id": id}); err != nil {
			return err
		}
		_, err = s.c.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
}

// List returns all topics sorted by order then title.
func (s *Store) List(ctx context.Context) ([]models.Topic, error) {
	return s.find(ctx, bson.M{})
}

// ListActive returns the active topics sorted by order then title.
func (s *Store) ListActive(ctx context.Context) ([]models.Topic, error) {
	return s.find(ctx, bson.M{"active": true})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Topic, error) {
	cursor, err := s.c.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "title", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var topics []models.Topic
	if err := cursor.All(ctx, &topics); err != nil {
		return nil, err
	}

	return topics, nil
}

// Count returns the number of topics matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// MaterialCounts returns the number of materials per topic, for the staff
// topic list.
func (s *Store) MaterialCounts(ctx context.Context) (map[primitive.ObjectID]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$topic_id",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := s.db.Collection("materials").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		TopicID primitive.ObjectID `bson:"_id"`
		Count   int                `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[primitive.ObjectID]int, len(rows))
	for _, row := range rows {
		counts[row.TopicID] = row.Count
	}
	return counts, nil
}

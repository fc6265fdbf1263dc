// internal/app/store/materials/materialstore.go
package materialstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alquimista/website/internal/app/system/txn"
	"github.com/alquimista/website/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrMissingSource is returned when a new video attachment has neither an
// uploaded file nor an external URL.
var ErrMissingSource = errors.New("video attachments need an uploaded file or a URL")

// Store provides access to the materials collection and the three
// attachment collections that hang off it.
type Store struct {
	db *mongo.Database
	c  *mongo.Collection
}

// New creates a new material store.
func New(db *mongo.Database) *Store {
	return &Store{
		db: db,
		c:  db.Collection("materials"),
	}
}

func (s *Store) attachments(kind string) *mongo.Collection {
	return s.db.Collection(models.AttachmentCollection(kind))
}

// CreateInput contains the input for creating a material.
type CreateInput struct {
	TopicID     primitive.ObjectID
	Title       string
	Description string
	Order       int
	Active      bool
}

// Create creates a new material.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.Material, error) {
	now := time.Now()
	m := models.Material{
		ID:          primitive.NewObjectID(),
		TopicID:     input.TopicID,
		Title:       input.Title,
		Description: input.Description,
		Order:       input.Order,
		Active:      input.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return nil, err
	}

	return &m, nil
}

// GetByID retrieves a material by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Material, error) {
	var m models.Material
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateInput contains the input for updating a material.
type UpdateInput struct {
	Title       *string
	Description *string
	Order       *int
	Active      *bool
}

// Update updates a material.
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

// SetActive sets the active status of a material.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"active":     active,
			"updated_at": time.Now(),
		},
	})
	return err
}

// Delete deletes a material and all of its attachments. The cascade runs
// in a transaction where supported.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID, log *zap.Logger) error {
	return txn.Run(ctx, s.db, log, func(ctx context.Context) error {
		for _, kind := range models.AllAttachmentKinds() {
			if _, err := s.attachments(kind).DeleteMany(ctx, bson.M{"material_id": id}); err != nil {
				return err
			}
		}
		_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
}

// ListByTopic returns all materials of a topic in display order.
func (s *Store) ListByTopic(ctx context.Context, topicID primitive.ObjectID) ([]models.Material, error) {
	return s.find(ctx, bson.M{"topic_id": topicID})
}

// ListActiveByTopic returns the active materials of a topic in display order.
func (s *Store) ListActiveByTopic(ctx context.Context, topicID primitive.ObjectID) ([]models.Material, error) {
	return s.find(ctx, bson.M{"topic_id": topicID, "active": true})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Material, error) {
	cursor, err := s.c.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "title", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var materials []models.Material
	if err := cursor.All(ctx, &materials); err != nil {
		return nil, err
	}

	return materials, nil
}

// Count returns the number of materials matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

/* -------------------------------------------------------------------------- */
/* Attachments                                                                */
/* -------------------------------------------------------------------------- */

// GetAttachment retrieves an attachment of the given kind by ID.
func (s *Store) GetAttachment(ctx context.Context, kind string, id primitive.ObjectID) (*models.MaterialAttachment, error) {
	if !models.IsValidAttachmentKind(kind) {
		return nil, fmt.Errorf("unknown attachment kind %q", kind)
	}

	var a models.MaterialAttachment
	if err := s.attachments(kind).FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAttachments returns a material's attachments of one kind in display order.
func (s *Store) ListAttachments(ctx context.Context, kind string, materialID primitive.ObjectID) ([]models.MaterialAttachment, error) {
	if !models.IsValidAttachmentKind(kind) {
		return nil, fmt.Errorf("unknown attachment kind %q", kind)
	}
	return s.findAttachments(ctx, kind, bson.M{"material_id": materialID})
}

func (s *Store) findAttachments(ctx context.Context, kind string, filter bson.M) ([]models.MaterialAttachment, error) {
	cursor, err := s.attachments(kind).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var attachments []models.MaterialAttachment
	if err := cursor.All(ctx, &attachments); err != nil {
		return nil, err
	}

	return attachments, nil
}

// DeleteAttachment deletes an attachment of the given kind.
func (s *Store) DeleteAttachment(ctx context.Context, kind string, id primitive.ObjectID) error {
	if !models.IsValidAttachmentKind(kind) {
		return fmt.Errorf("unknown attachment kind %q", kind)
	}
	_, err := s.attachments(kind).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// AttachmentRecord is one row of the attachment list submitted with the
// material edit form. ID is the hex of an existing attachment, or empty for
// a new one. FilePath is set when a file was uploaded for this row; an empty
// FilePath on an existing row keeps the stored file.
type AttachmentRecord struct {
	ID          string
	DisplayName string
	FilePath    string
	URL         string
	Order       int
	Active      bool
	Delete      bool
}

func (rec AttachmentRecord) empty() bool {
	return rec.ID == "" && rec.DisplayName == "" && rec.FilePath == "" && rec.URL == ""
}

// ApplyAttachmentRecords reconciles a material's attachments of one kind
// with the submitted rows: rows flagged Delete are removed, rows with an ID
// are updated, and the rest are created. Blank rows are skipped. New video
// attachments must carry a file or a URL.
func (s *Store) ApplyAttachmentRecords(ctx context.Context, kind string, materialID primitive.ObjectID, records []AttachmentRecord) error {
	if !models.IsValidAttachmentKind(kind) {
		return fmt.Errorf("unknown attachment kind %q", kind)
	}
	coll := s.attachments(kind)

	for _, rec := range records {
		if rec.empty() {
			continue
		}

		if rec.ID != "" {
			id, err := primitive.ObjectIDFromHex(rec.ID)
			if err != nil {
				return fmt.Errorf("bad attachment id %q: %w", rec.ID, err)
			}

			if rec.Delete {
				if _, err := coll.DeleteOne(ctx, bson.M{"_id": id, "material_id": materialID}); err != nil {
					return err
				}
				continue
			}

			set := bson.M{
				"display_name": rec.DisplayName,
				"url":          rec.URL,
				"order":        rec.Order,
				"active":       rec.Active,
			}
			if rec.FilePath != "" {
				set["file_path"] = rec.FilePath
			}
			if _, err := coll.UpdateOne(ctx, bson.M{"_id": id, "material_id": materialID}, bson.M{"$set": set}); err != nil {
				return err
			}
			continue
		}

		if rec.Delete {
			continue
		}
		if kind == models.AttachmentVideo && rec.FilePath == "" && rec.URL == "" {
			return ErrMissingSource
		}

		a := models.MaterialAttachment{
			ID:          primitive.NewObjectID(),
			MaterialID:  materialID,
			DisplayName: rec.DisplayName,
			FilePath:    rec.FilePath,
			URL:         rec.URL,
			Order:       rec.Order,
			Active:      rec.Active,
			CreatedAt:   time.Now(),
		}
		if _, err := coll.InsertOne(ctx, a); err != nil {
			return err
		}
	}

	return nil
}

/* -------------------------------------------------------------------------- */
/* Assembled views                                                            */
/* -------------------------------------------------------------------------- */

// MaterialView is a material with its attachments grouped by kind, ready
// for the class content page.
type MaterialView struct {
	models.Material
	PDFs          []models.MaterialAttachment
	Videos        []models.MaterialAttachment
	Presentations []models.MaterialAttachment
}

// ListViewByTopic assembles the active materials of a topic with their
// active attachments.
func (s *Store) ListViewByTopic(ctx context.Context, topicID primitive.ObjectID) ([]MaterialView, error) {
	materials, err := s.ListActiveByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if len(materials) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, len(materials))
	for i, m := range materials {
		ids[i] = m.ID
	}
	filter := bson.M{"material_id": bson.M{"$in": ids}, "active": true}

	byKind := make(map[string]map[primitive.ObjectID][]models.MaterialAttachment)
	for _, kind := range models.AllAttachmentKinds() {
		attachments, err := s.findAttachments(ctx, kind, filter)
		if err != nil {
			return nil, err
		}
		grouped := make(map[primitive.ObjectID][]models.MaterialAttachment)
		for _, a := range attachments {
			grouped[a.MaterialID] = append(grouped[a.MaterialID], a)
		}
		byKind[kind] = grouped
	}

	views := make([]MaterialView, len(materials))
	for i, m := range materials {
		views[i] = MaterialView{
			Material:      m,
			PDFs:          byKind[models.AttachmentPDF][m.ID],
			Videos:        byKind[models.AttachmentVideo][m.ID],
			Presentations: byKind[models.AttachmentPresentation][m.ID],
		}
	}
	return views, nil
}

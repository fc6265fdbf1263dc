// internal/app/store/milestones/milestonestore.go
package milestonestore

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

// Store provides access to the milestones and milestone_images collections.
type Store struct {
	db     *mongo.Database
	c      *mongo.Collection
	images *mongo.Collection
}

// New creates a new milestone store.
func New(db *mongo.Database) *Store {
	return &Store{
		db:     db,
		c:      db.Collection("milestones"),
		images: db.Collection("milestone_images"),
	}
}

// CreateInput contains the input for creating a milestone.
type CreateInput struct {
	FacetID       primitive.ObjectID
	Title         string
	Description   string // sanitized HTML
	Year          *int
	ImagePath     string
	ImageSize     string
	VideoPath     string
	VideoURL      string
	VideoProvider string
	VideoID       string
	Order         int
	Active        bool
}

// Create creates a new milestone.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.Milestone, error) {
	now := time.Now()
	imageSize := input.ImageSize
	if imageSize == "" {
		imageSize = models.ImageSizeMedium
	}

	m := models.Milestone{
		ID:            primitive.NewObjectID(),
		FacetID:       input.FacetID,
		Title:         input.Title,
		Description:   input.Description,
		Year:          input.Year,
		ImagePath:     input.ImagePath,
		ImageSize:     imageSize,
		VideoPath:     input.VideoPath,
		VideoURL:      input.VideoURL,
		VideoProvider: input.VideoProvider,
		VideoID:       input.VideoID,
		Order:         input.Order,
		Active:        input.Active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return nil, err
	}

	return &m, nil
}

// GetByID retrieves a milestone by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Milestone, error) {
	var m models.Milestone
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateInput contains the input for updating a milestone.
type UpdateInput struct {
	Title         *string
	Description   *string
	Year          *int
	ClearYear     bool // set the year to nothing
	ImagePath     *string
	ImageSize     *string
	VideoPath     *string
	VideoURL      *string
	VideoProvider *string
	VideoID       *string
	Order         *int
	Active        *bool
}

// Update updates a milestone.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{"updated_at": time.Now()}
	unset := bson.M{}

	if input.Title != nil {
		set["title"] = *input.Title
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.ClearYear {
		unset["year"] = ""
	} else if input.Year != nil {
		set["year"] = *input.Year
	}
	if input.ImagePath != nil {
		set["image_path"] = *input.ImagePath
	}
	if input.ImageSize != nil {
		set["image_size"] = *input.ImageSize
	}
	if input.VideoPath != nil {
		set["video_path"] = *input.VideoPath
	}
	if input.VideoURL != nil {
		set["video_url"] = *input.VideoURL
	}
	if input.VideoProvider != nil {
		set["video_provider"] = *input.VideoProvider
	}
	if input.VideoID != nil {
		set["video_id"] = *input.VideoID
	}
	if input.Order != nil {
		set["order"] = *input.Order
	}
	if input.Active != nil {
		set["active"] = *input.Active
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// SetActive sets the active status of a milestone.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"active":     active,
			"updated_at": time.Now(),
		},
	})
	return err
}

// Delete deletes a milestone and its extra images. The cascade runs in a
// transaction where supported.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID, log *zap.Logger) error {
	return txn.Run(ctx, s.db, log, func(ctx context.Context) error {
		if _, err := s.images.DeleteMany(ctx, bson.M{"milestone_id": id}); err != nil {
			return err
		}
		_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
}

// ListByFacet returns all milestones of a facet in display order.
func (s *Store) ListByFacet(ctx context.Context, facetID primitive.ObjectID) ([]models.Milestone, error) {
	cursor, err := s.c.Find(ctx, bson.M{"facet_id": facetID},
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "year", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var milestones []models.Milestone
	if err := cursor.All(ctx, &milestones); err != nil {
		return nil, err
	}

	return milestones, nil
}

// Count returns the number of milestones matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

/* -------------------------------------------------------------------------- */
/* Extra images                                                               */
/* -------------------------------------------------------------------------- */

// ImageInput contains the input for adding an extra image to a milestone.
type ImageInput struct {
	MilestoneID primitive.ObjectID
	ImagePath   string
	Caption     string
	Order       int
	Active      bool
}

// AddImage adds an extra image to a milestone.
func (s *Store) AddImage(ctx context.Context, input ImageInput) (*models.MilestoneImage, error) {
	img := models.MilestoneImage{
		ID:          primitive.NewObjectID(),
		MilestoneID: input.MilestoneID,
		ImagePath:   input.ImagePath,
		Caption:     input.Caption,
		Order:       input.Order,
		Active:      input.Active,
		CreatedAt:   time.Now(),
	}

	if _, err := s.images.InsertOne(ctx, img); err != nil {
		return nil, err
	}

	return &img, nil
}

// GetImage retrieves an extra image by ID.
func (s *Store) GetImage(ctx context.Context, id primitive.ObjectID) (*models.MilestoneImage, error) {
	var img models.MilestoneImage
	if err := s.images.FindOne(ctx, bson.M{"_id": id}).Decode(&img); err != nil {
		return nil, err
	}
	return &img, nil
}

// UpdateImage updates the caption, order, and active flag of an extra image.
func (s *Store) UpdateImage(ctx context.Context, id primitive.ObjectID, caption string, order int, active bool) error {
	_, err := s.images.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"caption": caption,
			"order":   order,
			"active":  active,
		},
	})
	return err
}

// DeleteImage deletes an extra image.
func (s *Store) DeleteImage(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.images.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ListImages returns the extra images of a milestone in display order.
func (s *Store) ListImages(ctx context.Context, milestoneID primitive.ObjectID) ([]models.MilestoneImage, error) {
	cursor, err := s.images.Find(ctx, bson.M{"milestone_id": milestoneID},
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var images []models.MilestoneImage
	if err := cursor.All(ctx, &images); err != nil {
		return nil, err
	}

	return images, nil
}

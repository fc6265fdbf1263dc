// internal/app/store/facets/facetstore.go
package facetstore

import (
	"context"
	"errors"
	"time"

	"github.com/alquimista/website/internal/app/system/slug"
	"github.com/alquimista/website/internal/app/system/txn"
	"github.com/alquimista/website/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrDuplicateSlug is returned when a facet slug is already taken.
var ErrDuplicateSlug = errors.New("a facet with this slug already exists")

// Store provides access to the facets collection. It holds the database
// handle because deleting a facet cascades into milestones, milestone
// images, and facet preferences.
type Store struct {
	db *mongo.Database
	c  *mongo.Collection
}

// New creates a new facet store.
func New(db *mongo.Database) *Store {
	return &Store{
		db: db,
		c:  db.Collection("facets"),
	}
}

// CreateInput contains the input for creating a facet.
type CreateInput struct {
	Title           string
	Description     string // sanitized HTML
	HeroImagePath   string
	BackgroundColor string
	Slug            string // derived from Title when blank
	Order           int
	Active          bool
}

// Create creates a new facet. When Slug is blank it is derived from the
// title; either way the slug is checked for uniqueness and suffixed on
// collision.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.Facet, error) {
	base := input.Slug
	if base == "" {
		base = input.Title
	}
	unique, err := slug.Unique(ctx, s.c, base, primitive.NilObjectID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	facet := models.Facet{
		ID:              primitive.NewObjectID(),
		Title:           input.Title,
		Description:     input.Description,
		HeroImagePath:   input.HeroImagePath,
		BackgroundColor: input.BackgroundColor,
		Slug:            unique,
		Order:           input.Order,
		Active:          input.Active,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := s.c.InsertOne(ctx, facet); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateSlug
		}
		return nil, err
	}

	return &facet, nil
}

// GetByID retrieves a facet by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Facet, error) {
	var facet models.Facet
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&facet); err != nil {
		return nil, err
	}
	return &facet, nil
}

// GetBySlug retrieves a facet by its slug.
func (s *Store) GetBySlug(ctx context.Context, facetSlug string) (*models.Facet, error) {
	var facet models.Facet
	if err := s.c.FindOne(ctx, bson.M{"slug": facetSlug}).Decode(&facet); err != nil {
		return nil, err
	}
	return &facet, nil
}

// UpdateInput contains the input for updating a facet.
type UpdateInput struct {
	Title           *string
	Description     *string
	HeroImagePath   *string
	BackgroundColor *string
	Slug            *string // empty string re-derives from the title
	Order           *int
	Active          *bool
}

// Update updates a facet. Setting Slug to an empty string re-derives it
// from the (possibly updated) title.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{"updated_at": time.Now()}

	if input.Title != nil {
		set["title"] = *input.Title
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.HeroImagePath != nil {
		set["hero_image_path"] = *input.HeroImagePath
	}
	if input.BackgroundColor != nil {
		set["background_color"] = *input.BackgroundColor
	}
	if input.Order != nil {
		set["order"] = *input.Order
	}
	if input.Active != nil {
		set["active"] = *input.Active
	}

	if input.Slug != nil {
		base := *input.Slug
		if base == "" {
			if input.Title != nil {
				base = *input.Title
			} else {
				current, err := s.GetByID(ctx, id)
				if err != nil {
					return err
				}
				base = current.Title
			}
		}
		unique, err := slug.Unique(ctx, s.c, base, id)
		if err != nil {
			return err
		}
		set["slug"] = unique
	}

	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	return nil
}

// SetActive sets the active status of a facet.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"active":     active,
			"updated_at": time.Now(),
		},
	})
	return err
}

// Delete deletes a facet and cascades into its milestones, their extra
// images, and every user preference that referenced it. The cascade runs
// in a transaction where supported.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID, log *zap.Logger) error {
	return txn.Run(ctx, s.db, log, func(ctx context.Context) error {
		// Collect milestone IDs for the image cascade
		cur, err := s.db.Collection("milestones").Find(ctx, bson.M{"facet_id": id},
			options.Find().SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return err
		}
		var milestones []struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.All(ctx, &milestones); err != nil {
			return err
		}

		if len(milestones) > 0 {
			ids := make([]primitive.ObjectID, len(milestones))
			for i, m := range milestones {
				ids[i] = m.ID
			}
			if _, err := s.db.Collection("milestone_images").DeleteMany(ctx, bson.M{"milestone_id": bson.M{"$in": ids}}); err != nil {
				return err
			}
		}

		if _, err := s.db.Collection("milestones").DeleteMany(ctx, bson.M{"facet_id": id}); err != nil {
			return err
		}
		if _, err := s.db.Collection("facet_preferences").DeleteMany(ctx, bson.M{"facet_id": id}); err != nil {
			return err
		}
		_, err = s.c.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
}

// List returns all facets sorted by order then title.
func (s *Store) List(ctx context.Context) ([]models.Facet, error) {
	return s.find(ctx, bson.M{})
}

// ListActive returns the active facets sorted by order then title.
func (s *Store) ListActive(ctx context.Context) ([]models.Facet, error) {
	return s.find(ctx, bson.M{"active": true})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Facet, error) {
	cursor, err := s.c.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "title", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var facets []models.Facet
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, err
	}

	return facets, nil
}

// Count returns the number of facets matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// MilestoneCounts returns the number of milestones per facet, for the
// staff facet list.
func (s *Store) MilestoneCounts(ctx context.Context) (map[primitive.ObjectID]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$facet_id",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := s.db.Collection("milestones").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		FacetID primitive.ObjectID `bson:"_id"`
		Count   int                `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[primitive.ObjectID]int, len(rows))
	for _, row := range rows {
		counts[row.FacetID] = row.Count
	}
	return counts, nil
}

// MilestoneView is a milestone with its extra images, ready for display.
type MilestoneView struct {
	models.Milestone
	Images []models.MilestoneImage
}

// FacetView is a facet with its active milestones assembled for the
// homepage. TotalSlides counts the facet intro slide plus one per milestone.
type FacetView struct {
	models.Facet
	Milestones  []MilestoneView
	TotalSlides int
}

// ListTree assembles the active facets with their active milestones and
// images. When onlyIDs is non-empty the tree is limited to those facets
// (used for preference-filtered homepages); order is always the facet
// display order.
func (s *Store) ListTree(ctx context.Context, onlyIDs []primitive.ObjectID) ([]FacetView, error) {
	filter := bson.M{"active": true}
	if len(onlyIDs) > 0 {
		filter["_id"] = bson.M{"$in": onlyIDs}
	}

	facets, err := s.find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(facets) == 0 {
		return nil, nil
	}

	facetIDs := make([]primitive.ObjectID, len(facets))
	for i, f := range facets {
		facetIDs[i] = f.ID
	}

	// One query for all milestones of the selected facets
	mcur, err := s.db.Collection("milestones").Find(ctx,
		bson.M{"facet_id": bson.M{"$in": facetIDs}, "active": true},
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "year", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var milestones []models.Milestone
	if err := mcur.All(ctx, &milestones); err != nil {
		return nil, err
	}

	// One query for all extra images of those milestones
	imagesByMilestone := map[primitive.ObjectID][]models.MilestoneImage{}
	if len(milestones) > 0 {
		milestoneIDs := make([]primitive.ObjectID, len(milestones))
		for i, m := range milestones {
			milestoneIDs[i] = m.ID
		}
		icur, err := s.db.Collection("milestone_images").Find(ctx,
			bson.M{"milestone_id": bson.M{"$in": milestoneIDs}, "active": true},
			options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
		if err != nil {
			return nil, err
		}
		var images []models.MilestoneImage
		if err := icur.All(ctx, &images); err != nil {
			return nil, err
		}
		for _, img := range images {
			imagesByMilestone[img.MilestoneID] = append(imagesByMilestone[img.MilestoneID], img)
		}
	}

	byFacet := map[primitive.ObjectID][]MilestoneView{}
	for _, m := range milestones {
		byFacet[m.FacetID] = append(byFacet[m.FacetID], MilestoneView{
			Milestone: m,
			Images:    imagesByMilestone[m.ID],
		})
	}

	views := make([]FacetView, len(facets))
	for i, f := range facets {
		ms := byFacet[f.ID]
		views[i] = FacetView{
			Facet:       f,
			Milestones:  ms,
			TotalSlides: 1 + len(ms),
		}
	}
	return views, nil
}

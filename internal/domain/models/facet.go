// internal/domain/models/facet.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Facet is one section of the biography shown on the index page.
// Facets own an ordered set of milestones.
type Facet struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"` // HTML, sanitized before storage

	// Presentation
	HeroImagePath   string `bson:"hero_image_path,omitempty" json:"hero_image_path,omitempty"`
	BackgroundColor string `bson:"background_color,omitempty" json:"background_color,omitempty"` // CSS color, e.g. "#1a1a2e"

	// Slug is unique across all facets. Derived from the title when left blank.
	Slug string `bson:"slug" json:"slug"`

	Order  int  `bson:"order" json:"order"`
	Active bool `bson:"active" json:"active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// internal/domain/models/preference.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FacetPreference records that a user wants a facet on their index page.
// (UserID, FacetID) is unique. Lower priority sorts first.
type FacetPreference struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	FacetID   primitive.ObjectID `bson:"facet_id" json:"facet_id"`
	Priority  int                `bson:"priority" json:"priority"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// internal/domain/models/contactmessage.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContactMessage is a message submitted through the public contact form.
type ContactMessage struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
	Body  string             `bson:"body" json:"body"`

	Read bool `bson:"read" json:"read"`

	// Reply written by staff from the messages panel. RepliedAt is set
	// when a reply is first saved.
	Reply     string     `bson:"reply,omitempty" json:"reply,omitempty"`
	RepliedAt *time.Time `bson:"replied_at,omitempty" json:"replied_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

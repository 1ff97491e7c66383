// internal/domain/models/topic.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Topic is a named discussion subject owned by its creator.
//
// Participants is append-only and has no capacity limit; the creator is
// always a participant. Meetings reference topics by ID.
type Topic struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title        string               `bson:"title" json:"title"`
	TitleCI      string               `bson:"title_ci" json:"-"`
	Description  string               `bson:"description,omitempty" json:"description,omitempty"`
	Category     string               `bson:"category,omitempty" json:"category,omitempty"`
	Tags         []string             `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedBy    primitive.ObjectID   `bson:"created_by" json:"createdBy"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// TopicRef is the subset of topic fields embedded in meeting views.
type TopicRef struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Title string             `bson:"title" json:"title"`
}

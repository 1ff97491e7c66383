// internal/domain/models/meeting.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Meeting modes.
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
)

// Meeting statuses.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// DefaultCapacity is the meeting capacity when the organizer did not set
// one. Operators can override it at startup via configuration.
var DefaultCapacity = 10

// SetDefaultCapacity overrides DefaultCapacity. Non-positive values are
// ignored. Called once during startup, before any requests are served.
func SetDefaultCapacity(n int) {
	if n > 0 {
		DefaultCapacity = n
	}
}

// ValidMeetingStatus reports whether s is one of the four defined statuses.
func ValidMeetingStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidMeetingMode reports whether m is "online" or "offline".
func ValidMeetingMode(m string) bool {
	return m == ModeOnline || m == ModeOffline
}

// Meeting is a scheduled event tied to exactly one topic and one organizer.
// Only the organizer may mutate or delete it. Participation lives in the
// user_meetings collection, never embedded here.
type Meeting struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Subtitle    string             `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	Description string             `bson:"description" json:"description"`
	Topic       primitive.ObjectID `bson:"topic" json:"topic"`
	Organizer   primitive.ObjectID `bson:"organizer" json:"organizer"`

	ScheduledTime time.Time `bson:"scheduled_time" json:"scheduledTime"`
	Duration      int       `bson:"duration" json:"duration"` // minutes
	Location      string    `bson:"location,omitempty" json:"location,omitempty"`
	MeetingLink   string    `bson:"meeting_link,omitempty" json:"meetingLink,omitempty"`
	Capacity      int       `bson:"capacity" json:"capacity"`
	Mode          string    `bson:"mode" json:"mode"`     // "online" | "offline"
	Status        string    `bson:"status" json:"status"` // scheduled | in-progress | completed | cancelled

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// MeetingRef is the subset of meeting fields embedded in mapping views.
type MeetingRef struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	Title         string             `bson:"title" json:"title"`
	ScheduledTime time.Time          `bson:"scheduled_time" json:"scheduledTime"`
	Status        string             `bson:"status" json:"status"`
	Mode          string             `bson:"mode" json:"mode"`
}

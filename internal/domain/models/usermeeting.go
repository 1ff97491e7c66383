// internal/domain/models/usermeeting.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mapping statuses.
//
// "pending" and "rejected" are reserved for a future approval workflow;
// no current code path creates them, but they remain valid stored values.
const (
	MappingAccepted = "accepted"
	MappingPending  = "pending"
	MappingRejected = "rejected"
	MappingLeft     = "left"
)

// Mapping roles.
const (
	RoleParticipant = "participant"
	RoleOrganizer   = "organizer"
)

// ValidMappingStatus reports whether s is a defined mapping status.
func ValidMappingStatus(s string) bool {
	switch s {
	case MappingAccepted, MappingPending, MappingRejected, MappingLeft:
		return true
	}
	return false
}

// Feedback is a participant's post-meeting feedback. SubmittedAt is set
// only when a rating is present.
type Feedback struct {
	Rating      *int       `bson:"rating,omitempty" json:"rating,omitempty"` // 1..5
	Comment     string     `bson:"comment,omitempty" json:"comment,omitempty"`
	SubmittedAt *time.Time `bson:"submitted_at,omitempty" json:"submittedAt,omitempty"`
}

// UserMeeting is the authoritative join between users and meetings.
// Exactly one document per (user, meeting); the unique compound index on
// that pair is what makes join idempotency enforceable under concurrency.
type UserMeeting struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User    primitive.ObjectID `bson:"user" json:"user"`
	Meeting primitive.ObjectID `bson:"meeting" json:"meeting"`

	Status   string    `bson:"status" json:"status"` // accepted | pending | rejected | left
	Role     string    `bson:"role" json:"role"`     // participant | organizer
	JoinedAt time.Time `bson:"joined_at" json:"joinedAt"`
	Notes    string    `bson:"notes,omitempty" json:"notes,omitempty"`
	Feedback Feedback  `bson:"feedback,omitempty" json:"feedback,omitempty"`
}

// MeetingStats is the status-grouped mapping count for one meeting.
type MeetingStats struct {
	Total    int64 `json:"total"`
	Accepted int64 `json:"accepted"`
	Pending  int64 `json:"pending"`
	Rejected int64 `json:"rejected"`
	Left     int64 `json:"left"`
}

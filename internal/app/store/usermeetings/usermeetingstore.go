// internal/app/store/usermeetings/usermeetingstore.go
package usermeetingstore

// Terminology:
//   - Mapping: the join record between one user and one meeting. Exactly
//     one document per (user, meeting), enforced by a unique compound index.
//   - Accepted count: mappings with status "accepted"; this is the number
//     the capacity invariant is measured against.

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/htmlsanitize"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/txn"
	"github.com/knowledgeconnect/knowledgeconnect/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c        *mongo.Collection
	meetings *mongo.Collection
	client   *mongo.Client
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:        db.Collection("user_meetings"),
		meetings: db.Collection("meetings"),
		client:   db.Client(),
	}
}

var (
	// ErrMeetingNotFound is returned when the referenced meeting does not exist.
	ErrMeetingNotFound = errors.New("meeting not found")
	// ErrCapacityFull is returned when a join would push the accepted
	// count past the meeting's capacity.
	ErrCapacityFull = errors.New("meeting has reached maximum participants")
	// ErrAlreadyJoined is returned for a join when a mapping already
	// exists and is not in the "left" state.
	ErrAlreadyJoined = errors.New("you have already joined this meeting")
	// ErrMappingNotFound is returned when leaving a meeting the user
	// never joined.
	ErrMappingNotFound = errors.New("mapping not found")
	// ErrNotOrganizer is returned when a non-organizer attempts an
	// organizer-only operation.
	ErrNotOrganizer = errors.New("only the meeting organizer can delete all mappings")

	// ErrBadStatus is returned for a status outside the defined enum.
	ErrBadStatus = errors.New(`status must be "pending"|"accepted"|"rejected"|"left"`)
	// ErrBadRating is returned for an out-of-range feedback rating.
	ErrBadRating = errors.New("feedback rating must be between 1 and 5")
)

// joinResult carries the mapping plus whether the join revived an
// earlier left mapping rather than creating a new one.
type joinResult struct {
	mapping  *models.UserMeeting
	rejoined bool
}

// Join adds userID to meetingID, enforcing capacity and join idempotency.
// The second return value reports a re-join (a left mapping flipped back
// to accepted) so callers can answer 200 instead of 201.
//
// The capacity check, the existing-mapping check, and the write run as
// one atomic unit: a session transaction where the deployment supports
// it. On a standalone server (txn.IsNotSupported) the same steps run
// sequentially; the unique (user, meeting) index still makes duplicate
// joins impossible, and the count check remains the capacity guard.
func (s *Store) Join(ctx context.Context, meetingID, userID primitive.ObjectID) (*models.UserMeeting, bool, error) {
	result, err := txn.Run(ctx, s.client, func(sc mongo.SessionContext) (interface{}, error) {
		return s.joinOnce(sc, meetingID, userID)
	})
	if err != nil {
		if txn.IsNotSupported(err) {
			res, err := s.joinOnce(ctx, meetingID, userID)
			if err != nil {
				return nil, false, err
			}
			return res.mapping, res.rejoined, nil
		}
		return nil, false, err
	}
	res := result.(*joinResult)
	return res.mapping, res.rejoined, nil
}

// joinOnce performs the capacity check, existence check, and mutation.
// Callers decide whether ctx carries a transaction.
func (s *Store) joinOnce(ctx context.Context, meetingID, userID primitive.ObjectID) (*joinResult, error) {
	var meeting models.Meeting
	if err := s.meetings.FindOne(ctx, bson.M{"_id": meetingID}).Decode(&meeting); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}

	accepted, err := s.c.CountDocuments(ctx, bson.M{
		"meeting": meetingID,
		"status":  models.MappingAccepted,
	})
	if err != nil {
		return nil, err
	}
	if accepted >= int64(meeting.Capacity) {
		return nil, ErrCapacityFull
	}

	var existing models.UserMeeting
	err = s.c.FindOne(ctx, bson.M{"user": userID, "meeting": meetingID}).Decode(&existing)
	switch {
	case err == nil:
		if existing.Status != models.MappingLeft {
			return nil, ErrAlreadyJoined
		}
		// Re-join path: flip the left mapping back to accepted with a
		// fresh join time. Never creates a second row for the pair.
		var updated models.UserMeeting
		err = s.c.FindOneAndUpdate(ctx,
			bson.M{"_id": existing.ID},
			bson.M{"$set": bson.M{
				"status":    models.MappingAccepted,
				"joined_at": time.Now().UTC(),
			}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err != nil {
			return nil, err
		}
		return &joinResult{mapping: &updated, rejoined: true}, nil

	case err == mongo.ErrNoDocuments:
		role := models.RoleParticipant
		if meeting.Organizer == userID {
			role = models.RoleOrganizer
		}
		mapping := models.UserMeeting{
			ID:       primitive.NewObjectID(),
			User:     userID,
			Meeting:  meetingID,
			Status:   models.MappingAccepted,
			Role:     role,
			JoinedAt: time.Now().UTC(),
		}
		if _, err := s.c.InsertOne(ctx, mapping); err != nil {
			if wafflemongo.IsDup(err) {
				// Lost a race with a concurrent join for the same pair.
				return nil, ErrAlreadyJoined
			}
			return nil, err
		}
		return &joinResult{mapping: &mapping}, nil

	default:
		return nil, err
	}
}

// InsertOrganizer creates the organizer's own accepted mapping. Called
// by meeting creation inside its transaction so the meeting and the
// mapping appear together or not at all.
func (s *Store) InsertOrganizer(ctx context.Context, meetingID, organizerID primitive.ObjectID) (models.UserMeeting, error) {
	mapping := models.UserMeeting{
		ID:       primitive.NewObjectID(),
		User:     organizerID,
		Meeting:  meetingID,
		Status:   models.MappingAccepted,
		Role:     models.RoleOrganizer,
		JoinedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, mapping); err != nil {
		return models.UserMeeting{}, err
	}
	return mapping, nil
}

// LeaveUpdate is the patch a participant may apply when leaving a
// meeting or submitting feedback.
type LeaveUpdate struct {
	Status   *string          `json:"status,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
	Feedback *models.Feedback `json:"feedback,omitempty"`
}

// Leave updates the user's mapping for a meeting. The default transition
// is status "left"; callers may specify another valid status. Feedback's
// submission timestamp is set only when a rating is present.
func (s *Store) Leave(ctx context.Context, meetingID, userID primitive.ObjectID, upd LeaveUpdate) (*models.UserMeeting, error) {
	status := models.MappingLeft
	if upd.Status != nil {
		status = *upd.Status
	}
	if !models.ValidMappingStatus(status) {
		return nil, ErrBadStatus
	}

	set := bson.M{"status": status}
	if upd.Notes != nil {
		set["notes"] = *upd.Notes
	}
	if upd.Feedback != nil {
		fb := *upd.Feedback
		if fb.Rating != nil {
			if *fb.Rating < 1 || *fb.Rating > 5 {
				return nil, ErrBadRating
			}
			now := time.Now().UTC()
			fb.SubmittedAt = &now
		}
		fb.Comment = htmlsanitize.Sanitize(fb.Comment)
		set["feedback"] = fb
	}

	var updated models.UserMeeting
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"user": userID, "meeting": meetingID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	return &updated, nil
}

// ListByUser returns all of a user's mappings, newest join first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.UserMeeting, error) {
	cur, err := s.c.Find(ctx, bson.M{"user": userID},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var mappings []models.UserMeeting
	if err := cur.All(ctx, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

// ListAcceptedByMeeting returns the accepted mappings for a meeting.
func (s *Store) ListAcceptedByMeeting(ctx context.Context, meetingID primitive.ObjectID) ([]models.UserMeeting, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"meeting": meetingID,
		"status":  models.MappingAccepted,
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var mappings []models.UserMeeting
	if err := cur.All(ctx, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

// CountAccepted returns the accepted-mapping count for a meeting.
func (s *Store) CountAccepted(ctx context.Context, meetingID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"meeting": meetingID,
		"status":  models.MappingAccepted,
	})
}

// Stats returns mapping counts for a meeting grouped by status.
func (s *Store) Stats(ctx context.Context, meetingID primitive.ObjectID) (models.MeetingStats, error) {
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"meeting": meetingID}},
		{"$group": bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return models.MeetingStats{}, err
	}
	defer cur.Close(ctx)

	var stats models.MeetingStats
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return models.MeetingStats{}, err
		}
		stats.Total += row.N
		switch row.Status {
		case models.MappingAccepted:
			stats.Accepted = row.N
		case models.MappingPending:
			stats.Pending = row.N
		case models.MappingRejected:
			stats.Rejected = row.N
		case models.MappingLeft:
			stats.Left = row.N
		}
	}
	return stats, cur.Err()
}

// DeleteByMeeting removes all mappings for a meeting. Returns the number
// of documents deleted. Used by the meeting cascade delete.
func (s *Store) DeleteByMeeting(ctx context.Context, meetingID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"meeting": meetingID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteAllForOrganizer removes every mapping for a meeting, permitted
// only to the meeting's organizer. Returns the number deleted.
func (s *Store) DeleteAllForOrganizer(ctx context.Context, meetingID, requesterID primitive.ObjectID) (int64, error) {
	var meeting models.Meeting
	if err := s.meetings.FindOne(ctx, bson.M{"_id": meetingID}).Decode(&meeting); err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, ErrMeetingNotFound
		}
		return 0, err
	}
	if meeting.Organizer != requesterID {
		return 0, ErrNotOrganizer
	}
	return s.DeleteByMeeting(ctx, meetingID)
}

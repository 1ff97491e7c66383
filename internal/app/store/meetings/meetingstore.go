// internal/app/store/meetings/meetingstore.go
package meetingstore

import (
	"context"
	"errors"
	"strings"
	"time"

	usermeetingstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/usermeetings"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/htmlsanitize"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/paging"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/txn"
	"github.com/knowledgeconnect/knowledgeconnect/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c        *mongo.Collection
	client   *mongo.Client
	mappings *usermeetingstore.Store
}

func New(db *mongo.Database, mappings *usermeetingstore.Store) *Store {
	return &Store{
		c:        db.Collection("meetings"),
		client:   db.Client(),
		mappings: mappings,
	}
}

var (
	// ErrMeetingNotFound covers both a genuinely missing meeting and an
	// organizer-scoped operation by someone else; callers cannot tell
	// the two apart, which keeps meeting ownership unenumerable.
	ErrMeetingNotFound = errors.New("meeting not found")
	// ErrBadStatus is returned for a status outside the defined enum.
	ErrBadStatus = errors.New(`status must be "scheduled"|"in-progress"|"completed"|"cancelled"`)
	// ErrMissingFields is returned when a required meeting field is blank.
	ErrMissingFields = errors.New("title, description, topic, and scheduled time are required")
	// ErrBadMode is returned for a mode outside the defined enum.
	ErrBadMode = errors.New(`mode must be "online" or "offline"`)
	// ErrBadCapacity is returned for a non-positive capacity.
	ErrBadCapacity = errors.New("capacity must be a positive number")
)

// Create inserts the meeting together with the organizer's own accepted
// mapping. Both writes run in one transaction when the deployment
// supports it; otherwise sequentially with a compensating delete of the
// meeting if the mapping insert fails, so a reader observes both or
// neither.
func (s *Store) Create(ctx context.Context, m *models.Meeting) error {
	m.Title = strings.TrimSpace(m.Title)
	m.Description = htmlsanitize.Sanitize(m.Description)
	if m.Title == "" || m.Description == "" || m.Topic.IsZero() || m.ScheduledTime.IsZero() {
		return ErrMissingFields
	}
	if m.Mode == "" {
		m.Mode = models.ModeOnline
	}
	if !models.ValidMeetingMode(m.Mode) {
		return ErrBadMode
	}
	if m.Status == "" {
		m.Status = models.StatusScheduled
	}
	if !models.ValidMeetingStatus(m.Status) {
		return ErrBadStatus
	}
	if m.Capacity <= 0 {
		m.Capacity = models.DefaultCapacity
	}

	now := time.Now().UTC()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := txn.Run(ctx, s.client, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.c.InsertOne(sc, m); err != nil {
			return nil, err
		}
		if _, err := s.mappings.InsertOrganizer(sc, m.ID, m.Organizer); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}
	if !txn.IsNotSupported(err) {
		return err
	}

	// Standalone fallback: sequential writes with a compensating delete.
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return err
	}
	if _, err := s.mappings.InsertOrganizer(ctx, m.ID, m.Organizer); err != nil {
		_, _ = s.c.DeleteOne(ctx, bson.M{"_id": m.ID})
		return err
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Meeting, error) {
	var m models.Meeting
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	return &m, nil
}

// List returns meetings sorted by scheduled time, soonest first,
// within the given window. A zero-limit window returns everything.
func (s *Store) List(ctx context.Context, pg paging.Window) ([]models.Meeting, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_time", Value: 1}})
	if pg.Limit > 0 {
		opts.SetSkip(pg.Skip).SetLimit(pg.Limit)
	}
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var meetings []models.Meeting
	if err := cur.All(ctx, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

// RefsByIDs loads the display subset for a batch of meeting IDs, keyed by ID.
func (s *Store) RefsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.MeetingRef, error) {
	result := make(map[primitive.ObjectID]models.MeetingRef, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var ref models.MeetingRef
		if err := cur.Decode(&ref); err != nil {
			return nil, err
		}
		result[ref.ID] = ref
	}
	return result, cur.Err()
}

// MeetingUpdate is the allow-listed patch an organizer may apply.
// Fields absent from the request body stay untouched.
type MeetingUpdate struct {
	Title         *string    `json:"title,omitempty"`
	Subtitle      *string    `json:"subtitle,omitempty"`
	Description   *string    `json:"description,omitempty"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
	Duration      *int       `json:"duration,omitempty"`
	Location      *string    `json:"location,omitempty"`
	MeetingLink   *string    `json:"meetingLink,omitempty"`
	Status        *string    `json:"status,omitempty"`
	Capacity      *int       `json:"capacity,omitempty"`
	Mode          *string    `json:"mode,omitempty"`
}

// Update applies upd to the meeting, scoped to its organizer. A miss on
// the {_id, organizer} filter reports ErrMeetingNotFound.
func (s *Store) Update(ctx context.Context, id, organizerID primitive.ObjectID, upd MeetingUpdate) (*models.Meeting, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		t := strings.TrimSpace(*upd.Title)
		if t == "" {
			return nil, ErrMissingFields
		}
		set["title"] = t
	}
	if upd.Subtitle != nil {
		set["subtitle"] = strings.TrimSpace(*upd.Subtitle)
	}
	if upd.Description != nil {
		set["description"] = htmlsanitize.Sanitize(*upd.Description)
	}
	if upd.ScheduledTime != nil {
		set["scheduled_time"] = upd.ScheduledTime.UTC()
	}
	if upd.Duration != nil {
		set["duration"] = *upd.Duration
	}
	if upd.Location != nil {
		set["location"] = strings.TrimSpace(*upd.Location)
	}
	if upd.MeetingLink != nil {
		set["meeting_link"] = strings.TrimSpace(*upd.MeetingLink)
	}
	if upd.Status != nil {
		if !models.ValidMeetingStatus(*upd.Status) {
			return nil, ErrBadStatus
		}
		set["status"] = *upd.Status
	}
	if upd.Capacity != nil {
		if *upd.Capacity <= 0 {
			return nil, ErrBadCapacity
		}
		set["capacity"] = *upd.Capacity
	}
	if upd.Mode != nil {
		if !models.ValidMeetingMode(*upd.Mode) {
			return nil, ErrBadMode
		}
		set["mode"] = *upd.Mode
	}

	var updated models.Meeting
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "organizer": organizerID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	return &updated, nil
}

// UpdateStatus moves the meeting through its lifecycle, organizer-only.
func (s *Store) UpdateStatus(ctx context.Context, id, organizerID primitive.ObjectID, status string) (*models.Meeting, error) {
	if !models.ValidMeetingStatus(status) {
		return nil, ErrBadStatus
	}
	var updated models.Meeting
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "organizer": organizerID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	return &updated, nil
}

// CompleteElapsed marks scheduled and in-progress meetings whose end
// time (scheduled_time + duration minutes) has passed as completed.
// Returns the number of meetings moved.
func (s *Store) CompleteElapsed(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"status": bson.M{"$in": bson.A{models.StatusScheduled, models.StatusInProgress}},
			"$expr": bson.M{"$lt": bson.A{
				bson.M{"$add": bson.A{"$scheduled_time", bson.M{"$multiply": bson.A{"$duration", 60000}}}},
				now,
			}},
		},
		bson.M{"$set": bson.M{"status": models.StatusCompleted, "updated_at": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete removes the meeting and every mapping that references it so no
// mapping can outlive its meeting. Transactional where supported, with a
// sequential fallback.
func (s *Store) Delete(ctx context.Context, id, organizerID primitive.ObjectID) error {
	filter := bson.M{"_id": id, "organizer": organizerID}

	_, err := txn.Run(ctx, s.client, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := s.c.DeleteOne(sc, filter)
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, ErrMeetingNotFound
		}
		if _, err := s.mappings.DeleteByMeeting(sc, id); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}
	if !txn.IsNotSupported(err) {
		return err
	}

	res, err := s.c.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrMeetingNotFound
	}
	_, err = s.mappings.DeleteByMeeting(ctx, id)
	return err
}

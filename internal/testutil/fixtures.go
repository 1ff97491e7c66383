package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/knowledgeconnect/knowledgeconnect/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given name and email. The
// password hash is a fixed placeholder; use the user store when the
// test actually needs to authenticate.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:            primitive.NewObjectID(),
		FullName:      fullName,
		FullNameCI:    text.Fold(fullName),
		Email:         email,
		PasswordHash:  "x",
		InstituteName: "Test Institute",
		Country:       "Testland",
		Location:      "Test City",
		Qualification: "BS",
		Course:        "Computer Science",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTopic creates a test topic owned by creatorID, with the creator
// as its first participant.
func (f *Fixtures) CreateTopic(ctx context.Context, title string, creatorID primitive.ObjectID) models.Topic {
	f.t.Helper()

	now := time.Now().UTC()
	topic := models.Topic{
		ID:           primitive.NewObjectID(),
		Title:        title,
		TitleCI:      text.Fold(title),
		Description:  "Test topic description",
		Category:     "general",
		CreatedBy:    creatorID,
		Participants: []primitive.ObjectID{creatorID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("topics").InsertOne(ctx, topic); err != nil {
		f.t.Fatalf("failed to create test topic: %v", err)
	}
	return topic
}

// CreateMeeting creates a scheduled meeting for the given topic and
// organizer with the given capacity. It writes the meeting document
// only; tests that need the organizer's mapping create it explicitly or
// go through the meeting store.
func (f *Fixtures) CreateMeeting(ctx context.Context, topicID, organizerID primitive.ObjectID, capacity int) models.Meeting {
	f.t.Helper()

	now := time.Now().UTC()
	meeting := models.Meeting{
		ID:            primitive.NewObjectID(),
		Title:         "Test Meeting",
		Description:   "Test meeting description",
		Topic:         topicID,
		Organizer:     organizerID,
		ScheduledTime: now.Add(24 * time.Hour),
		Duration:      60,
		Capacity:      capacity,
		Mode:          models.ModeOnline,
		Status:        models.StatusScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.db.Collection("meetings").InsertOne(ctx, meeting); err != nil {
		f.t.Fatalf("failed to create test meeting: %v", err)
	}
	return meeting
}

// CreateMapping creates a user-meeting mapping with the given status and role.
func (f *Fixtures) CreateMapping(ctx context.Context, userID, meetingID primitive.ObjectID, status, role string) models.UserMeeting {
	f.t.Helper()

	mapping := models.UserMeeting{
		ID:       primitive.NewObjectID(),
		User:     userID,
		Meeting:  meetingID,
		Status:   status,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}

	if _, err := f.db.Collection("user_meetings").InsertOne(ctx, mapping); err != nil {
		f.t.Fatalf("failed to create test mapping: %v", err)
	}
	return mapping
}

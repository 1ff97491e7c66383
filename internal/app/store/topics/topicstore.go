package topicstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/htmlsanitize"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/normalize"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/paging"
	"github.com/knowledgeconnect/knowledgeconnect/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("topics")}
}

var (
	// ErrNotOwner is returned when someone other than the creator tries
	// to mutate or delete a topic.
	ErrNotOwner = errors.New("not authorized to modify this topic")
	// ErrAlreadyParticipant is returned when joining a topic twice.
	ErrAlreadyParticipant = errors.New("already joined this topic")

	// ErrMissingTitle is returned when a topic title is blank after trimming.
	ErrMissingTitle = errors.New("title is required")
)

// Create inserts a topic. The creator is always its first participant.
func (s *Store) Create(ctx context.Context, t models.Topic) (models.Topic, error) {
	t.Title = normalize.Name(t.Title)
	if t.Title == "" {
		return models.Topic{}, ErrMissingTitle
	}

	t.ID = primitive.NewObjectID()
	t.TitleCI = text.Fold(t.Title)
	t.Description = htmlsanitize.Sanitize(t.Description)
	t.Participants = []primitive.ObjectID{t.CreatedBy}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Topic{}, err
	}
	return t, nil
}

// GetByID loads a topic by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Topic, error) {
	var t models.Topic
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Exists reports whether a topic with the given ID exists.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns topics, newest first, within the given window. A
// zero-limit window returns everything.
func (s *Store) List(ctx context.Context, pg paging.Window) ([]models.Topic, error) {
	return s.find(ctx, bson.M{}, pg)
}

// ListForUser returns topics the user created or participates in,
// newest first.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Topic, error) {
	return s.find(ctx, bson.M{"$or": []bson.M{
		{"created_by": userID},
		{"participants": userID},
	}}, paging.All)
}

func (s *Store) find(ctx context.Context, filter bson.M, pg paging.Window) ([]models.Topic, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if pg.Limit > 0 {
		opts.SetSkip(pg.Skip).SetLimit(pg.Limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var topics []models.Topic
	if err := cur.All(ctx, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// TopicUpdate holds the fields a creator may change on their topic.
type TopicUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// Update applies a patch, creator-only. Returns the updated topic.
func (s *Store) Update(ctx context.Context, id, requesterID primitive.ObjectID, upd TopicUpdate) (*models.Topic, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.CreatedBy != requesterID {
		return nil, ErrNotOwner
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		title := normalize.Name(*upd.Title)
		if title == "" {
			return nil, ErrMissingTitle
		}
		set["title"] = title
		set["title_ci"] = text.Fold(title)
	}
	if upd.Description != nil {
		set["description"] = htmlsanitize.Sanitize(*upd.Description)
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Tags != nil {
		set["tags"] = *upd.Tags
	}

	var updated models.Topic
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a topic, creator-only.
func (s *Store) Delete(ctx context.Context, id, requesterID primitive.ObjectID) error {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.CreatedBy != requesterID {
		return ErrNotOwner
	}
	_, err = s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Join appends the user to the topic's participants. Participation is
// append-only with no capacity limit; $addToSet keeps the set semantics
// even under concurrent joins.
func (s *Store) Join(ctx context.Context, id, userID primitive.ObjectID) (*models.Topic, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range t.Participants {
		if p == userID {
			return nil, ErrAlreadyParticipant
		}
	}

	var updated models.Topic
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$addToSet": bson.M{"participants": userID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

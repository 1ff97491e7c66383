// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureTopics(ctx, db); err != nil {
		problems = append(problems, "topics: "+err.Error())
	}
	if err := ensureMeetings(ctx, db); err != nil {
		problems = append(problems, "meetings: "+err.Error())
	}
	if err := ensureUserMeetings(ctx, db); err != nil {
		problems = append(problems, "user_meetings: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	// Load existing indexes once; the set per collection is small.
	existing := map[string]existingIndex{} // sig -> index
	if cur, err := coll.Indexes().List(ctx); err == nil {
		for cur.Next(ctx) {
			var idx existingIndex
			if err := cur.Decode(&idx); err != nil {
				zap.L().Warn("failed to decode existing index",
					zap.String("collection", coll.Name()),
					zap.Error(err))
				continue
			}
			existing[keySig(idx.Key)] = idx
		}
		cur.Close(ctx)
	}

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[desiredSig]; ok {
			if sameBoolPtr(desiredUnique, ex.Unique) {
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig))
				continue
			}

			// Options mismatch (e.g., upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), desiredName, desiredSig))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			}
			continue
		}

		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                             */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Email must be unique across all users (stored lowercase).
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
	})
}

func ensureTopics(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("topics")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// "my topics" queries: created by me or I am a participant.
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}},
			Options: options.Index().SetName("idx_topics_created_by"),
		},
		{
			Keys:    bson.D{{Key: "participants", Value: 1}},
			Options: options.Index().SetName("idx_topics_participants"),
		},
	})
}

func ensureMeetings(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("meetings")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Organizer-scoped mutations filter on {_id, organizer}; list views
		// sort on scheduled_time.
		{
			Keys:    bson.D{{Key: "organizer", Value: 1}},
			Options: options.Index().SetName("idx_meetings_organizer"),
		},
		{
			Keys:    bson.D{{Key: "scheduled_time", Value: 1}},
			Options: options.Index().SetName("idx_meetings_scheduled_time"),
		},
		{
			Keys:    bson.D{{Key: "topic", Value: 1}},
			Options: options.Index().SetName("idx_meetings_topic"),
		},
	})
}

func ensureUserMeetings(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("user_meetings")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Exactly one mapping per (user, meeting). Join idempotency and the
		// non-transactional fallback both lean on this.
		{
			Keys: bson.D{
				{Key: "user", Value: 1},
				{Key: "meeting", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_user_meetings_user_meeting"),
		},

		// Capacity counts and participant lists filter {meeting, status}.
		{
			Keys: bson.D{
				{Key: "meeting", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("idx_user_meetings_meeting_status"),
		},

		// "my meetings" listing, newest join first.
		{
			Keys: bson.D{
				{Key: "user", Value: 1},
				{Key: "joined_at", Value: -1},
			},
			Options: options.Index().SetName("idx_user_meetings_user_joined_at"),
		},
	})
}

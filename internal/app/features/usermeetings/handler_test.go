package usermeetings_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/knowledgeconnect/knowledgeconnect/internal/app/features/usermeetings"
	"github.com/knowledgeconnect/knowledgeconnect/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*usermeetings.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return usermeetings.NewHandler(db, zap.NewNop()), db
}

func TestHandleJoin(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	joiner := fixtures.CreateUser(ctx, "Joiner", "joiner@example.com")
	topic := fixtures.CreateTopic(ctx, "Distributed Systems", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)

	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("POST", "/api/user-meetings/join/"+meeting.ID.Hex(), testutil.UserFor(joiner)),
		"meetingID", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleJoin(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"status":"accepted"`)
	rec.AssertContains(t, `"role":"participant"`)
	rec.AssertContains(t, meeting.Title)
}

func TestHandleJoin_Unauthenticated(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := testutil.WithChiURLParam(
		testutil.NewRequest("POST", "/api/user-meetings/join/000000000000000000000000"),
		"meetingID", "000000000000000000000000")
	rec := testutil.NewRecorder()
	handler.HandleJoin(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestHandleJoin_UnknownMeeting(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateUser(ctx, "Lost", "lost@example.com")

	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("POST", "/api/user-meetings/join/ffffffffffffffffffffffff", testutil.UserFor(user)),
		"meetingID", "ffffffffffffffffffffffff")
	rec := testutil.NewRecorder()
	handler.HandleJoin(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleJoin_Duplicate(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	joiner := fixtures.CreateUser(ctx, "Joiner", "joiner@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)

	join := func() *testutil.ResponseRecorder {
		req := testutil.WithChiURLParam(
			testutil.NewAuthenticatedRequest("POST", "/api/user-meetings/join/"+meeting.ID.Hex(), testutil.UserFor(joiner)),
			"meetingID", meeting.ID.Hex())
		rec := testutil.NewRecorder()
		handler.HandleJoin(rec.ResponseRecorder, req)
		return rec
	}

	join().AssertStatus(t, http.StatusCreated)

	rec := join()
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "already joined")
}

func TestHandleJoin_RejoinAfterLeave(t *testing.T) {
	// A first join creates the mapping (201); joining again after leaving
	// revives the same mapping and answers 200.
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	joiner := fixtures.CreateUser(ctx, "Joiner", "joiner@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)

	join := func() *testutil.ResponseRecorder {
		req := testutil.WithChiURLParam(
			testutil.NewAuthenticatedRequest("POST", "/api/user-meetings/join/"+meeting.ID.Hex(), testutil.UserFor(joiner)),
			"meetingID", meeting.ID.Hex())
		rec := testutil.NewRecorder()
		handler.HandleJoin(rec.ResponseRecorder, req)
		return rec
	}

	join().AssertStatus(t, http.StatusCreated)

	leaveReq := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("PATCH", "/api/user-meetings/leave/"+meeting.ID.Hex(), testutil.UserFor(joiner)),
		"meetingID", meeting.ID.Hex())
	leaveRec := testutil.NewRecorder()
	handler.HandleLeave(leaveRec.ResponseRecorder, leaveReq)
	leaveRec.AssertStatus(t, http.StatusOK)

	rec := join()
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"accepted"`)
}

func TestHandleJoin_CapacityFull(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 1)
	fixtures.CreateMapping(ctx, organizer.ID, meeting.ID, "accepted", "organizer")

	late := fixtures.CreateUser(ctx, "Late", "late@example.com")
	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("POST", "/api/user-meetings/join/"+meeting.ID.Hex(), testutil.UserFor(late)),
		"meetingID", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleJoin(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "maximum participants")
}

func TestHandleLeave(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	joiner := fixtures.CreateUser(ctx, "Joiner", "joiner@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)
	fixtures.CreateMapping(ctx, joiner.ID, meeting.ID, "accepted", "participant")

	req := testutil.WithChiURLParam(
		testutil.WithUser(testutil.NewJSONRequest("PATCH", "/api/user-meetings/leave/"+meeting.ID.Hex(),
			`{"feedback":{"rating":4,"comment":"Great discussion"}}`), testutil.UserFor(joiner)),
		"meetingID", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleLeave(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"left"`)
	rec.AssertContains(t, "Great discussion")
}

func TestHandleLeave_NoBody(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	joiner := fixtures.CreateUser(ctx, "Joiner", "joiner@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)
	fixtures.CreateMapping(ctx, joiner.ID, meeting.ID, "accepted", "participant")

	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("PATCH", "/api/user-meetings/leave/"+meeting.ID.Hex(), testutil.UserFor(joiner)),
		"meetingID", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleLeave(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"left"`)
}

func TestHandleLeave_NotJoined(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	outsider := fixtures.CreateUser(ctx, "Outsider", "out@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)

	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("PATCH", "/api/user-meetings/leave/"+meeting.ID.Hex(), testutil.UserFor(outsider)),
		"meetingID", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleLeave(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleLeave_BadRating(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	joiner := fixtures.CreateUser(ctx, "Joiner", "joiner@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)
	fixtures.CreateMapping(ctx, joiner.ID, meeting.ID, "accepted", "participant")

	req := testutil.WithChiURLParam(
		testutil.WithUser(testutil.NewJSONRequest("PATCH", "/api/user-meetings/leave/"+meeting.ID.Hex(),
			`{"feedback":{"rating":9}}`), testutil.UserFor(joiner)),
		"meetingID", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleLeave(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeUserMeetings(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	joiner := fixtures.CreateUser(ctx, "Joiner", "joiner@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	first := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)
	second := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)
	fixtures.CreateMapping(ctx, joiner.ID, first.ID, "accepted", "participant")
	fixtures.CreateMapping(ctx, joiner.ID, second.ID, "left", "participant")

	req := testutil.NewAuthenticatedRequest("GET", "/api/user-meetings/user", testutil.UserFor(joiner))
	rec := testutil.NewRecorder()
	handler.ServeUserMeetings(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)

	var views []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(views))
	}
	if views[0]["meetingRef"] == nil {
		t.Error("expected mappings to carry a resolved meeting summary")
	}
}

func TestServeStats(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	a := fixtures.CreateUser(ctx, "A", "a@example.com")
	b := fixtures.CreateUser(ctx, "B", "b@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)
	fixtures.CreateMapping(ctx, organizer.ID, meeting.ID, "accepted", "organizer")
	fixtures.CreateMapping(ctx, a.ID, meeting.ID, "accepted", "participant")
	fixtures.CreateMapping(ctx, b.ID, meeting.ID, "left", "participant")

	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("GET", "/api/user-meetings/meetings/"+meeting.ID.Hex()+"/stats", testutil.UserFor(organizer)),
		"meetingID", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.ServeStats(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)

	var stats struct {
		Accepted int64 `json:"accepted"`
		Left     int64 `json:"left"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if stats.Accepted != 2 || stats.Left != 1 {
		t.Errorf("stats: got accepted=%d left=%d, want 2/1", stats.Accepted, stats.Left)
	}
}

func TestServeCount(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 7)
	fixtures.CreateMapping(ctx, organizer.ID, meeting.ID, "accepted", "organizer")

	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("GET", "/api/user-meetings/meetings/"+meeting.ID.Hex()+"/count", testutil.UserFor(organizer)),
		"meetingID", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.ServeCount(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"count":1`)
	rec.AssertContains(t, `"capacity":7`)
}

func TestHandleDeleteAll(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	joiner := fixtures.CreateUser(ctx, "Joiner", "joiner@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)
	fixtures.CreateMapping(ctx, organizer.ID, meeting.ID, "accepted", "organizer")
	fixtures.CreateMapping(ctx, joiner.ID, meeting.ID, "accepted", "participant")

	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("DELETE", "/api/user-meetings/meeting/"+meeting.ID.Hex()+"/all", testutil.UserFor(organizer)),
		"meetingID", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleDeleteAll(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"deleted":2`)
}

func TestHandleDeleteAll_NotOrganizer(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	joiner := fixtures.CreateUser(ctx, "Joiner", "joiner@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)
	fixtures.CreateMapping(ctx, joiner.ID, meeting.ID, "accepted", "participant")

	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("DELETE", "/api/user-meetings/meeting/"+meeting.ID.Hex()+"/all", testutil.UserFor(joiner)),
		"meetingID", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleDeleteAll(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusForbidden)
}

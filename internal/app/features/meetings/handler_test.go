package meetings_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/knowledgeconnect/knowledgeconnect/internal/app/features/meetings"
	"github.com/knowledgeconnect/knowledgeconnect/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*meetings.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return meetings.NewHandler(db, "https://meet.test.local", zap.NewNop()), db
}

func TestHandleCreate(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	topic := fixtures.CreateTopic(ctx, "Compilers", organizer.ID)

	body := fmt.Sprintf(`{
		"title": "Parsing study group",
		"description": "Recursive descent from scratch",
		"topic": %q,
		"scheduledTime": %q,
		"duration": 90,
		"capacity": 8
	}`, topic.ID.Hex(), time.Now().Add(48*time.Hour).UTC().Format(time.RFC3339))

	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/api/meetings", body), testutil.UserFor(organizer))
	rec := testutil.NewRecorder()
	handler.HandleCreate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"status":"scheduled"`)
	rec.AssertContains(t, `"mode":"online"`)

	// An online meeting without a link gets a generated one.
	var created struct {
		ID          string `json:"id"`
		MeetingLink string `json:"meetingLink"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !strings.HasPrefix(created.MeetingLink, "https://meet.test.local/join/") {
		t.Errorf("meeting link: got %q", created.MeetingLink)
	}

	// The organizer's mapping is created alongside the meeting.
	n, err := db.Collection("user_meetings").CountDocuments(ctx, map[string]any{"role": "organizer"})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 1 {
		t.Errorf("organizer mappings: got %d, want 1", n)
	}
}

func TestHandleCreate_InvalidTopicID(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateUser(ctx, "User", "user@example.com")

	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/api/meetings",
		`{"title":"X","description":"Y","topic":"not-an-id","scheduledTime":"2030-01-01T10:00:00Z"}`),
		testutil.UserFor(user))
	rec := testutil.NewRecorder()
	handler.HandleCreate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "invalid topic id")
}

func TestHandleCreate_UnknownTopic(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateUser(ctx, "User", "user@example.com")

	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/api/meetings",
		`{"title":"X","description":"Y","topic":"ffffffffffffffffffffffff","scheduledTime":"2030-01-01T10:00:00Z"}`),
		testutil.UserFor(user))
	rec := testutil.NewRecorder()
	handler.HandleCreate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, "topic not found")
}

func TestHandleCreate_MissingFields(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateUser(ctx, "User", "user@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", user.ID)

	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/api/meetings",
		fmt.Sprintf(`{"topic":%q}`, topic.ID.Hex())), testutil.UserFor(user))
	rec := testutil.NewRecorder()
	handler.HandleCreate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeList(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)
	fixtures.CreateMapping(ctx, organizer.ID, meeting.ID, "accepted", "organizer")

	req := testutil.NewAuthenticatedRequest("GET", "/api/meetings", testutil.UserFor(organizer))
	rec := testutil.NewRecorder()
	handler.ServeList(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"participantCount":1`)
}

func TestServeMeeting(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	topic := fixtures.CreateTopic(ctx, "Graph Theory", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)
	fixtures.CreateMapping(ctx, organizer.ID, meeting.ID, "accepted", "organizer")

	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("GET", "/api/meetings/"+meeting.ID.Hex(), testutil.UserFor(organizer)),
		"id", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.ServeMeeting(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Graph Theory")
	rec.AssertContains(t, "org@example.com")
	rec.AssertContains(t, `"participantCount":1`)
}

func TestServeMeeting_NotFound(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateUser(ctx, "User", "user@example.com")

	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("GET", "/api/meetings/ffffffffffffffffffffffff", testutil.UserFor(user)),
		"id", "ffffffffffffffffffffffff")
	rec := testutil.NewRecorder()
	handler.ServeMeeting(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleUpdate(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)

	req := testutil.WithChiURLParam(
		testutil.WithUser(testutil.NewJSONRequest("PUT", "/api/meetings/"+meeting.ID.Hex(),
			`{"title":"Renamed session","capacity":12}`), testutil.UserFor(organizer)),
		"id", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleUpdate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Renamed session")
	rec.AssertContains(t, `"capacity":12`)
}

func TestHandleUpdate_Status(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)

	// status is part of the PUT allow-list, same as on the dedicated
	// status route.
	req := testutil.WithChiURLParam(
		testutil.WithUser(testutil.NewJSONRequest("PUT", "/api/meetings/"+meeting.ID.Hex(),
			`{"status":"cancelled"}`), testutil.UserFor(organizer)),
		"id", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleUpdate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"cancelled"`)
}

func TestHandleUpdate_UnknownField(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)

	// The organizer field is not patchable; the request must be
	// rejected rather than silently ignored.
	req := testutil.WithChiURLParam(
		testutil.WithUser(testutil.NewJSONRequest("PUT", "/api/meetings/"+meeting.ID.Hex(),
			`{"organizer":"ffffffffffffffffffffffff"}`), testutil.UserFor(organizer)),
		"id", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleUpdate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleUpdate_NonOrganizer(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	intruder := fixtures.CreateUser(ctx, "Intruder", "intruder@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)

	req := testutil.WithChiURLParam(
		testutil.WithUser(testutil.NewJSONRequest("PUT", "/api/meetings/"+meeting.ID.Hex(),
			`{"title":"Hijacked"}`), testutil.UserFor(intruder)),
		"id", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleUpdate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleUpdateStatus(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)

	req := testutil.WithChiURLParam(
		testutil.WithUser(testutil.NewJSONRequest("PATCH", "/api/meetings/"+meeting.ID.Hex()+"/status",
			`{"status":"completed"}`), testutil.UserFor(organizer)),
		"id", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleUpdateStatus(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"completed"`)
}

func TestHandleUpdateStatus_BadStatus(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)

	req := testutil.WithChiURLParam(
		testutil.WithUser(testutil.NewJSONRequest("PATCH", "/api/meetings/"+meeting.ID.Hex()+"/status",
			`{"status":"postponed"}`), testutil.UserFor(organizer)),
		"id", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleUpdateStatus(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleDelete(t *testing.T) {
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
		testutil.NewAuthenticatedRequest("DELETE", "/api/meetings/"+meeting.ID.Hex(), testutil.UserFor(organizer)),
		"id", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleDelete(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)

	mappings, err := db.Collection("user_meetings").CountDocuments(ctx, map[string]any{"meeting": meeting.ID})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if mappings != 0 {
		t.Errorf("mappings after delete: got %d, want 0", mappings)
	}
}

func TestHandleDelete_NonOrganizer(t *testing.T) {
	handler, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := fixtures.CreateUser(ctx, "Organizer", "org@example.com")
	intruder := fixtures.CreateUser(ctx, "Intruder", "intruder@example.com")
	topic := fixtures.CreateTopic(ctx, "Topic", organizer.ID)
	meeting := fixtures.CreateMeeting(ctx, topic.ID, organizer.ID, 5)

	req := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest("DELETE", "/api/meetings/"+meeting.ID.Hex(), testutil.UserFor(intruder)),
		"id", meeting.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleDelete(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusNotFound)
}

// internal/app/features/meetings/handler.go
package meetings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	meetingstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/meetings"
	topicstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/topics"
	usermeetingstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/usermeetings"
	userstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/users"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/authz"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/httpjson"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/paging"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/timeouts"
	"github.com/knowledgeconnect/knowledgeconnect/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the meetings feature.
type Handler struct {
	Meetings *meetingstore.Store
	Mappings *usermeetingstore.Store
	Topics   *topicstore.Store
	Users    *userstore.Store
	BaseURL  string
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, baseURL string, logger *zap.Logger) *Handler {
	mappings := usermeetingstore.New(db)
	return &Handler{
		Meetings: meetingstore.New(db, mappings),
		Mappings: mappings,
		Topics:   topicstore.New(db),
		Users:    userstore.New(db),
		BaseURL:  baseURL,
		Log:      logger,
	}
}

func meetingIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid meeting id")
		return primitive.NilObjectID, false
	}
	return id, true
}

type createMeetingRequest struct {
	Title         string    `json:"title"`
	Subtitle      string    `json:"subtitle"`
	Description   string    `json:"description"`
	Topic         string    `json:"topic"`
	ScheduledTime time.Time `json:"scheduledTime"`
	Duration      int       `json:"duration"`
	Location      string    `json:"location"`
	MeetingLink   string    `json:"meetingLink"`
	Capacity      int       `json:"capacity"`
	Mode          string    `json:"mode"`
}

// HandleCreate handles POST /api/meetings. The topic must be a
// well-formed ObjectID referencing an existing topic. Online meetings
// without a link get a generated one.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	topicID, err := primitive.ObjectIDFromHex(req.Topic)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid topic id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	exists, err := h.Topics.Exists(ctx, topicID)
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}
	if !exists {
		httpjson.Error(w, http.StatusNotFound, "topic not found")
		return
	}

	m := models.Meeting{
		Title:         req.Title,
		Subtitle:      req.Subtitle,
		Description:   req.Description,
		Topic:         topicID,
		Organizer:     userID,
		ScheduledTime: req.ScheduledTime,
		Duration:      req.Duration,
		Location:      req.Location,
		MeetingLink:   req.MeetingLink,
		Capacity:      req.Capacity,
		Mode:          req.Mode,
	}
	if (m.Mode == "" || m.Mode == models.ModeOnline) && m.MeetingLink == "" {
		m.MeetingLink = h.generateMeetingLink()
	}

	if err := h.Meetings.Create(ctx, &m); err != nil {
		if isMeetingValidation(err) {
			httpjson.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		httpjson.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("meeting created",
		zap.String("meeting_id", m.ID.Hex()),
		zap.String("organizer", userID.Hex()))
	httpjson.Write(w, http.StatusCreated, m)
}

// generateMeetingLink builds a join URL with a random slug.
func (h *Handler) generateMeetingLink() string {
	base := h.BaseURL
	if base == "" {
		base = "https://meet.knowledgeconnect.app"
	}
	return base + "/join/" + uuid.NewString()
}

// ServeList handles GET /api/meetings: all meetings with their accepted
// participant counts.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	meetings, err := h.Meetings.List(ctx, paging.FromRequest(r))
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}

	views := make([]meetingListView, 0, len(meetings))
	for i := range meetings {
		count, err := h.Mappings.CountAccepted(ctx, meetings[i].ID)
		if err != nil {
			httpjson.Internal(w, h.Log, err)
			return
		}
		views = append(views, meetingListView{
			Meeting:          meetings[i],
			ParticipantCount: count,
		})
	}
	httpjson.Write(w, http.StatusOK, views)
}

// ServeMeeting handles GET /api/meetings/{id}: the meeting with its
// topic, organizer, and accepted participants resolved for display.
func (h *Handler) ServeMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := meetingIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	m, err := h.Meetings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, meetingstore.ErrMeetingNotFound) {
			httpjson.Error(w, http.StatusNotFound, "meeting not found")
			return
		}
		httpjson.Internal(w, h.Log, err)
		return
	}

	view, err := h.buildDetailView(ctx, m)
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, view)
}

// HandleUpdate handles PUT /api/meetings/{id}, organizer-only. Unknown
// body fields are rejected.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := meetingIDParam(w, r)
	if !ok {
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var upd meetingstore.MeetingUpdate
	if err := dec.Decode(&upd); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid update: unrecognized or malformed fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Meetings.Update(ctx, id, userID, upd)
	if err != nil {
		switch {
		case errors.Is(err, meetingstore.ErrMeetingNotFound):
			httpjson.Error(w, http.StatusNotFound, "meeting not found")
		case isMeetingValidation(err):
			httpjson.Error(w, http.StatusBadRequest, err.Error())
		default:
			httpjson.Internal(w, h.Log, err)
		}
		return
	}
	httpjson.Write(w, http.StatusOK, m)
}

type statusRequest struct {
	Status string `json:"status"`
}

// HandleUpdateStatus handles PATCH /api/meetings/{id}/status, organizer-only.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := meetingIDParam(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Meetings.UpdateStatus(ctx, id, userID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, meetingstore.ErrBadStatus):
			httpjson.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, meetingstore.ErrMeetingNotFound):
			httpjson.Error(w, http.StatusNotFound, "meeting not found")
		default:
			httpjson.Internal(w, h.Log, err)
		}
		return
	}
	httpjson.Write(w, http.StatusOK, m)
}

// HandleDelete handles DELETE /api/meetings/{id}, organizer-only,
// cascading to the meeting's mappings.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := meetingIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Meetings.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, meetingstore.ErrMeetingNotFound) {
			httpjson.Error(w, http.StatusNotFound, "meeting not found")
			return
		}
		httpjson.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("meeting deleted",
		zap.String("meeting_id", id.Hex()),
		zap.String("organizer", userID.Hex()))
	httpjson.Write(w, http.StatusOK, map[string]string{"message": "meeting and its participant records deleted"})
}

// isMeetingValidation reports whether err is a field validation error
// from the meeting store, safe to echo to the client.
func isMeetingValidation(err error) bool {
	return errors.Is(err, meetingstore.ErrMissingFields) ||
		errors.Is(err, meetingstore.ErrBadMode) ||
		errors.Is(err, meetingstore.ErrBadCapacity) ||
		errors.Is(err, meetingstore.ErrBadStatus)
}

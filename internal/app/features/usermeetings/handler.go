// internal/app/features/usermeetings/handler.go
package usermeetings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	meetingstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/meetings"
	usermeetingstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/usermeetings"
	userstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/users"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/authz"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/httpjson"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the user-meetings
// feature: joining, leaving, and inspecting meeting participation.
type Handler struct {
	Mappings *usermeetingstore.Store
	Meetings *meetingstore.Store
	Users    *userstore.Store
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	mappings := usermeetingstore.New(db)
	return &Handler{
		Mappings: mappings,
		Meetings: meetingstore.New(db, mappings),
		Users:    userstore.New(db),
		Log:      logger,
	}
}

func meetingIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "meetingID"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid meeting id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// HandleJoin handles POST /api/user-meetings/join/{meetingID}.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	meetingID, ok := meetingIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	mapping, rejoined, err := h.Mappings.Join(ctx, meetingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, usermeetingstore.ErrMeetingNotFound):
			httpjson.Error(w, http.StatusNotFound, err.Error())
		case errors.Is(err, usermeetingstore.ErrCapacityFull),
			errors.Is(err, usermeetingstore.ErrAlreadyJoined):
			httpjson.Error(w, http.StatusBadRequest, err.Error())
		default:
			httpjson.Internal(w, h.Log, err)
		}
		return
	}

	h.Log.Info("meeting joined",
		zap.String("meeting_id", meetingID.Hex()),
		zap.String("user_id", userID.Hex()))

	view, err := h.resolveMapping(ctx, *mapping)
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}
	// A fresh mapping is a creation; reviving a left mapping is not.
	status := http.StatusCreated
	if rejoined {
		status = http.StatusOK
	}
	httpjson.Write(w, status, view)
}

// HandleLeave handles PATCH /api/user-meetings/leave/{meetingID}. The
// default transition is to "left"; the body may carry a different
// status, notes, and feedback. Unknown body fields are rejected.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	meetingID, ok := meetingIDParam(w, r)
	if !ok {
		return
	}

	var upd usermeetingstore.LeaveUpdate
	if r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&upd); err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid update: unrecognized or malformed fields")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	mapping, err := h.Mappings.Leave(ctx, meetingID, userID, upd)
	if err != nil {
		switch {
		case errors.Is(err, usermeetingstore.ErrMappingNotFound):
			httpjson.Error(w, http.StatusNotFound, err.Error())
		case isLeaveValidation(err):
			httpjson.Error(w, http.StatusBadRequest, err.Error())
		default:
			httpjson.Internal(w, h.Log, err)
		}
		return
	}
	httpjson.Write(w, http.StatusOK, mapping)
}

// ServeUserMeetings handles GET /api/user-meetings/user: all of the
// caller's mappings with the referenced meetings resolved.
func (h *Handler) ServeUserMeetings(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	mappings, err := h.Mappings.ListByUser(ctx, userID)
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}

	views, err := h.resolveMappings(ctx, mappings)
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, views)
}

// ServeMeetingParticipants handles GET /api/user-meetings/meeting/{meetingID}:
// the meeting's accepted mappings with their users resolved.
func (h *Handler) ServeMeetingParticipants(w http.ResponseWriter, r *http.Request) {
	meetingID, ok := meetingIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	mappings, err := h.Mappings.ListAcceptedByMeeting(ctx, meetingID)
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}

	views, err := h.resolveMappings(ctx, mappings)
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, views)
}

// ServeStats handles GET /api/user-meetings/meetings/{meetingID}/stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	meetingID, ok := meetingIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	stats, err := h.Mappings.Stats(ctx, meetingID)
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, stats)
}

// ServeCount handles GET /api/user-meetings/meetings/{meetingID}/count:
// the accepted participant count alongside the meeting's capacity.
func (h *Handler) ServeCount(w http.ResponseWriter, r *http.Request) {
	meetingID, ok := meetingIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	meeting, err := h.Meetings.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, meetingstore.ErrMeetingNotFound) {
			httpjson.Error(w, http.StatusNotFound, "meeting not found")
			return
		}
		httpjson.Internal(w, h.Log, err)
		return
	}

	count, err := h.Mappings.CountAccepted(ctx, meetingID)
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]int64{
		"count":    count,
		"capacity": int64(meeting.Capacity),
	})
}

// HandleDeleteAll handles DELETE /api/user-meetings/meeting/{meetingID}/all:
// removes every mapping for a meeting, organizer-only.
func (h *Handler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	meetingID, ok := meetingIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	deleted, err := h.Mappings.DeleteAllForOrganizer(ctx, meetingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, usermeetingstore.ErrMeetingNotFound):
			httpjson.Error(w, http.StatusNotFound, err.Error())
		case errors.Is(err, usermeetingstore.ErrNotOrganizer):
			httpjson.Error(w, http.StatusForbidden, err.Error())
		default:
			httpjson.Internal(w, h.Log, err)
		}
		return
	}

	h.Log.Info("meeting mappings cleared",
		zap.String("meeting_id", meetingID.Hex()),
		zap.Int64("deleted", deleted))
	httpjson.Write(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// isLeaveValidation reports whether err is a leave-payload validation
// error, safe to echo to the client.
func isLeaveValidation(err error) bool {
	return errors.Is(err, usermeetingstore.ErrBadStatus) ||
		errors.Is(err, usermeetingstore.ErrBadRating)
}

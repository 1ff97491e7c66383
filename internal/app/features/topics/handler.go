// internal/app/features/topics/handler.go
package topics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	topicstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/topics"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/authz"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/httpjson"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/paging"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/timeouts"
	"github.com/knowledgeconnect/knowledgeconnect/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the topics feature.
type Handler struct {
	Topics *topicstore.Store
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Topics: topicstore.New(db),
		Log:    logger,
	}
}

// topicIDParam parses the {id} URL parameter. On failure it writes the
// 400 itself and reports ok=false.
func topicIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid topic id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeList handles GET /api/topics.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	topics, err := h.Topics.List(ctx, paging.FromRequest(r))
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}
	if topics == nil {
		topics = []models.Topic{}
	}
	httpjson.Write(w, http.StatusOK, topics)
}

// ServeUserTopics handles GET /api/topics/user: topics the caller
// created or participates in.
func (h *Handler) ServeUserTopics(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	topics, err := h.Topics.ListForUser(ctx, userID)
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}
	if topics == nil {
		topics = []models.Topic{}
	}
	httpjson.Write(w, http.StatusOK, topics)
}

// ServeTopic handles GET /api/topics/{id}.
func (h *Handler) ServeTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := topicIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	topic, err := h.Topics.GetByID(ctx, id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			httpjson.Error(w, http.StatusNotFound, "topic not found")
			return
		}
		httpjson.Internal(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, topic)
}

type createTopicRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

// HandleCreate handles POST /api/topics.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Topics.Create(ctx, models.Topic{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		CreatedBy:   userID,
	})
	if err != nil {
		if errors.Is(err, topicstore.ErrMissingTitle) {
			httpjson.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		httpjson.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("topic created",
		zap.String("topic_id", created.ID.Hex()),
		zap.String("user_id", userID.Hex()))
	httpjson.Write(w, http.StatusCreated, created)
}

// HandleUpdate handles PATCH /api/topics/{id}, creator-only. Unknown
// body fields are rejected.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := topicIDParam(w, r)
	if !ok {
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var upd topicstore.TopicUpdate
	if err := dec.Decode(&upd); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid update: unrecognized or malformed fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	topic, err := h.Topics.Update(ctx, id, userID, upd)
	if err != nil {
		switch {
		case err == mongo.ErrNoDocuments:
			httpjson.Error(w, http.StatusNotFound, "topic not found")
		case errors.Is(err, topicstore.ErrNotOwner):
			httpjson.Error(w, http.StatusForbidden, err.Error())
		case errors.Is(err, topicstore.ErrMissingTitle):
			httpjson.Error(w, http.StatusBadRequest, err.Error())
		default:
			httpjson.Internal(w, h.Log, err)
		}
		return
	}
	httpjson.Write(w, http.StatusOK, topic)
}

// HandleDelete handles DELETE /api/topics/{id}, creator-only.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := topicIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Topics.Delete(ctx, id, userID); err != nil {
		switch {
		case err == mongo.ErrNoDocuments:
			httpjson.Error(w, http.StatusNotFound, "topic not found")
		case errors.Is(err, topicstore.ErrNotOwner):
			httpjson.Error(w, http.StatusForbidden, err.Error())
		default:
			httpjson.Internal(w, h.Log, err)
		}
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"message": "topic deleted"})
}

// HandleJoin handles POST /api/topics/{id}/join.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := topicIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	topic, err := h.Topics.Join(ctx, id, userID)
	if err != nil {
		switch {
		case err == mongo.ErrNoDocuments:
			httpjson.Error(w, http.StatusNotFound, "topic not found")
		case errors.Is(err, topicstore.ErrAlreadyParticipant):
			httpjson.Error(w, http.StatusBadRequest, err.Error())
		default:
			httpjson.Internal(w, h.Log, err)
		}
		return
	}
	httpjson.Write(w, http.StatusOK, topic)
}

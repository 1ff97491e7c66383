// internal/app/features/meetings/resolve.go
package meetings

// View assembly for meeting responses. Instead of embedding other
// documents, meetings hold ObjectIDs; these helpers batch-load the
// referenced users and topic so the API returns display-ready shapes.

import (
	"context"
	"time"

	"github.com/knowledgeconnect/knowledgeconnect/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// meetingListView is one row of the meeting list: the meeting plus how
// many accepted participants it has.
type meetingListView struct {
	models.Meeting
	ParticipantCount int64 `json:"participantCount"`
}

// meetingDetailView is the full single-meeting response.
type meetingDetailView struct {
	models.Meeting
	TopicRef         *models.TopicRef `json:"topicRef,omitempty"`
	OrganizerRef     *models.UserRef  `json:"organizerRef,omitempty"`
	Participants     []participant    `json:"participants"`
	ParticipantCount int64            `json:"participantCount"`
}

// participant pairs a resolved user with their mapping details.
type participant struct {
	models.UserRef
	Role     string `json:"role"`
	JoinedAt string `json:"joinedAt"`
}

func (h *Handler) buildDetailView(ctx context.Context, m *models.Meeting) (*meetingDetailView, error) {
	view := &meetingDetailView{
		Meeting:      *m,
		Participants: []participant{},
	}

	topic, err := h.Topics.GetByID(ctx, m.Topic)
	switch {
	case err == nil:
		view.TopicRef = &models.TopicRef{ID: topic.ID, Title: topic.Title}
	case err == mongo.ErrNoDocuments:
		// Topic deleted since the meeting was created; the meeting still
		// renders, just without the topic title.
	default:
		return nil, err
	}

	mappings, err := h.Mappings.ListAcceptedByMeeting(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	view.ParticipantCount = int64(len(mappings))

	ids := make([]primitive.ObjectID, 0, len(mappings)+1)
	for _, mp := range mappings {
		ids = append(ids, mp.User)
	}
	ids = append(ids, m.Organizer)

	refs, err := h.Users.RefsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	if ref, ok := refs[m.Organizer]; ok {
		view.OrganizerRef = &ref
	}
	for _, mp := range mappings {
		ref, ok := refs[mp.User]
		if !ok {
			// User account removed; skip rather than render a hole.
			continue
		}
		view.Participants = append(view.Participants, participant{
			UserRef:  ref,
			Role:     mp.Role,
			JoinedAt: mp.JoinedAt.UTC().Format(time.RFC3339),
		})
	}
	return view, nil
}

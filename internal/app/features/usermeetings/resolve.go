// internal/app/features/usermeetings/resolve.go
package usermeetings

// Mapping documents hold bare ObjectIDs; these helpers attach the user
// and meeting identity a client needs to render them.

import (
	"context"

	"github.com/knowledgeconnect/knowledgeconnect/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// mappingView is a mapping with its user and meeting resolved.
type mappingView struct {
	models.UserMeeting
	UserRef    *models.UserRef    `json:"userRef,omitempty"`
	MeetingRef *models.MeetingRef `json:"meetingRef,omitempty"`
}

func (h *Handler) resolveMapping(ctx context.Context, m models.UserMeeting) (mappingView, error) {
	views, err := h.resolveMappings(ctx, []models.UserMeeting{m})
	if err != nil {
		return mappingView{}, err
	}
	return views[0], nil
}

func (h *Handler) resolveMappings(ctx context.Context, mappings []models.UserMeeting) ([]mappingView, error) {
	views := make([]mappingView, 0, len(mappings))
	if len(mappings) == 0 {
		return views, nil
	}

	userIDs := make([]primitive.ObjectID, 0, len(mappings))
	meetingIDs := make([]primitive.ObjectID, 0, len(mappings))
	for _, m := range mappings {
		userIDs = append(userIDs, m.User)
		meetingIDs = append(meetingIDs, m.Meeting)
	}

	userRefs, err := h.Users.RefsByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	meetingRefs, err := h.Meetings.RefsByIDs(ctx, meetingIDs)
	if err != nil {
		return nil, err
	}

	for _, m := range mappings {
		v := mappingView{UserMeeting: m}
		if ref, ok := userRefs[m.User]; ok {
			v.UserRef = &ref
		}
		if ref, ok := meetingRefs[m.Meeting]; ok {
			v.MeetingRef = &ref
		}
		views = append(views, v)
	}
	return views, nil
}

package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// A factory to build an Event from the incoming DTO.
// The share id keys the public registration link, so keep it short.
func NewFromCreateRequest(req CreateEventRequest, organizationID, frontendURL string) Event {
	now := time.Now().UTC()
	shareID := NewShareID()

	return Event{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Mode:            req.Mode,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		Location:        req.Location,
		PosterURL:       req.PosterURL,
		CertTemplateURL: req.CertTemplateURL,
		SignatureURL:    req.SignatureURL,
		CustomFields:    req.CustomFields,

		ShareID:          shareID,
		RegistrationLink: RegistrationLink(frontendURL, shareID),

		OrganizationID: organizationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func NewShareID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func RegistrationLink(frontendURL, shareID string) string {
	return strings.TrimRight(frontendURL, "/") + "/register/" + shareID
}

package event

import (
	"errors"
	"time"
)

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Mode        string    `json:"mode"`
	StartAt     time.Time `json:"startAt"`
	EndAt       time.Time `json:"endAt"`
	Location    string    `json:"location,omitempty"`

	// asset references: either a path under the configured asset root
	// or a full http(s) URL. Empty means the event has none.
	PosterURL       string `json:"posterUrl,omitempty"`
	CertTemplateURL string `json:"certTemplateUrl,omitempty"`
	SignatureURL    string `json:"signatureUrl,omitempty"`

	CustomFields []CustomField `json:"customFields,omitempty"`

	ShareID          string `json:"shareId"`
	RegistrationLink string `json:"registrationLink"`

	// set only after a full-event certificate batch delivered to everyone
	CertificatesSent bool `json:"certificatesSent"`

	OrganizationID string    `json:"organizationId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// event-defined extra questions asked at registration time
type CustomField struct {
	Label    string `json:"label" binding:"required,min=1,max=120"`
	Type     string `json:"type" binding:"omitempty,oneof=text number email"`
	Required bool   `json:"required"`
}

type ListEventsFilter struct {
	Category *string
	Mode     *string
	Query    *string
}

var ErrNotFound = errors.New("event not found")

type CreateEventRequest struct {
	Title           string        `json:"title" binding:"required,min=3,max=120"`
	Description     string        `json:"description" binding:"omitempty,max=2000"`
	Category        string        `json:"category" binding:"omitempty,max=80"`
	Mode            string        `json:"mode" binding:"required,oneof=online offline hybrid"`
	StartAt         time.Time     `json:"startAt" binding:"required"`
	EndAt           time.Time     `json:"endAt" binding:"required"`
	Location        string        `json:"location" binding:"omitempty,max=200"`
	PosterURL       string        `json:"posterUrl" binding:"omitempty,max=500"`
	CertTemplateURL string        `json:"certTemplateUrl" binding:"omitempty,max=500"`
	SignatureURL    string        `json:"signatureUrl" binding:"omitempty,max=500"`
	CustomFields    []CustomField `json:"customFields" binding:"omitempty,dive"`
}

// a full update payload, might switch to a patch which optionally provides means for partial updates.
type UpdateEventRequest struct {
	Title           string        `json:"title" binding:"required,min=3,max=120"`
	Description     string        `json:"description" binding:"omitempty,max=2000"`
	Category        string        `json:"category" binding:"omitempty,max=80"`
	Mode            string        `json:"mode" binding:"required,oneof=online offline hybrid"`
	StartAt         time.Time     `json:"startAt" binding:"required"`
	EndAt           time.Time     `json:"endAt" binding:"required"`
	Location        string        `json:"location" binding:"omitempty,max=200"`
	PosterURL       string        `json:"posterUrl" binding:"omitempty,max=500"`
	CertTemplateURL string        `json:"certTemplateUrl" binding:"omitempty,max=500"`
	SignatureURL    string        `json:"signatureUrl" binding:"omitempty,max=500"`
	CustomFields    []CustomField `json:"customFields" binding:"omitempty,dive"`
}

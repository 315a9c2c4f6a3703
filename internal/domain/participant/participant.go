package participant

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Participant struct {
	ID      string `json:"id"`
	EventID string `json:"eventId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	// answers to the event's custom registration fields, keyed by label
	Answers   map[string]string `json:"answers,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// if this email is already registered for the event
var ErrAlreadyRegistered = errors.New("participant already registered")
var ErrNotFound = errors.New("participant not found")

type RegisterRequest struct {
	EventID string            `json:"-"`
	Name    string            `json:"name" binding:"required,min=2,max=120"`
	Email   string            `json:"email" binding:"required,email"`
	Answers map[string]string `json:"answers" binding:"omitempty"`
}

// A factory to build a Participant from the incoming DTO

func NewFromRegisterRequest(req RegisterRequest) Participant {
	now := time.Now().UTC()
	return Participant{
		ID:        uuid.NewString(),
		EventID:   req.EventID,
		Name:      req.Name,
		Email:     req.Email,
		Answers:   req.Answers,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

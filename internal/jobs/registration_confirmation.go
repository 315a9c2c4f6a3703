package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const TypeRegistrationConfirmation = "registration.confirmation"

// Keep the payload minimal and ID-based; the worker loads event details
// from the DB when it runs.
type RegistrationConfirmationPayload struct {
	ParticipantID string    `json:"participantId"`
	EventID       string    `json:"eventId"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	RequestedAt   time.Time `json:"requestedAt"`
}

func (p RegistrationConfirmationPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

// DecodeRegistrationConfirmation unmarshals and minimally validates the
// payload of a registration.confirmation job.
func DecodeRegistrationConfirmation(j Job) (RegistrationConfirmationPayload, error) {
	if j.Type != TypeRegistrationConfirmation {
		return RegistrationConfirmationPayload{}, ErrInvalidType
	}

	if len(j.Payload) == 0 {
		return RegistrationConfirmationPayload{}, ErrInvalidPayload
	}

	var p RegistrationConfirmationPayload

	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return RegistrationConfirmationPayload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if strings.TrimSpace(p.ParticipantID) == "" || strings.TrimSpace(p.EventID) == "" || strings.TrimSpace(p.Email) == "" {
		return RegistrationConfirmationPayload{}, ErrInvalidPayload
	}

	return p, nil
}

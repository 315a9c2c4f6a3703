package jobs

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDecodeRegistrationConfirmation_RoundTrip(t *testing.T) {
	payload := RegistrationConfirmationPayload{
		ParticipantID: "p-1",
		EventID:       "evt-1",
		Email:         "ada@example.com",
		Name:          "Ada Lovelace",
		RequestedAt:   time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}

	raw, err := payload.JSON()

	if err != nil {
		t.Fatalf("JSON error: %v", err)
	}

	j := New(CreateRequest{Type: TypeRegistrationConfirmation, Payload: raw})

	decoded, err := DecodeRegistrationConfirmation(j)

	if err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if decoded.ParticipantID != payload.ParticipantID || decoded.Email != payload.Email {
		t.Fatalf("decoded %+v", decoded)
	}
}

func TestDecodeRegistrationConfirmation_WrongType(t *testing.T) {
	j := New(CreateRequest{Type: "something.else", Payload: json.RawMessage(`{}`)})

	if _, err := DecodeRegistrationConfirmation(j); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestDecodeRegistrationConfirmation_BadPayload(t *testing.T) {
	cases := []json.RawMessage{
		nil,
		json.RawMessage(`{not json`),
		json.RawMessage(`{}`),
		json.RawMessage(`{"participantId":"p-1","eventId":"","email":"a@b.c"}`),
	}

	for _, raw := range cases {
		j := New(CreateRequest{Type: TypeRegistrationConfirmation, Payload: raw})

		if _, err := DecodeRegistrationConfirmation(j); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("payload %s: expected ErrInvalidPayload, got %v", raw, err)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	j := New(CreateRequest{Type: TypeRegistrationConfirmation})

	if j.Status != StatusPending {
		t.Fatalf("status = %s", j.Status)
	}

	if j.MaxAttempts != 5 {
		t.Fatalf("maxAttempts = %d", j.MaxAttempts)
	}

	if j.RunAt.IsZero() {
		t.Fatalf("runAt must default to now")
	}

	if j.ID == "" {
		t.Fatalf("id must be assigned")
	}
}

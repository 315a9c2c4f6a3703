package event

import (
	"strings"
	"testing"
	"time"
)

func TestNewFromCreateRequest(t *testing.T) {
	req := CreateEventRequest{
		Title:   "Go Conf 2026",
		Mode:    "offline",
		StartAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 3, 11, 17, 0, 0, 0, time.UTC),
	}

	e := NewFromCreateRequest(req, "org-1", "https://events.example.com/")

	if e.ID == "" {
		t.Fatalf("id must be assigned")
	}

	if e.OrganizationID != "org-1" {
		t.Fatalf("organizationId = %q", e.OrganizationID)
	}

	if len(e.ShareID) != 10 {
		t.Fatalf("shareId %q must be 10 characters", e.ShareID)
	}

	if strings.Contains(e.ShareID, "-") {
		t.Fatalf("shareId %q must not contain dashes", e.ShareID)
	}

	want := "https://events.example.com/register/" + e.ShareID

	if e.RegistrationLink != want {
		t.Fatalf("registrationLink = %q, want %q", e.RegistrationLink, want)
	}

	if e.CertificatesSent {
		t.Fatalf("a new event must not be marked certificatesSent")
	}
}

func TestNewShareID_Unique(t *testing.T) {
	seen := map[string]bool{}

	for i := 0; i < 1000; i++ {
		id := NewShareID()

		if seen[id] {
			t.Fatalf("duplicate share id %q", id)
		}

		seen[id] = true
	}
}

package utils

import (
	"bytes"
	"encoding/csv"
	"time"

	"github.com/geocoder89/smarteventhub/internal/domain/event"
	"github.com/geocoder89/smarteventhub/internal/domain/participant"
)

// ParticipantsCSV renders the participant list of an event as CSV.
// Custom registration fields become extra columns, in the order the
// event defines them.
func ParticipantsCSV(e event.Event, participants []participant.Participant) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	header := []string{"name", "email", "registeredAt"}

	for _, f := range e.CustomFields {
		header = append(header, f.Label)
	}

	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, p := range participants {
		row := []string{p.Name, p.Email, p.CreatedAt.UTC().Format(time.RFC3339)}

		for _, f := range e.CustomFields {
			row = append(row, p.Answers[f.Label])
		}

		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

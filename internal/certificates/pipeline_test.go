package certificates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/smarteventhub/internal/domain/event"
	"github.com/geocoder89/smarteventhub/internal/domain/participant"
	"github.com/geocoder89/smarteventhub/internal/mailer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fake stores with per-test function fields

type fakeEvents struct {
	mu        sync.Mutex
	getFn     func(ctx context.Context, id string) (event.Event, error)
	setSentFn func(ctx context.Context, id string) error
	sentCalls []string
}

func (f *fakeEvents) GetByID(ctx context.Context, id string) (event.Event, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return event.Event{}, event.ErrNotFound
}

func (f *fakeEvents) SetCertificatesSent(ctx context.Context, id string) error {
	f.mu.Lock()
	f.sentCalls = append(f.sentCalls, id)
	f.mu.Unlock()

	if f.setSentFn != nil {
		return f.setSentFn(ctx, id)
	}

	return nil
}

type fakeParticipants struct {
	listByEventFn func(ctx context.Context, eventID string) ([]participant.Participant, error)
	listByIDsFn   func(ctx context.Context, eventID string, ids []string) ([]participant.Participant, error)
}

func (f *fakeParticipants) ListByEvent(ctx context.Context, eventID string) ([]participant.Participant, error) {
	if f.listByEventFn != nil {
		return f.listByEventFn(ctx, eventID)
	}

	return nil, nil
}

func (f *fakeParticipants) ListByIDs(ctx context.Context, eventID string, ids []string) ([]participant.Participant, error) {
	if f.listByIDsFn != nil {
		return f.listByIDsFn(ctx, eventID, ids)
	}

	return nil, nil
}

type fakeSender struct {
	mu     sync.Mutex
	sendFn func(ctx context.Context, msg mailer.Message) error
	sent   []mailer.Message
}

func (f *fakeSender) Send(ctx context.Context, msg mailer.Message) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}

	return nil
}

type fakeAssets struct {
	fetchFn func(ctx context.Context, ref string) ([]byte, error)
}

func (f *fakeAssets) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if f.fetchFn != nil {
		return f.fetchFn(ctx, ref)
	}

	return nil, errors.New("no asset")
}

func testEvent() event.Event {
	return event.Event{
		ID:      "evt-1",
		Title:   "Go Conf 2026",
		StartAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 3, 11, 17, 0, 0, 0, time.UTC),
		ShareID: "abc123def4",
	}
}

func testParticipants(names ...string) []participant.Participant {
	out := make([]participant.Participant, 0, len(names))

	for i, n := range names {
		out = append(out, participant.Participant{
			ID:      "p-" + string(rune('a'+i)),
			EventID: "evt-1",
			Name:    n,
			Email:   strings.ToLower(strings.ReplaceAll(n, " ", ".")) + "@example.com",
		})
	}

	return out
}

func newTestPipeline(events *fakeEvents, parts *fakeParticipants, sender *fakeSender, concurrency int) *Pipeline {
	renderer := NewRenderer(&fakeAssets{}, testLogger())

	return New(
		Config{Concurrency: concurrency},
		events,
		parts,
		renderer,
		sender,
		testLogger(),
		nil,
	)
}

func TestRun_MixedOutcomesKeepSelectionOrder(t *testing.T) {
	list := testParticipants("Ada Lovelace", "Broken Render", "Carol Danvers")

	// an empty name makes the render step fail for exactly one participant
	list[1].Name = ""
	list[1].Email = "broken@example.com"

	events := &fakeEvents{
		getFn: func(ctx context.Context, id string) (event.Event, error) {
			return testEvent(), nil
		},
	}

	parts := &fakeParticipants{
		listByEventFn: func(ctx context.Context, eventID string) ([]participant.Participant, error) {
			return list, nil
		},
	}

	sender := &fakeSender{
		sendFn: func(ctx context.Context, msg mailer.Message) error {
			if msg.To == list[2].Email {
				return mailer.ErrProviderRejected
			}
			return nil
		},
	}

	p := newTestPipeline(events, parts, sender, 2)

	res, err := p.Run(context.Background(), "evt-1", AllForEvent())

	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if res.Sent != 1 || res.Total != 3 {
		t.Fatalf("expected sent=1 total=3, got sent=%d total=%d", res.Sent, res.Total)
	}

	if len(res.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(res.Outcomes))
	}

	// outcomes must line up with the participant listing, not with
	// worker completion order
	if !res.Outcomes[0].Success || res.Outcomes[0].ParticipantID != list[0].ID {
		t.Fatalf("outcome[0] = %+v, expected success for %s", res.Outcomes[0], list[0].ID)
	}

	if res.Outcomes[1].Success || res.Outcomes[1].Reason != ReasonRenderFailed {
		t.Fatalf("outcome[1] = %+v, expected render failure", res.Outcomes[1])
	}

	if res.Outcomes[2].Success || res.Outcomes[2].Reason != ReasonSendFailed {
		t.Fatalf("outcome[2] = %+v, expected send failure", res.Outcomes[2])
	}

	if len(events.sentCalls) != 0 {
		t.Fatalf("certificatesSent must not be set after a partial batch")
	}
}

func TestRun_FullSuccessSetsFlag(t *testing.T) {
	events := &fakeEvents{
		getFn: func(ctx context.Context, id string) (event.Event, error) {
			return testEvent(), nil
		},
	}

	parts := &fakeParticipants{
		listByEventFn: func(ctx context.Context, eventID string) ([]participant.Participant, error) {
			return testParticipants("Ada Lovelace", "Grace Hopper"), nil
		},
	}

	sender := &fakeSender{}

	p := newTestPipeline(events, parts, sender, 4)

	res, err := p.Run(context.Background(), "evt-1", AllForEvent())

	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if res.Sent != 2 || res.Total != 2 {
		t.Fatalf("expected sent=2 total=2, got sent=%d total=%d", res.Sent, res.Total)
	}

	if len(events.sentCalls) != 1 || events.sentCalls[0] != "evt-1" {
		t.Fatalf("expected certificatesSent persisted once for evt-1, got %v", events.sentCalls)
	}

	// every send carries the rendered PDF as attachment
	for _, msg := range sender.sent {
		if msg.Attachment == nil || msg.Attachment.Name != "certificate.pdf" {
			t.Fatalf("message to %s missing certificate attachment", msg.To)
		}

		if len(msg.Attachment.Content) == 0 {
			t.Fatalf("message to %s has empty attachment", msg.To)
		}

		if !strings.Contains(msg.Subject, "Go Conf 2026") {
			t.Fatalf("subject %q does not mention the event", msg.Subject)
		}
	}
}

func TestRun_SubsetNeverSetsFlag(t *testing.T) {
	list := testParticipants("Ada Lovelace", "Grace Hopper")

	events := &fakeEvents{
		getFn: func(ctx context.Context, id string) (event.Event, error) {
			return testEvent(), nil
		},
	}

	parts := &fakeParticipants{
		listByIDsFn: func(ctx context.Context, eventID string, ids []string) ([]participant.Participant, error) {
			return list, nil
		},
	}

	p := newTestPipeline(events, parts, &fakeSender{}, 2)

	res, err := p.Run(context.Background(), "evt-1", ByIDs([]string{list[0].ID, list[1].ID}))

	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if res.Sent != 2 || res.Total != 2 {
		t.Fatalf("expected sent=2 total=2, got sent=%d total=%d", res.Sent, res.Total)
	}

	if len(events.sentCalls) != 0 {
		t.Fatalf("a subset run must never set certificatesSent")
	}
}

func TestRun_EmptyIDSelectionRejected(t *testing.T) {
	events := &fakeEvents{
		getFn: func(ctx context.Context, id string) (event.Event, error) {
			return testEvent(), nil
		},
	}

	p := newTestPipeline(events, &fakeParticipants{}, &fakeSender{}, 2)

	_, err := p.Run(context.Background(), "evt-1", ByIDs(nil))

	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestRun_UnknownIDsResolveToNothing(t *testing.T) {
	events := &fakeEvents{
		getFn: func(ctx context.Context, id string) (event.Event, error) {
			return testEvent(), nil
		},
	}

	parts := &fakeParticipants{
		listByIDsFn: func(ctx context.Context, eventID string, ids []string) ([]participant.Participant, error) {
			return nil, nil
		},
	}

	p := newTestPipeline(events, parts, &fakeSender{}, 2)

	res, err := p.Run(context.Background(), "evt-1", ByIDs([]string{"ghost-1", "ghost-2"}))

	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if res.Sent != 0 || res.Total != 0 {
		t.Fatalf("expected empty result, got sent=%d total=%d", res.Sent, res.Total)
	}

	if res.Outcomes == nil || len(res.Outcomes) != 0 {
		t.Fatalf("expected empty outcome slice, got %v", res.Outcomes)
	}
}

func TestRun_EventWithNoParticipants(t *testing.T) {
	events := &fakeEvents{
		getFn: func(ctx context.Context, id string) (event.Event, error) {
			return testEvent(), nil
		},
	}

	p := newTestPipeline(events, &fakeParticipants{}, &fakeSender{}, 2)

	res, err := p.Run(context.Background(), "evt-1", AllForEvent())

	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if res.Sent != 0 || res.Total != 0 {
		t.Fatalf("expected sent=0 total=0, got sent=%d total=%d", res.Sent, res.Total)
	}

	// zero participants is not "everyone got one"
	if len(events.sentCalls) != 0 {
		t.Fatalf("certificatesSent must stay unset for an empty event")
	}
}

func TestRun_UnknownEvent(t *testing.T) {
	p := newTestPipeline(&fakeEvents{}, &fakeParticipants{}, &fakeSender{}, 2)

	_, err := p.Run(context.Background(), "nope", AllForEvent())

	if !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("expected event.ErrNotFound, got %v", err)
	}
}

func TestRun_MissingAPIKeyStopsFeeding(t *testing.T) {
	list := testParticipants("P One", "P Two", "P Three", "P Four", "P Five")

	events := &fakeEvents{
		getFn: func(ctx context.Context, id string) (event.Event, error) {
			return testEvent(), nil
		},
	}

	parts := &fakeParticipants{
		listByEventFn: func(ctx context.Context, eventID string) ([]participant.Participant, error) {
			return list, nil
		},
	}

	sender := &fakeSender{
		sendFn: func(ctx context.Context, msg mailer.Message) error {
			return mailer.ErrMissingAPIKey
		},
	}

	p := newTestPipeline(events, parts, sender, 1)

	res, err := p.Run(context.Background(), "evt-1", AllForEvent())

	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if res.Sent != 0 {
		t.Fatalf("expected no sends, got %d", res.Sent)
	}

	// the pool stops feeding after the first missing-key failure instead
	// of burning through the whole list
	if res.Total == 0 || res.Total >= len(list) {
		t.Fatalf("expected a short-circuited batch, attempted %d of %d", res.Total, len(list))
	}

	for i, o := range res.Outcomes {
		if o.Success || o.Reason != ReasonSendFailed {
			t.Fatalf("outcome[%d] = %+v, expected send failure", i, o)
		}

		// attempted set must be a prefix of the selection
		if o.ParticipantID != list[i].ID {
			t.Fatalf("outcome[%d] for %s, expected %s", i, o.ParticipantID, list[i].ID)
		}
	}

	if len(events.sentCalls) != 0 {
		t.Fatalf("certificatesSent must stay unset after a fail-fast batch")
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	events := &fakeEvents{
		getFn: func(ctx context.Context, id string) (event.Event, error) {
			return testEvent(), nil
		},
	}

	parts := &fakeParticipants{
		listByEventFn: func(ctx context.Context, eventID string) ([]participant.Participant, error) {
			return testParticipants("Ada Lovelace", "Grace Hopper"), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(events, parts, &fakeSender{}, 2)

	res, err := p.Run(ctx, "evt-1", AllForEvent())

	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if res.Total != 0 || res.Sent != 0 {
		t.Fatalf("expected nothing attempted, got sent=%d total=%d", res.Sent, res.Total)
	}

	if len(events.sentCalls) != 0 {
		t.Fatalf("a cancelled run must not set certificatesSent")
	}
}

func TestRun_FlagPersistFailureStillReportsSuccess(t *testing.T) {
	events := &fakeEvents{
		getFn: func(ctx context.Context, id string) (event.Event, error) {
			return testEvent(), nil
		},
		setSentFn: func(ctx context.Context, id string) error {
			return errors.New("db went away")
		},
	}

	parts := &fakeParticipants{
		listByEventFn: func(ctx context.Context, eventID string) ([]participant.Participant, error) {
			return testParticipants("Ada Lovelace"), nil
		},
	}

	p := newTestPipeline(events, parts, &fakeSender{}, 1)

	res, err := p.Run(context.Background(), "evt-1", AllForEvent())

	// the certificates went out; a flag write failure is logged, not returned
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if res.Sent != 1 || res.Total != 1 {
		t.Fatalf("expected sent=1 total=1, got sent=%d total=%d", res.Sent, res.Total)
	}
}

package certificates

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geocoder89/smarteventhub/internal/domain/event"
	"github.com/geocoder89/smarteventhub/internal/domain/participant"
	"github.com/geocoder89/smarteventhub/internal/mailer"
	"github.com/geocoder89/smarteventhub/internal/observability"
)

// EventStore is the slice of event storage the pipeline needs.
type EventStore interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	SetCertificatesSent(ctx context.Context, id string) error
}

// ParticipantStore resolves the participant selection. Both listings
// return participants in reverse registration order, matching the
// event's canonical listing.
type ParticipantStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]participant.Participant, error)
	ListByIDs(ctx context.Context, eventID string, ids []string) ([]participant.Participant, error)
}

type selectionMode int

const (
	selectAll selectionMode = iota
	selectByIDs
)

// Selection names which participants a batch covers: the whole event,
// or an explicit id subset.
type Selection struct {
	mode selectionMode
	ids  []string
}

func AllForEvent() Selection {
	return Selection{mode: selectAll}
}

func ByIDs(ids []string) Selection {
	return Selection{mode: selectByIDs, ids: ids}
}

func (s Selection) full() bool { return s.mode == selectAll }

type Config struct {
	// bounded render+send worker pool per batch
	Concurrency int
}

// Pipeline renders and emails certificates for one event per Run call.
// Each participant is processed independently; one bad asset or one
// provider rejection never aborts the rest of the batch.
type Pipeline struct {
	cfg          Config
	events       EventStore
	participants ParticipantStore
	renderer     *Renderer
	sender       mailer.Sender
	log          *slog.Logger
	prom         *observability.Prom
}

func New(
	cfg Config,
	events EventStore,
	participants ParticipantStore,
	renderer *Renderer,
	sender mailer.Sender,
	log *slog.Logger,
	prom *observability.Prom,
) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	return &Pipeline{
		cfg:          cfg,
		events:       events,
		participants: participants,
		renderer:     renderer,
		sender:       sender,
		log:          log,
		prom:         prom,
	}
}

// Run executes one batch. Selection and event-lookup failures abort the
// whole operation before any participant is touched; from then on every
// failure degrades to a recorded per-participant outcome.
//
// The event's certificatesSent flag is persisted only when a full-event
// run covered everyone and every send succeeded. Subset runs, empty
// runs, cancelled runs and partial failures all leave it untouched so
// the batch stays re-runnable.
func (p *Pipeline) Run(ctx context.Context, eventID string, sel Selection) (BatchResult, error) {
	start := time.Now()

	ev, err := p.events.GetByID(ctx, eventID)

	if err != nil {
		return BatchResult{}, err
	}

	list, err := p.resolve(ctx, ev.ID, sel)

	if err != nil {
		return BatchResult{}, err
	}

	intended := len(list)

	if intended == 0 {
		// nothing to do is a valid outcome, not an error
		return BatchResult{Outcomes: []Outcome{}}, nil
	}

	outcomes := make([]Outcome, intended)

	type task struct {
		idx int
		p   participant.Participant
	}

	tasks := make(chan task)

	// a missing provider key fails identically for everyone; stop
	// feeding the pool after the first occurrence instead of repeating
	// the same failure N times
	var misconfigured atomic.Bool

	workers := p.cfg.Concurrency

	if workers > intended {
		workers = intended
	}

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for t := range tasks {
				outcome, rawErr := p.processOne(ctx, ev, t.p)
				outcomes[t.idx] = outcome

				if rawErr != nil && errors.Is(rawErr, mailer.ErrMissingAPIKey) {
					misconfigured.Store(true)
				}
			}
		}()
	}

	// feed in selection order so the attempted set is always a prefix
	attempted := 0

	for i, part := range list {
		if ctx.Err() != nil || misconfigured.Load() {
			break
		}

		tasks <- task{idx: i, p: part}
		attempted = i + 1
	}

	close(tasks)
	wg.Wait()

	result := BatchResult{
		Outcomes: outcomes[:attempted],
		Total:    attempted,
		Intended: intended,
	}

	for _, o := range result.Outcomes {
		if o.Success {
			result.Sent++
		}
	}

	p.finalize(ctx, ev, sel, result)

	p.log.Info("certificate batch finished",
		"event_id", ev.ID,
		"sent", result.Sent,
		"total", result.Total,
		"intended", result.Intended,
		"full_run", sel.full(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if p.prom != nil {
		p.prom.ObserveCertBatch(time.Since(start))
	}

	return result, nil
}

func (p *Pipeline) resolve(ctx context.Context, eventID string, sel Selection) ([]participant.Participant, error) {
	switch sel.mode {
	case selectAll:
		return p.participants.ListByEvent(ctx, eventID)

	case selectByIDs:
		if len(sel.ids) == 0 {
			return nil, ErrEmptySelection
		}

		// ids that don't resolve for this event are dropped, not fatal;
		// strict callers compare the returned count with what they asked for
		return p.participants.ListByIDs(ctx, eventID, sel.ids)

	default:
		return nil, ErrEmptySelection
	}
}

func (p *Pipeline) processOne(ctx context.Context, ev event.Event, part participant.Participant) (Outcome, error) {
	cert, err := p.renderer.Render(ctx, part.Name, ev)

	if err != nil {
		p.countOutcome(string(ReasonRenderFailed))
		p.log.Warn("certificate render failed", "event_id", ev.ID, "participant_id", part.ID, "err", err)

		return Outcome{
			ParticipantID: part.ID,
			Email:         part.Email,
			Reason:        ReasonRenderFailed,
			Error:         err.Error(),
		}, err
	}

	msg := composeMessage(ev, part.Name, part.Email, cert)

	if err := p.sender.Send(ctx, msg); err != nil {
		p.countOutcome(string(ReasonSendFailed))
		p.log.Warn("certificate send failed", "event_id", ev.ID, "participant_id", part.ID, "err", err)

		return Outcome{
			ParticipantID: part.ID,
			Email:         part.Email,
			Reason:        ReasonSendFailed,
			Error:         err.Error(),
		}, err
	}

	p.countOutcome("sent")

	return Outcome{
		ParticipantID: part.ID,
		Email:         part.Email,
		Success:       true,
	}, nil
}

func (p *Pipeline) finalize(ctx context.Context, ev event.Event, sel Selection, result BatchResult) {
	if !sel.full() {
		return
	}

	if result.Total == 0 || result.Sent != result.Total || result.Total != result.Intended {
		return
	}

	// a cancelled run must not claim the event is done even if every
	// attempted send happened to succeed
	if ctx.Err() != nil {
		return
	}

	if err := p.events.SetCertificatesSent(ctx, ev.ID); err != nil {
		// the certificates are out; a flag write failure just means the
		// next run re-sends, so report the result rather than failing
		p.log.Error("could not persist certificatesSent", "event_id", ev.ID, "err", err)
	}
}

func (p *Pipeline) countOutcome(result string) {
	if p.prom != nil {
		p.prom.CountCertOutcome(result)
	}
}

package worker

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
	"github.com/geocoder89/smarteventhub/internal/jobs"
	"github.com/geocoder89/smarteventhub/internal/mailer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeJobsRepo struct {
	mu          sync.Mutex
	queue       []jobs.Job
	done        []string
	failed      map[string]string
	rescheduled map[string]time.Time
}

func newFakeJobsRepo(js ...jobs.Job) *fakeJobsRepo {
	return &fakeJobsRepo{
		queue:       js,
		failed:      map[string]string{},
		rescheduled: map[string]time.Time{},
	}
}

func (f *fakeJobsRepo) ClaimNext(ctx context.Context, workerID string) (jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return jobs.Job{}, jobs.ErrNotFound
	}

	j := f.queue[0]
	f.queue = f.queue[1:]
	j.Attempts++

	return j, nil
}

func (f *fakeJobsRepo) MarkDone(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.done = append(f.done, id)
	return nil
}

func (f *fakeJobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failed[id] = errMsg
	return nil
}

func (f *fakeJobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rescheduled[id] = runAt
	return nil
}

type fakeEventReader struct {
	getFn func(ctx context.Context, id string) (event.Event, error)
}

func (f *fakeEventReader) GetByID(ctx context.Context, id string) (event.Event, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return event.Event{}, event.ErrNotFound
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

func confirmationJob(t *testing.T) jobs.Job {
	t.Helper()

	raw, err := jobs.RegistrationConfirmationPayload{
		ParticipantID: "p-1",
		EventID:       "evt-1",
		Email:         "ada@example.com",
		Name:          "Ada Lovelace",
		RequestedAt:   time.Now().UTC(),
	}.JSON()

	if err != nil {
		t.Fatalf("payload: %v", err)
	}

	return jobs.New(jobs.CreateRequest{Type: jobs.TypeRegistrationConfirmation, Payload: raw})
}

func testWorker(repo *fakeJobsRepo, events EventReader, sender mailer.Sender) *Worker {
	return New(Config{WorkerID: "test", Concurrency: 1}, repo, events, sender, testLogger())
}

func TestProcessOne_SendsConfirmation(t *testing.T) {
	repo := newFakeJobsRepo(confirmationJob(t))

	events := &fakeEventReader{
		getFn: func(ctx context.Context, id string) (event.Event, error) {
			return event.Event{
				ID:       id,
				Title:    "Go Conf 2026",
				StartAt:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
				Location: "Nairobi",
			}, nil
		},
	}

	sender := &fakeSender{}

	w := testWorker(repo, events, sender)

	processed, err := w.processOne(context.Background(), "test-0")

	if err != nil || !processed {
		t.Fatalf("processed=%v err=%v", processed, err)
	}

	if len(repo.done) != 1 {
		t.Fatalf("job not marked done: %+v", repo)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sender.sent))
	}

	msg := sender.sent[0]

	if msg.To != "ada@example.com" {
		t.Fatalf("sent to %s", msg.To)
	}

	if !strings.Contains(msg.Subject, "Go Conf 2026") {
		t.Fatalf("subject %q", msg.Subject)
	}

	if !strings.Contains(msg.HTML, "Nairobi") {
		t.Fatalf("body does not mention the location")
	}
}

func TestProcessOne_EmptyQueue(t *testing.T) {
	w := testWorker(newFakeJobsRepo(), &fakeEventReader{}, &fakeSender{})

	processed, err := w.processOne(context.Background(), "test-0")

	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if processed {
		t.Fatalf("nothing to process, got processed=true")
	}
}

func TestProcessOne_SendFailureReschedules(t *testing.T) {
	j := confirmationJob(t)
	repo := newFakeJobsRepo(j)

	events := &fakeEventReader{
		getFn: func(ctx context.Context, id string) (event.Event, error) {
			return event.Event{ID: id, Title: "Go Conf 2026"}, nil
		},
	}

	sender := &fakeSender{
		sendFn: func(ctx context.Context, msg mailer.Message) error {
			return mailer.ErrProviderRejected
		},
	}

	w := testWorker(repo, events, sender)

	if _, err := w.processOne(context.Background(), "test-0"); err != nil {
		t.Fatalf("err: %v", err)
	}

	runAt, ok := repo.rescheduled[j.ID]

	if !ok {
		t.Fatalf("job not rescheduled: %+v", repo)
	}

	if !runAt.After(time.Now().UTC()) {
		t.Fatalf("retry must be in the future, got %v", runAt)
	}
}

func TestProcessOne_InvalidPayloadDeadLetters(t *testing.T) {
	j := jobs.New(jobs.CreateRequest{Type: jobs.TypeRegistrationConfirmation, Payload: []byte(`{}`)})
	repo := newFakeJobsRepo(j)

	w := testWorker(repo, &fakeEventReader{}, &fakeSender{})

	if _, err := w.processOne(context.Background(), "test-0"); err != nil {
		t.Fatalf("err: %v", err)
	}

	if _, ok := repo.failed[j.ID]; !ok {
		t.Fatalf("malformed payload must dead-letter, got %+v", repo)
	}

	if len(repo.rescheduled) != 0 {
		t.Fatalf("malformed payload must not retry")
	}
}

func TestProcessOne_MaxAttemptsDeadLetters(t *testing.T) {
	j := confirmationJob(t)
	j.Attempts = j.MaxAttempts // the claim bumps it past the limit
	repo := newFakeJobsRepo(j)

	events := &fakeEventReader{
		getFn: func(ctx context.Context, id string) (event.Event, error) {
			return event.Event{}, errors.New("still broken")
		},
	}

	w := testWorker(repo, events, &fakeSender{})

	if _, err := w.processOne(context.Background(), "test-0"); err != nil {
		t.Fatalf("err: %v", err)
	}

	if _, ok := repo.failed[j.ID]; !ok {
		t.Fatalf("expected dead-letter after max attempts, got %+v", repo)
	}
}

func TestExponentialBackoff_GrowsAndCaps(t *testing.T) {
	if d := ExponentialBackoff(0); d < 2*time.Second || d > 3*time.Second {
		t.Fatalf("attempt 0 delay %v", d)
	}

	if d := ExponentialBackoff(3); d < 16*time.Second || d > 17*time.Second {
		t.Fatalf("attempt 3 delay %v", d)
	}

	if d := ExponentialBackoff(30); d > 5*time.Minute+time.Second {
		t.Fatalf("delay must cap at 5m, got %v", d)
	}
}

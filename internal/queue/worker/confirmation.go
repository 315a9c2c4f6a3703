package worker

import (
	"fmt"
	"html"

	"context"

	"github.com/geocoder89/smarteventhub/internal/domain/event"
	"github.com/geocoder89/smarteventhub/internal/jobs"
	"github.com/geocoder89/smarteventhub/internal/mailer"
)

func (w *Worker) sendRegistrationConfirmation(ctx context.Context, j jobs.Job) error {
	p, err := jobs.DecodeRegistrationConfirmation(j)

	if err != nil {
		return err
	}

	ev, err := w.events.GetByID(ctx, p.EventID)

	if err != nil {
		return fmt.Errorf("load event %s: %w", p.EventID, err)
	}

	msg := mailer.Message{
		To:      p.Email,
		Subject: fmt.Sprintf("You're registered for %s", ev.Title),
		HTML:    confirmationBody(ev, p.Name),
	}

	return w.sender.Send(ctx, msg)
}

func confirmationBody(ev event.Event, name string) string {
	title := html.EscapeString(ev.Title)

	body := fmt.Sprintf(`<div style="font-family:Arial,sans-serif">
<h2>Hi %s,</h2>
<p>Your registration for <strong>%s</strong> is confirmed.</p>
<p>Starts: %s</p>`,
		html.EscapeString(name), title, ev.StartAt.Format("January 2, 2006 15:04 MST"))

	if ev.Location != "" {
		body += fmt.Sprintf("\n<p>Where: %s</p>", html.EscapeString(ev.Location))
	}

	body += "\n<p>See you there!</p>\n</div>"
	return body
}

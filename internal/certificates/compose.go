package certificates

import (
	"fmt"
	"html"

	"github.com/geocoder89/smarteventhub/internal/domain/event"
	"github.com/geocoder89/smarteventhub/internal/mailer"
)

func composeMessage(ev event.Event, toName, toEmail string, certificate []byte) mailer.Message {
	issuedOn, _ := issueDate(ev)

	title := html.EscapeString(ev.Title)
	name := html.EscapeString(toName)

	body := fmt.Sprintf(`<div style="font-family:Arial,sans-serif">
<h2>Congratulations, %s!</h2>
<p>Thank you for participating in <strong>%s</strong> on %s.</p>
<p>Your certificate of participation is attached to this email.</p>
<p>— %s</p>
</div>`, name, title, issuedOn.Format("January 2, 2006"), title)

	return mailer.Message{
		To:      toEmail,
		Subject: fmt.Sprintf("Your certificate for %s", ev.Title),
		HTML:    body,
		Attachment: &mailer.Attachment{
			Name:    "certificate.pdf",
			Content: certificate,
		},
	}
}

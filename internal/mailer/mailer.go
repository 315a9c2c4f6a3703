package mailer

import (
	"context"
	"errors"
)

var (
	ErrMissingAPIKey    = errors.New("email provider api key not configured")
	ErrProviderRejected = errors.New("email provider rejected message")
)

// a named byte buffer attached to an outgoing message
type Attachment struct {
	Name    string
	Content []byte
}

type Message struct {
	To      string
	Subject string
	HTML    string
	// optional, nil means no attachment
	Attachment *Attachment
}

// Sender delivers exactly one message per call through a transactional
// email provider. Implementations must be safe for concurrent use and
// must not retry; retry policy belongs to the caller.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

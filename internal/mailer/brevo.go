package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"

	brevo "github.com/getbrevo/brevo-go/lib"
)

type BrevoConfig struct {
	APIKey      string
	SenderName  string
	SenderEmail string
}

// BrevoSender sends through Brevo's transactional email API with a
// process-wide sender identity. The underlying client is stateless, so
// one instance is built lazily on first send and shared after that.
type BrevoSender struct {
	cfg BrevoConfig
	log *slog.Logger

	once   sync.Once
	client *brevo.APIClient
}

func NewBrevoSender(cfg BrevoConfig, log *slog.Logger) *BrevoSender {
	return &BrevoSender{
		cfg: cfg,
		log: log,
	}
}

func (s *BrevoSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}

	s.once.Do(func() {
		c := brevo.NewConfiguration()
		c.AddDefaultHeader("api-key", s.cfg.APIKey)
		s.client = brevo.NewAPIClient(c)
	})

	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  s.cfg.SenderName,
			Email: s.cfg.SenderEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: msg.To},
		},
		Subject:     msg.Subject,
		HtmlContent: msg.HTML,
	}

	if msg.Attachment != nil {
		email.Attachment = []brevo.SendSmtpEmailAttachment{
			{
				Name:    msg.Attachment.Name,
				Content: base64.StdEncoding.EncodeToString(msg.Attachment.Content),
			},
		}
	}

	created, _, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}

	s.log.Debug("email sent", "to", msg.To, "message_id", created.MessageId)

	return nil
}

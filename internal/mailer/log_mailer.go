package mailer

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// LogSender stands in for the real provider in dev.
type LogSender struct{}

func NewLogSender() *LogSender { return &LogSender{} }

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("MAILER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("MAILER_FAIL") == "1" {
		return fmt.Errorf("%w: provider down (simulated)", ErrProviderRejected)
	}

	attach := ""
	if msg.Attachment != nil {
		attach = fmt.Sprintf(" attachment=%s(%dB)", msg.Attachment.Name, len(msg.Attachment.Content))
	}

	log.Printf("mailer.send to=%s subject=%q%s", msg.To, msg.Subject, attach)
	return nil
}

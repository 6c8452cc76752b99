package sms

import (
	"context"
	"log"
)

// LogSender is the development fallback: the OTP only appears in the server
// log, never in an API response.
type LogSender struct{}

func (LogSender) Configured() bool { return false }

func (LogSender) Send(ctx context.Context, to, body string) error {
	log.Printf("sms [log-only] to=%s body=%q", to, body)
	return nil
}

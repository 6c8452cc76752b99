package sms

import "context"

// Sender delivers a text message to a phone number. The OTP flow only needs
// fire-and-forget delivery; formatting of vendor payloads stays behind this
// interface.
type Sender interface {
	Send(ctx context.Context, to, body string) error
	Configured() bool
}

package ai

import "context"

// GenOptions carries the per-feature generation parameters.
type GenOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Result is the uniform outcome of a model invocation. Success=false with a
// non-empty Content and Mock=true is the demo-mode fallback: callers treat it
// as a usable completion, not a hard failure.
type Result struct {
	Success        bool
	Content        string
	Model          string
	TokensUsed     int
	ProcessingTime float64 // seconds
	Mock           bool
	Error          string
}

// Usable reports whether the result carries content the caller can record as
// a completed interpretation.
func (r Result) Usable() bool {
	return r.Success || (r.Mock && r.Content != "")
}

// Provider is a completion backend. Provider-side failures and timeouts
// surface as Result{Success:false, Error} with a nil error: a declined or
// failed invocation is a business outcome the caller records and does not
// retry. A non-nil error means the call never cleanly happened and is fair
// game for the worker's retry policy.
type Provider interface {
	GenerateText(ctx context.Context, prompt string, opts GenOptions) (Result, error)
	GenerateImage(ctx context.Context, prompt, imageDataURL string, opts GenOptions) (Result, error)
}

const systemPersona = "You are a mystical fortune teller and interpreter. " +
	"Provide engaging, creative, and entertaining interpretations while being " +
	"respectful of cultural traditions."

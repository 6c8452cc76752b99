package fortune

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/Mamog1381/fortune/internal/ai"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Feature{}, &Reading{}, &ReadingHistory{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedTestFeature(t *testing.T, db *gorm.DB, featureType string, inputType InputType) *Feature {
	t.Helper()
	f := &Feature{
		Name:           featureType + " test",
		FeatureType:    featureType,
		InputType:      inputType,
		PromptTemplate: "Interpret this: {user_input}",
		ModelName:      "test/model",
		MaxTokens:      500,
		Temperature:    0.7,
		CreditCost:     1,
		IsActive:       true,
	}
	if err := db.Create(f).Error; err != nil {
		t.Fatalf("create feature: %v", err)
	}
	return f
}

// scriptedProvider replays a fixed sequence of outcomes and records the
// prompts it was invoked with.
type scriptedProvider struct {
	results []ai.Result
	errs    []error
	calls   int
	prompts []string

	// onInvoke runs before each invocation, e.g. to observe db state
	onInvoke func()
}

func (p *scriptedProvider) next(prompt string) (ai.Result, error) {
	if p.onInvoke != nil {
		p.onInvoke()
	}
	i := p.calls
	p.calls++
	p.prompts = append(p.prompts, prompt)
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	var res ai.Result
	if i < len(p.results) {
		res = p.results[i]
	}
	return res, err
}

func (p *scriptedProvider) GenerateText(ctx context.Context, prompt string, opts ai.GenOptions) (ai.Result, error) {
	return p.next(prompt)
}

func (p *scriptedProvider) GenerateImage(ctx context.Context, prompt, imageDataURL string, opts ai.GenOptions) (ai.Result, error) {
	return p.next(prompt)
}

func newTestProcessor(t *testing.T, db *gorm.DB, prov ai.Provider) *Processor {
	t.Helper()
	reg := ai.NewRegistry()
	reg.Register("scripted", func(ctx context.Context, model string) (ai.Provider, error) {
		return prov, nil
	})
	return NewProcessor(NewRepo(db), reg, "scripted")
}

func createPendingReading(t *testing.T, db *gorm.DB, f *Feature, textInput, language string) *Reading {
	t.Helper()
	id, err := NewReadingID()
	if err != nil {
		t.Fatalf("new reading id: %v", err)
	}
	r := &Reading{
		ID:        id,
		UserID:    1,
		FeatureID: f.ID,
		TextInput: textInput,
		Language:  language,
		Status:    StatusPending,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("create reading: %v", err)
	}
	return r
}

func TestProcess_TextReadingCompletes(t *testing.T) {
	db := openTestDB(t)
	feature := seedTestFeature(t, db, "dream_interpretation", InputText)
	reading := createPendingReading(t, db, feature, "I flew over a city", "en")

	prov := &scriptedProvider{
		results: []ai.Result{{
			Success:        true,
			Content:        "X",
			Model:          "test/model",
			TokensUsed:     42,
			ProcessingTime: 1.5,
		}},
	}
	// the processing state must be persisted before the external call
	prov.onInvoke = func() {
		var r Reading
		if err := db.First(&r, "id = ?", reading.ID).Error; err != nil {
			t.Fatalf("load during invoke: %v", err)
		}
		if r.Status != StatusProcessing {
			t.Errorf("status during invocation = %q, want processing", r.Status)
		}
	}

	proc := newTestProcessor(t, db, prov)
	if err := proc.Process(context.Background(), reading.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	var got Reading
	if err := db.First(&got, "id = ?", reading.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.Interpretation != "X" {
		t.Fatalf("interpretation = %q, want X", got.Interpretation)
	}
	if got.ErrorMessage != "" {
		t.Fatalf("completed reading carries error_message %q", got.ErrorMessage)
	}
	if got.ModelUsed != "test/model" || got.TokensUsed != 42 {
		t.Fatalf("metadata not recorded: model=%q tokens=%d", got.ModelUsed, got.TokensUsed)
	}

	// prompt substitution happened
	if len(prov.prompts) != 1 || !strings.Contains(prov.prompts[0], "I flew over a city") {
		t.Fatalf("prompt missing user input: %q", prov.prompts)
	}
	if strings.Contains(prov.prompts[0], "{user_input}") {
		t.Fatalf("placeholder left in prompt: %q", prov.prompts[0])
	}

	// history row links the reading
	var count int64
	db.Model(&ReadingHistory{}).Where("reading_id = ?", reading.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 history row, got %d", count)
	}
}

func TestProcess_PersianDirectiveAppended(t *testing.T) {
	db := openTestDB(t)
	feature := seedTestFeature(t, db, "tarot", InputText)
	reading := createPendingReading(t, db, feature, "Will I travel?", "fa")

	prov := &scriptedProvider{results: []ai.Result{{Success: true, Content: "ok"}}}
	proc := newTestProcessor(t, db, prov)

	if err := proc.Process(context.Background(), reading.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(prov.prompts) != 1 || !strings.Contains(prov.prompts[0], "Persian") {
		t.Fatalf("expected language directive in prompt, got %q", prov.prompts)
	}
}

func TestProcess_InvocationFailureIsTerminal(t *testing.T) {
	db := openTestDB(t)
	feature := seedTestFeature(t, db, "dream_interpretation", InputText)
	reading := createPendingReading(t, db, feature, "a dream", "en")

	prov := &scriptedProvider{
		results: []ai.Result{{Success: false, Error: "model declined"}},
	}
	proc := newTestProcessor(t, db, prov)

	// a clean invocation failure is absorbed, not returned for retry
	if err := proc.Process(context.Background(), reading.ID); err != nil {
		t.Fatalf("expected nil for business failure, got %v", err)
	}

	var got Reading
	if err := db.First(&got, "id = ?", reading.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.ErrorMessage != "model declined" {
		t.Fatalf("error_message = %q", got.ErrorMessage)
	}
	if got.Interpretation != "" {
		t.Fatalf("failed reading carries interpretation %q", got.Interpretation)
	}

	var count int64
	db.Model(&ReadingHistory{}).Where("reading_id = ?", reading.ID).Count(&count)
	if count != 0 {
		t.Fatalf("failed reading must not create history, got %d rows", count)
	}
}

func TestProcess_MockFallbackCountsAsCompleted(t *testing.T) {
	db := openTestDB(t)
	feature := seedTestFeature(t, db, "numerology", InputText)
	reading := createPendingReading(t, db, feature, "1990-01-01", "en")

	prov := &scriptedProvider{
		results: []ai.Result{{
			Success: false,
			Mock:    true,
			Content: "demo interpretation",
			Error:   "api key not configured",
		}},
	}
	proc := newTestProcessor(t, db, prov)

	if err := proc.Process(context.Background(), reading.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	var got Reading
	db.First(&got, "id = ?", reading.ID)
	if got.Status != StatusCompleted || got.Interpretation != "demo interpretation" {
		t.Fatalf("mock fallback should complete, got status=%q interp=%q", got.Status, got.Interpretation)
	}
}

func TestProcess_MissingReadingAbandons(t *testing.T) {
	db := openTestDB(t)
	prov := &scriptedProvider{}
	proc := newTestProcessor(t, db, prov)

	if err := proc.Process(context.Background(), "01NONEXISTENT0000000000000"); err != nil {
		t.Fatalf("expected nil for missing reading, got %v", err)
	}
	if prov.calls != 0 {
		t.Fatalf("provider must not be invoked for a missing reading")
	}
}

func TestRetryPolicy_TransientErrorsThenSuccess(t *testing.T) {
	db := openTestDB(t)
	feature := seedTestFeature(t, db, "dream_interpretation", InputText)
	reading := createPendingReading(t, db, feature, "a recurring dream", "en")

	timeout := errors.New("context deadline exceeded")
	prov := &scriptedProvider{
		errs:    []error{timeout, timeout, nil},
		results: []ai.Result{{}, {}, {Success: true, Content: "third time lucky"}},
	}
	proc := newTestProcessor(t, db, prov)

	policy := NewRetryPolicy(3, time.Millisecond)
	policy.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	err := policy.Run(context.Background(), func(ctx context.Context) error {
		return proc.Process(ctx, reading.ID)
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if prov.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", prov.calls)
	}

	var got Reading
	db.First(&got, "id = ?", reading.ID)
	if got.Status != StatusCompleted || got.Interpretation != "third time lucky" {
		t.Fatalf("got status=%q interp=%q", got.Status, got.Interpretation)
	}
}

func TestRetryPolicy_ExhaustionLeavesFailed(t *testing.T) {
	db := openTestDB(t)
	feature := seedTestFeature(t, db, "dream_interpretation", InputText)
	reading := createPendingReading(t, db, feature, "a dream", "en")

	boom := errors.New("connection reset")
	prov := &scriptedProvider{errs: []error{boom, boom, boom}}
	proc := newTestProcessor(t, db, prov)

	policy := NewRetryPolicy(3, time.Millisecond)
	policy.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	err := policy.Run(context.Background(), func(ctx context.Context) error {
		return proc.Process(ctx, reading.ID)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected exhaustion to surface the last error, got %v", err)
	}
	if prov.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", prov.calls)
	}

	var got Reading
	db.First(&got, "id = ?", reading.ID)
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed after exhaustion", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Fatalf("expected error_message to be recorded")
	}
}

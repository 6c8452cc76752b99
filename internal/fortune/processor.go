package fortune

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/Mamog1381/fortune/internal/ai"
)

// persianDirective is appended to the prompt for fa-language readings.
const persianDirective = "\n\nIMPORTANT: Please provide your response in Persian (Farsi) language. " +
	"Use Persian script and maintain cultural sensitivity for Iranian/Persian traditions."

// Processor drives a reading from pending to a terminal state. Error returns
// are for the worker's retry policy only: a clean invocation failure is
// absorbed into the reading's status and returns nil.
type Processor struct {
	repo         *Repo
	registry     *ai.Registry
	providerName string
}

func NewProcessor(repo *Repo, registry *ai.Registry, providerName string) *Processor {
	if providerName == "" {
		providerName = "openrouter"
	}
	return &Processor{repo: repo, registry: registry, providerName: providerName}
}

// Process runs one attempt of the reading state machine.
//
// Outcomes:
//   - reading not found: logged, nil (the task is abandoned, not retried)
//   - invocation declined or mock fallback without content: status failed, nil
//   - invocation success or usable mock: status completed, nil
//   - anything unexpected: status failed is persisted best-effort and the
//     error is returned so the retry policy can run the attempt again
func (p *Processor) Process(ctx context.Context, readingID string) error {
	reading, err := p.repo.GetReading(ctx, readingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("process reading=%s not found, abandoning", readingID)
			return nil
		}
		return err
	}
	if reading.Feature == nil {
		log.Printf("process reading=%s has no feature, abandoning", readingID)
		return nil
	}

	// Observable side effect before any external call.
	if err := p.repo.MarkProcessing(ctx, readingID); err != nil {
		return p.failTransient(ctx, readingID, err)
	}

	feature := reading.Feature
	prompt := buildPrompt(feature.PromptTemplate, reading.TextInput, reading.Language)

	provider, err := p.registry.Get(ctx, p.providerName, feature.ModelName)
	if err != nil {
		return p.failTransient(ctx, readingID, err)
	}

	opts := ai.GenOptions{
		Model:       feature.ModelName,
		MaxTokens:   feature.MaxTokens,
		Temperature: feature.Temperature,
	}

	var result ai.Result
	if reading.ImagePath != "" && (feature.InputType == InputImage || feature.InputType == InputTextImage) {
		dataURL, err := imageDataURL(reading.ImagePath)
		if err != nil {
			return p.failTransient(ctx, readingID, err)
		}
		result, err = provider.GenerateImage(ctx, prompt, dataURL, opts)
		if err != nil {
			return p.failTransient(ctx, readingID, err)
		}
	} else {
		result, err = provider.GenerateText(ctx, prompt, opts)
		if err != nil {
			return p.failTransient(ctx, readingID, err)
		}
	}

	if !result.Usable() {
		// Terminal business outcome; retrying the same prompt against a
		// misconfigured feature will not succeed.
		errMsg := result.Error
		if errMsg == "" {
			errMsg = "unknown error occurred"
		}
		if err := p.repo.MarkFailed(ctx, readingID, errMsg); err != nil {
			return err
		}
		log.Printf("process reading=%s failed: %s", readingID, errMsg)
		return nil
	}

	modelUsed := result.Model
	if modelUsed == "" {
		modelUsed = feature.ModelName
	}
	if err := p.repo.MarkCompleted(ctx, readingID, result.Content, modelUsed, result.TokensUsed, result.ProcessingTime); err != nil {
		return p.failTransient(ctx, readingID, err)
	}

	history := &ReadingHistory{
		UserID:    reading.UserID,
		FeatureID: reading.FeatureID,
		ReadingID: reading.ID,
	}
	if err := p.repo.CreateHistory(ctx, history); err != nil {
		// The reading is already completed; losing the history row must not
		// flip it back to failed.
		log.Printf("process reading=%s history create: %v", readingID, err)
	}

	log.Printf("process reading=%s completed model=%s tokens=%d mock=%v",
		readingID, modelUsed, result.TokensUsed, result.Mock)
	return nil
}

// failTransient persists the failed state if possible and hands the original
// error back for retry.
func (p *Processor) failTransient(ctx context.Context, readingID string, cause error) error {
	if err := p.repo.MarkFailed(ctx, readingID, cause.Error()); err != nil {
		log.Printf("process reading=%s mark failed: %v", readingID, err)
	}
	return cause
}

// buildPrompt substitutes the user's text into the feature template and
// appends the language directive for non-default languages.
func buildPrompt(template, textInput, language string) string {
	prompt := template
	if language == "fa" {
		prompt += persianDirective
	}
	return strings.ReplaceAll(prompt, "{user_input}", textInput)
}

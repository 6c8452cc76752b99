package ai

import "fmt"

// mockInterpretation is the demo-mode completion returned when no API key is
// configured. It is explicitly non-empty so callers can still exercise the
// full pipeline.
func mockInterpretation(prompt string) string {
	preview := prompt
	if len(preview) > 100 {
		preview = preview[:100]
	}
	return fmt.Sprintf(`MOCK RESPONSE - API Key Not Configured

This is a demonstration response. To get real interpretations, please configure your OpenRouter API key.

Your request: %s...

To enable real interpretations:
1. Get an API key from https://openrouter.ai
2. Set OPENROUTER_API_KEY in your environment variables
3. Restart the application`, preview)
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OllamaProvider runs text-only generation against a local Ollama server.
// Image-input features need a vision-capable remote provider.
type OllamaProvider struct {
	BaseURL string
	Client  *http.Client
}

func NewOllamaProvider(baseURL string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type ollamaMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatReq struct {
	Model    string      `json:"model"`
	Messages []ollamaMsg `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  struct {
		NumPredict  int     `json:"num_predict,omitempty"`
		Temperature float64 `json:"temperature,omitempty"`
	} `json:"options"`
}

type ollamaChatResp struct {
	Message   ollamaMsg `json:"message"`
	EvalCount int       `json:"eval_count"`
	Error     string    `json:"error,omitempty"`
}

func (p *OllamaProvider) GenerateText(ctx context.Context, prompt string, opts GenOptions) (Result, error) {
	reqBody := ollamaChatReq{
		Model:  opts.Model,
		Stream: false,
		Messages: []ollamaMsg{
			{Role: "system", Content: systemPersona},
			{Role: "user", Content: prompt},
		},
	}
	reqBody.Options.NumPredict = opts.MaxTokens
	reqBody.Options.Temperature = opts.Temperature

	b, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/api/chat", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.Client.Do(req)
	if err != nil {
		return Result{Success: false, Error: err.Error(), Model: opts.Model}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Success: false, Error: fmt.Sprintf("ollama: status %d", resp.StatusCode), Model: opts.Model}, nil
	}

	var decoded ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{Success: false, Error: err.Error(), Model: opts.Model}, nil
	}
	if decoded.Error != "" {
		return Result{Success: false, Error: decoded.Error, Model: opts.Model}, nil
	}

	return Result{
		Success:        true,
		Content:        decoded.Message.Content,
		Model:          opts.Model,
		TokensUsed:     decoded.EvalCount,
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

func (p *OllamaProvider) GenerateImage(ctx context.Context, prompt, imageDataURL string, opts GenOptions) (Result, error) {
	return Result{Success: false, Error: "ollama: image input not supported", Model: opts.Model}, nil
}

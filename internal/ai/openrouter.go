package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OpenRouterProvider struct {
	BaseURL string
	APIKey  string
	SiteURL string
	AppName string
	Client  *http.Client
}

func NewOpenRouterProvider(baseURL, apiKey, siteURL, appName string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &OpenRouterProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		SiteURL: siteURL,
		AppName: appName,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type orContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type orMsg struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type orChatReq struct {
	Model       string  `json:"model"`
	Messages    []orMsg `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type orChatResp struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenRouterProvider) GenerateText(ctx context.Context, prompt string, opts GenOptions) (Result, error) {
	msgs := []orMsg{
		{Role: "system", Content: systemPersona},
		{Role: "user", Content: prompt},
	}
	return p.invoke(ctx, msgs, prompt, opts)
}

func (p *OpenRouterProvider) GenerateImage(ctx context.Context, prompt, imageDataURL string, opts GenOptions) (Result, error) {
	img := &struct {
		URL string `json:"url"`
	}{URL: imageDataURL}

	msgs := []orMsg{
		{Role: "system", Content: systemPersona},
		{Role: "user", Content: []orContentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: img},
		}},
	}
	return p.invoke(ctx, msgs, prompt, opts)
}

func (p *OpenRouterProvider) invoke(ctx context.Context, msgs []orMsg, prompt string, opts GenOptions) (Result, error) {
	// No credential: demo mode. The caller records the mock content as a
	// completed interpretation.
	if strings.TrimSpace(p.APIKey) == "" {
		return Result{
			Success: false,
			Error:   "api key not configured",
			Mock:    true,
			Content: mockInterpretation(prompt),
			Model:   opts.Model,
		}, nil
	}

	reqBody := orChatReq{
		Model:       opts.Model,
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if p.SiteURL != "" {
		req.Header.Set("HTTP-Referer", p.SiteURL)
	}
	if p.AppName != "" {
		req.Header.Set("X-Title", p.AppName)
	}

	start := time.Now()
	resp, err := p.Client.Do(req)
	if err != nil {
		// timeouts land here and are a clean invocation failure
		return Result{Success: false, Error: err.Error(), Model: opts.Model}, nil
	}
	defer resp.Body.Close()

	elapsed := time.Since(start).Seconds()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return Result{Success: false, Error: fmt.Sprintf("openrouter: %s", msg), Model: opts.Model}, nil
	}

	var decoded orChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{Success: false, Error: err.Error(), Model: opts.Model}, nil
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return Result{Success: false, Error: decoded.Error.Message, Model: opts.Model}, nil
	}
	if len(decoded.Choices) == 0 {
		return Result{Success: false, Error: "openrouter: empty response", Model: opts.Model}, nil
	}

	model := decoded.Model
	if model == "" {
		model = opts.Model
	}

	return Result{
		Success:        true,
		Content:        decoded.Choices[0].Message.Content,
		Model:          model,
		TokensUsed:     decoded.Usage.TotalTokens,
		ProcessingTime: elapsed,
	}, nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"shopbot/config"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
	SafetySettings   []geminiSafetySetting  `json:"safetySettings"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Blocking is configured at medium-and-above across all four harm
// categories. A blocked response surfaces as ErrModelUnavailable.
var geminiSafetySettings = []geminiSafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

// GeminiService calls the generative-language REST API. The conversation
// itself is stateless on the wire: callers pass the full ordered turn
// history on every request (see ChatSession).
type GeminiService struct {
	client     *resty.Client
	apiKey     string
	model      string
	timeout    time.Duration
	maxRetries int
}

func NewGeminiService(cfg config.Config) *GeminiService {
	client := resty.New().SetBaseURL(cfg.GeminiAPIBase)
	return &GeminiService{
		client:     client,
		apiKey:     cfg.GeminiAPIKey,
		model:      cfg.GeminiModel,
		timeout:    cfg.ModelTimeout,
		maxRetries: cfg.ModelMaxRetries,
	}
}

// Generate submits the full turn history and returns the model's reply text.
// Transient failures (429, 5xx, timeouts) are retried with backoff up to the
// configured limit; everything else fails immediately with
// ErrModelUnavailable.
func (gs *GeminiService) Generate(ctx context.Context, contents []geminiContent) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= gs.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			log.Printf("Retrying model call (attempt %d/%d) after %v", attempt+1, gs.maxRetries+1, backoff)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", fmt.Errorf("%w: %v", ErrModelUnavailable, ctx.Err())
			case <-timer.C:
			}
		}

		reply, retryable, err := gs.generateOnce(ctx, contents)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}

	return "", lastErr
}

func (gs *GeminiService) generateOnce(ctx context.Context, contents []geminiContent) (reply string, retryable bool, err error) {
	callCtx, cancel := context.WithTimeout(ctx, gs.timeout)
	defer cancel()

	body := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.7,
			TopP:            0.95,
			TopK:            64,
			MaxOutputTokens: 1024,
		},
		SafetySettings: geminiSafetySettings,
	}

	resp, err := gs.client.R().
		SetContext(callCtx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", gs.apiKey).
		SetBody(body).
		Post(fmt.Sprintf("/models/%s:generateContent", gs.model))
	if err != nil {
		return "", true, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	if resp.StatusCode() != http.StatusOK {
		retryable := resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		return "", retryable, fmt.Errorf("%w: status %d", ErrModelUnavailable, resp.StatusCode())
	}

	var result geminiResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", false, fmt.Errorf("%w: response blocked (%s)", ErrModelUnavailable, result.PromptFeedback.BlockReason)
	}
	if len(result.Candidates) == 0 {
		return "", false, fmt.Errorf("%w: no candidates in response", ErrModelUnavailable)
	}

	candidate := result.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return "", false, fmt.Errorf("%w: response blocked (SAFETY)", ErrModelUnavailable)
	}

	var text string
	for _, part := range candidate.Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", false, fmt.Errorf("%w: empty response text", ErrModelUnavailable)
	}

	return text, false, nil
}

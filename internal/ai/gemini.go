package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sentinelhq/sentinel/internal/ats"
	"github.com/sentinelhq/sentinel/internal/observability"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel  = "gemini-1.5-flash"

	geminiMaxAttempts = 5
)

// GeminiClient talks to the Gemini generateContent REST endpoint directly.
// Free tier quotas make overload errors routine, so every call retries with
// exponential backoff before giving up.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewGeminiClient(apiKey string, log *slog.Logger) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: geminiBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log.With("component", "ai.gemini"),
	}
}

// WithModel switches the model (e.g. "gemini-1.5-pro").
func (g *GeminiClient) WithModel(model string) *GeminiClient {
	g.model = model
	return g
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (g *GeminiClient) callAPI(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var lastErr error
	for attempt := 0; attempt < geminiMaxAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * 2 * time.Second
			g.log.Warn("gemini overloaded, retrying", "attempt", attempt, "wait", wait)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		text, err := g.callOnce(ctx, prompt, maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryableGeminiError(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("gemini unavailable after %d attempts: %w", geminiMaxAttempts, lastErr)
}

func (g *GeminiClient) callOnce(ctx context.Context, prompt string, maxTokens int) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      0.1,
			MaxOutputTokens:  maxTokens,
			ResponseMIMEType: "application/json",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()
	observability.IncAICall()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, truncateText(string(body), 200))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if geminiResp.Error != nil {
		return "", fmt.Errorf("gemini api error: %s (code %d, status %s)",
			geminiResp.Error.Message, geminiResp.Error.Code, geminiResp.Error.Status)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}
	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// retryableGeminiError spots quota and overload failures worth waiting out.
func retryableGeminiError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "status 429") ||
		strings.Contains(msg, "status 503") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "overloaded")
}

func (g *GeminiClient) SuggestCompetitors(ctx context.Context, description string, n int) ([]Competitor, error) {
	prompt := fmt.Sprintf(`You are a market analyst.

Given a product description, name the %d most direct competitors.

Return JSON only with this exact structure:
[{"name": "Company Name", "domain": "company.com"}]

Rules:
- "name" = the company's common name
- "domain" = the company's primary website domain, bare, no scheme
- Direct competitors only, no adjacent-market players

Product description:
%s`, n, truncateText(description, 1000))

	response, err := g.callAPI(ctx, prompt, 1000)
	if err != nil {
		return nil, err
	}

	var result []Competitor
	if err := json.Unmarshal([]byte(cleanJSON(response)), &result); err != nil {
		return nil, fmt.Errorf("parse competitor list: %w (response: %s)", err, truncateText(response, 200))
	}
	if len(result) > n {
		result = result[:n]
	}
	return result, nil
}

func (g *GeminiClient) ExtractJobs(ctx context.Context, pageText string) ([]ats.JobPosting, error) {
	prompt := fmt.Sprintf(`You are a careers-page parser.

Extract every open job posting from this page text.

Return JSON only with this exact structure:
[{"title": "Job Title", "department": "Department", "location": "Location"}]

Rules:
- Only actual open roles, never navigation or boilerplate
- "department" = "General" when the page does not say
- "location" = "Not specified" when the page does not say
- Empty array if the page lists no jobs

Page text:
%s`, truncateText(pageText, 8000))

	response, err := g.callAPI(ctx, prompt, 2000)
	if err != nil {
		return nil, err
	}

	var result []ats.JobPosting
	if err := json.Unmarshal([]byte(cleanJSON(response)), &result); err != nil {
		return nil, fmt.Errorf("parse extracted jobs: %w (response: %s)", err, truncateText(response, 200))
	}
	return result, nil
}

func (g *GeminiClient) ExtractPricingState(ctx context.Context, pageText, label string) (string, error) {
	prompt := fmt.Sprintf(`You are a pricing-page analyst.

Summarize the pricing structure on this %s pricing page.

Return JSON only with this exact structure:
{"summary": "tier names, prices, and billing periods in one paragraph"}

Page text:
%s`, label, truncateText(pageText, 8000))

	response, err := g.callAPI(ctx, prompt, 800)
	if err != nil {
		return "", err
	}

	var result struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(response)), &result); err != nil {
		return "", fmt.Errorf("parse pricing state: %w (response: %s)", err, truncateText(response, 200))
	}
	return result.Summary, nil
}

func (g *GeminiClient) SynthesizePricingDiff(ctx context.Context, oldState, newState string) (PricingDiff, error) {
	prompt := fmt.Sprintf(`You are a pricing analyst.

Compare two pricing states of the same product and describe what changed.

Return JSON only with this exact structure:
{"changed": boolean, "verdict": "one line", "analysis": "short paragraph"}

Older state:
%s

Current state:
%s`, truncateText(oldState, 2000), truncateText(newState, 2000))

	response, err := g.callAPI(ctx, prompt, 800)
	if err != nil {
		return PricingDiff{}, err
	}

	var result PricingDiff
	if err := json.Unmarshal([]byte(cleanJSON(response)), &result); err != nil {
		return PricingDiff{}, fmt.Errorf("parse pricing diff: %w (response: %s)", err, truncateText(response, 200))
	}
	return result, nil
}

// truncateText limits text to maxLen characters.
func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}

// cleanJSON strips markdown code fences when the model adds them anyway.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

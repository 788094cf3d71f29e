// Package ai calls the Google AI Studio (Gemini) generateContent API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Wire roles accepted by the completion endpoint. Assistant turns map to
// "model" on the wire.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrRateLimited signals an HTTP 429 from the completion endpoint.
var ErrRateLimited = errors.New("completion api rate limited")

// SafetyBlockedError reports a content-safety block signaled via
// promptFeedback.blockReason. It is distinct from generic API failures so
// callers can surface it separately.
type SafetyBlockedError struct {
	Reason string
}

func (e *SafetyBlockedError) Error() string {
	return fmt.Sprintf("completion blocked by safety filter: %s", e.Reason)
}

// APIError is any other non-success response from the completion endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("completion api error: %s", e.Message)
	}
	return fmt.Sprintf("completion api error: status %d", e.StatusCode)
}

// InlineData is a base64-encoded binary part.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part is one piece of a content block: text or inline binary data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// Content is one turn in the stateless completion request.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GeminiClient calls the Gemini API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient constructs a client with the provided API key.
func NewGeminiClient(apiKey string) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	return &GeminiClient{
		apiKey:     apiKey,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// GenerateContent sends the full conversation to the stateless endpoint and
// returns the first candidate's first text part. The last element of
// contents is the current turn; prior turns carry user/model roles.
func (c *GeminiClient) GenerateContent(ctx context.Context, model, systemInstruction string, contents []Content) (string, error) {
	if len(contents) == 0 {
		return "", fmt.Errorf("at least one content block required")
	}
	reqBody := generateRequest{
		Contents:       contents,
		SafetySettings: permissiveSafetySettings,
	}
	if strings.TrimSpace(systemInstruction) != "" {
		reqBody.SystemInstruction = &Content{
			Parts: []Part{{Text: systemInstruction}},
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, normalizeModel(model), c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return "", &APIError{StatusCode: resp.StatusCode, Message: errResp.Error.Message}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "malformed response body"}
	}
	// A safety block can arrive on a 2xx with no candidates.
	if reason := strings.TrimSpace(out.PromptFeedback.BlockReason); reason != "" {
		return "", &SafetyBlockedError{Reason: reason}
	}
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
		break
	}
	return "", &APIError{StatusCode: resp.StatusCode, Message: "empty response"}
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	model = strings.TrimPrefix(model, "models/")
	return model
}

var permissiveSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents          []Content       `json:"contents"`
	SystemInstruction *Content        `json:"systemInstruction,omitempty"`
	SafetySettings    []safetySetting `json:"safetySettings,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

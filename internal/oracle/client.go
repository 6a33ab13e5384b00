package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// GenerateResult is the raw model output plus token accounting.
type GenerateResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Client issues one structured-output generation call.
type Client interface {
	Generate(ctx context.Context, model, apiKey, systemInstruction, prompt string) (*GenerateResult, error)
}

// HTTPClient talks to the generative language REST API, requesting JSON
// output constrained to the schedule schema.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type generateRequest struct {
	Contents          []content       `json:"contents"`
	SystemInstruction *content        `json:"systemInstruction,omitempty"`
	GenerationConfig  *generateConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateConfig struct {
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// scheduleSchema constrains model output to the downstream classes contract.
var scheduleSchema = json.RawMessage(`{
  "type": "object",
  "required": ["classes"],
  "properties": {
    "classes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["crn", "courseNumber", "courseName", "days", "time", "location"],
        "properties": {
          "crn": {"type": "string"},
          "courseNumber": {"type": "string"},
          "courseName": {"type": "string"},
          "days": {"type": "string"},
          "time": {"type": "string"},
          "location": {"type": "string"},
          "isLab": {"type": "boolean"}
        }
      }
    }
  }
}`)

func (c *HTTPClient) Generate(ctx context.Context, model, apiKey, systemInstruction, prompt string) (*GenerateResult, error) {
	body := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: &generateConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   scheduleSchema,
		},
	}
	if systemInstruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: systemInstruction}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read generate response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("generation call failed",
			zap.String("model", model),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("generate call status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("generate response has no candidates")
	}

	return &GenerateResult{
		Text:         parsed.Candidates[0].Content.Parts[0].Text,
		InputTokens:  parsed.UsageMetadata.PromptTokenCount,
		OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// quotaIndicators mark errors that must trigger credential rotation and
// cooldown escalation. Service overload counts: hammering an overloaded
// backend is as useless as a spent quota.
var quotaIndicators = []string{
	"quota",
	"rate limit",
	"429",
	"exceeded your current quota",
	"503",
	"service unavailable",
	"model is overloaded",
	"try again later",
}

// IsQuotaError classifies an error as quota-kind. Timeouts deliberately do
// not match: they retry on the fallback model chain instead.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, indicator := range quotaIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

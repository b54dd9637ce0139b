package clova

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CompletionError is any transport or parse failure while streaming a
// completion. No retry is attempted at this layer.
type CompletionError struct {
	Detail string
}

func (e *CompletionError) Error() string {
	return "completion failed: " + e.Detail
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SamplingParams struct {
	TopP             float64  `json:"topP"`
	TopK             int      `json:"topK"`
	MaxTokens        int      `json:"maxTokens"`
	Temperature      float64  `json:"temperature"`
	RepeatPenalty    float64  `json:"repeatPenalty"`
	StopBefore       []string `json:"stopBefore"`
	IncludeAiFilters bool     `json:"includeAiFilters"`
	Seed             int      `json:"seed"`
}

func DefaultSampling() SamplingParams {
	return SamplingParams{
		TopP:             0.2,
		TopK:             0,
		MaxTokens:        1024,
		Temperature:      0.7,
		RepeatPenalty:    5.0,
		StopBefore:       []string{},
		IncludeAiFilters: true,
		Seed:             0,
	}
}

type CompletionClient struct {
	credentials Credentials
	httpClient  *http.Client
	url         string
}

func NewCompletionClient(host, path string, creds Credentials) *CompletionClient {
	return &CompletionClient{
		credentials: creds,
		httpClient:  &http.Client{Timeout: 90 * time.Second},
		url:         host + path,
	}
}

func (c *CompletionClient) SetBaseURL(url string) {
	c.url = url
}

type completionRequest struct {
	Messages []Message `json:"messages"`
	SamplingParams
}

// Complete streams the model response and returns only the final accumulated
// content. Each data event carries the full message so far, so the last
// non-sentinel chunk wins; chunks are never concatenated.
func (c *CompletionClient) Complete(ctx context.Context, messages []Message, params SamplingParams) (string, error) {
	body, err := json.Marshal(completionRequest{Messages: messages, SamplingParams: params})
	if err != nil {
		return "", &CompletionError{Detail: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &CompletionError{Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-NCP-CLOVASTUDIO-API-KEY", c.credentials.APIKey)
	req.Header.Set("X-NCP-APIGW-API-KEY", c.credentials.GatewayKey)
	req.Header.Set("X-NCP-CLOVASTUDIO-REQUEST-ID", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &CompletionError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", &CompletionError{Detail: fmt.Sprintf("status %d: %s", resp.StatusCode, string(raw))}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var lastContent string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if isDone(payload) {
			break
		}

		var chunk struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", &CompletionError{Detail: "malformed stream chunk: " + err.Error()}
		}
		lastContent = chunk.Message.Content
	}
	if err := scanner.Err(); err != nil {
		return "", &CompletionError{Detail: err.Error()}
	}

	return lastContent, nil
}

// isDone matches the end-of-stream sentinel in both observed framings:
// a bare or JSON-quoted [DONE] payload.
func isDone(payload string) bool {
	return payload == "[DONE]" || payload == `"[DONE]"` || strings.Contains(payload, `"data":"[DONE]"`)
}

// Package clova wraps the CLOVA Studio embedding and completion endpoints.
// Both report success inside the response body, not the transport status.
package clova

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Dim is the fixed embedding dimensionality; every collection schema and
// every accepted vector must match it.
const Dim = 1024

const successCode = "20000"

// EmbeddingError is a non-success status in the embedding response body.
type EmbeddingError struct {
	Code    string
	Message string
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: code %s: %s", e.Code, e.Message)
}

type Credentials struct {
	APIKey     string
	GatewayKey string
}

type Embedder struct {
	credentials Credentials
	httpClient  *http.Client
	limiter     *rate.Limiter
	url         string
}

// NewEmbedder builds the embedding client. ratePerSec throttles successive
// calls client-side; the upstream gateway rejects bursts.
func NewEmbedder(host, path string, creds Credentials, ratePerSec float64) *Embedder {
	return &Embedder{
		credentials: creds,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), 1),
		url:         "https://" + host + path,
	}
}

func (e *Embedder) SetBaseURL(url string) {
	e.url = url
}

// Embed turns one text into a 1024-dim vector. A failed call never yields a
// partial vector; callers drop the chunk instead.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("X-NCP-CLOVASTUDIO-API-KEY", e.credentials.APIKey)
	req.Header.Set("X-NCP-APIGW-API-KEY", e.credentials.GatewayKey)
	req.Header.Set("X-NCP-CLOVASTUDIO-REQUEST-ID", uuid.New().String())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &EmbeddingError{Code: "transport", Message: err.Error()}
	}
	defer resp.Body.Close()

	var parsed struct {
		Status struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"status"`
		Result struct {
			Embedding []float32 `json:"embedding"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &EmbeddingError{Code: "parse", Message: err.Error()}
	}

	if parsed.Status.Code != successCode {
		return nil, &EmbeddingError{Code: parsed.Status.Code, Message: parsed.Status.Message}
	}
	if len(parsed.Result.Embedding) != Dim {
		return nil, &EmbeddingError{
			Code:    parsed.Status.Code,
			Message: fmt.Sprintf("unexpected dimensionality %d", len(parsed.Result.Embedding)),
		}
	}

	return parsed.Result.Embedding, nil
}

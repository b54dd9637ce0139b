// Package milvus is a thin REST client for the external vector store. The
// store owns the ANN engine and metric computation; this client only moves
// schemas, rows, and search requests across the wire.
package milvus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// APIError is a non-zero status code in a vector-store response body.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("milvus api error: code %d: %s", e.Code, e.Message)
}

type Field struct {
	Name      string
	DataType  string // Int64, VarChar, FloatVector
	IsPrimary bool
	MaxLength int
	Dim       int
}

type Schema struct {
	AutoID bool
	Fields []Field
}

type IndexParams struct {
	Field          string
	MetricType     string
	IndexType      string
	M              int
	EfConstruction int
}

type Hit struct {
	ID       any     `json:"id"`
	Distance float64 `json:"distance"`
	Text     string  `json:"text"`
	Source   string  `json:"source"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	var out struct {
		Has bool `json:"has"`
	}
	err := c.post(ctx, "/v2/vectordb/collections/has", map[string]any{"collectionName": name}, &out)
	if err != nil {
		return false, err
	}
	return out.Has, nil
}

func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var out []string
	err := c.post(ctx, "/v2/vectordb/collections/list", map[string]any{}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCollection(ctx context.Context, name string, schema Schema) error {
	fields := make([]map[string]any, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		field := map[string]any{
			"fieldName": f.Name,
			"dataType":  f.DataType,
			"isPrimary": f.IsPrimary,
		}
		params := map[string]string{}
		if f.MaxLength > 0 {
			params["max_length"] = strconv.Itoa(f.MaxLength)
		}
		if f.Dim > 0 {
			params["dim"] = strconv.Itoa(f.Dim)
		}
		if len(params) > 0 {
			field["elementTypeParams"] = params
		}
		fields = append(fields, field)
	}

	payload := map[string]any{
		"collectionName": name,
		"schema": map[string]any{
			"autoID":             schema.AutoID,
			"enableDynamicField": false,
			"fields":             fields,
		},
	}
	return c.post(ctx, "/v2/vectordb/collections/create", payload, nil)
}

func (c *Client) DropCollection(ctx context.Context, name string) error {
	return c.post(ctx, "/v2/vectordb/collections/drop", map[string]any{"collectionName": name}, nil)
}

// Insert writes rows in bulk. The store reports how many it accepted; a
// partial failure is visible through the count, not rolled back.
func (c *Client) Insert(ctx context.Context, name string, rows []map[string]any) (int, error) {
	var out struct {
		InsertCount int `json:"insertCount"`
	}
	payload := map[string]any{"collectionName": name, "data": rows}
	if err := c.post(ctx, "/v2/vectordb/entities/insert", payload, &out); err != nil {
		return 0, err
	}
	return out.InsertCount, nil
}

func (c *Client) CreateIndex(ctx context.Context, name string, params IndexParams) error {
	payload := map[string]any{
		"collectionName": name,
		"indexParams": []map[string]any{{
			"fieldName":  params.Field,
			"indexName":  params.Field,
			"metricType": params.MetricType,
			"indexType":  params.IndexType,
			"params": map[string]any{
				"M":              params.M,
				"efConstruction": params.EfConstruction,
			},
		}},
	}
	return c.post(ctx, "/v2/vectordb/indexes/create", payload, nil)
}

// IndexState reports the build state of the named field's index, e.g.
// "InProgress" or "Finished".
func (c *Client) IndexState(ctx context.Context, name, field string) (string, error) {
	var out []struct {
		State string `json:"state"`
	}
	payload := map[string]any{"collectionName": name, "indexName": field}
	if err := c.post(ctx, "/v2/vectordb/indexes/describe", payload, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", &APIError{Code: -1, Message: "index not found: " + field}
	}
	return out[0].State, nil
}

func (c *Client) LoadCollection(ctx context.Context, name string) error {
	return c.post(ctx, "/v2/vectordb/collections/load", map[string]any{"collectionName": name}, nil)
}

func (c *Client) LoadState(ctx context.Context, name string) (string, error) {
	var out struct {
		LoadState string `json:"loadState"`
	}
	err := c.post(ctx, "/v2/vectordb/collections/get_load_state", map[string]any{"collectionName": name}, &out)
	if err != nil {
		return "", err
	}
	return out.LoadState, nil
}

// EnsureAlias repoints alias at collection, creating the alias on first use.
func (c *Client) EnsureAlias(ctx context.Context, alias, collection string) error {
	payload := map[string]any{"aliasName": alias, "collectionName": collection}
	if err := c.post(ctx, "/v2/vectordb/aliases/alter", payload, nil); err == nil {
		return nil
	}
	return c.post(ctx, "/v2/vectordb/aliases/create", payload, nil)
}

// Search runs an inner-product top-limit query against one collection.
func (c *Client) Search(ctx context.Context, name string, vector []float32, limit, ef int, outputFields []string) ([]Hit, error) {
	payload := map[string]any{
		"collectionName": name,
		"data":           [][]float32{vector},
		"annsField":      "embedding",
		"limit":          limit,
		"outputFields":   outputFields,
		"searchParams": map[string]any{
			"metricType": "IP",
			"params":     map[string]any{"ef": ef},
		},
	}

	var hits []Hit
	if err := c.post(ctx, "/v2/vectordb/entities/search", payload, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response for %s: %w", path, err)
	}
	if envelope.Code != 0 {
		return &APIError{Code: envelope.Code, Message: envelope.Message}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data for %s: %w", path, err)
		}
	}
	return nil
}

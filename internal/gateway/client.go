// Package gateway talks to the Call Backend Service through the dashboard's
// gateway proxy, and implements that proxy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"dispatchdesk/internal/call"
)

// maxResponseSize limits how much of a response body is read.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// ListMode selects which calls the list endpoint returns.
type ListMode string

const (
	ListAll    ListMode = "all"
	ListActive ListMode = "active"
)

// BatchResult is the backend's answer to a batch submission.
type BatchResult struct {
	// Processed is the backend-reported count, which may be less than the
	// number submitted.
	Processed int
	Raw       json.RawMessage
}

// Client is a typed client for the gateway proxy HTTP contract.
type Client struct {
	baseURL string
	client  *http.Client
	debug   *DebugLogger
}

// NewClient creates a client for the gateway at baseURL. A nil httpClient
// uses http.DefaultClient; a nil debug logger disables dumps.
func NewClient(baseURL string, httpClient *http.Client, debug *DebugLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		debug:   debug,
	}
}

// ListCalls fetches the call list in the given mode.
func (c *Client) ListCalls(ctx context.Context, mode ListMode) ([]call.Call, error) {
	if mode == "" {
		mode = ListAll
	}
	body, err := c.do(ctx, "list calls", http.MethodGet, "/api/calls?type="+url.QueryEscape(string(mode)), nil)
	if err != nil {
		return nil, err
	}
	var calls []call.Call
	if err := json.Unmarshal(body, &calls); err != nil {
		return nil, fmt.Errorf("list calls: decoding response: %w", err)
	}
	return calls, nil
}

// GetCall fetches one call. A missing call yields an error for which
// IsNotFound reports true.
func (c *Client) GetCall(ctx context.Context, callID string) (call.Call, error) {
	body, err := c.do(ctx, "get call", http.MethodGet, "/api/calls/"+url.PathEscape(callID), nil)
	if err != nil {
		return call.Call{}, err
	}
	var out call.Call
	if err := json.Unmarshal(body, &out); err != nil {
		return call.Call{}, fmt.Errorf("get call: decoding response: %w", err)
	}
	return out, nil
}

// AnswerCall marks a call as answered.
func (c *Client) AnswerCall(ctx context.Context, callID string) (json.RawMessage, error) {
	return c.do(ctx, "answer call", http.MethodPost, "/api/calls/"+url.PathEscape(callID)+"/answer", nil)
}

// SubmitTranscription sends a transcription for an existing call.
func (c *Client) SubmitTranscription(ctx context.Context, callID, transcription string) (json.RawMessage, error) {
	payload := struct {
		Transcription string `json:"transcription"`
	}{transcription}
	return c.do(ctx, "submit transcription", http.MethodPost, "/api/calls/"+url.PathEscape(callID)+"/transcription", payload)
}

// ProcessCall submits a single call for processing.
func (c *Client) ProcessCall(ctx context.Context, sub call.Submission) (json.RawMessage, error) {
	return c.do(ctx, "process call", http.MethodPost, "/api/calls", sub)
}

// SubmitBatch submits a batch of calls in one request.
func (c *Client) SubmitBatch(ctx context.Context, batch []call.Submission) (BatchResult, error) {
	body, err := c.do(ctx, "submit batch", http.MethodPost, "/api/calls/batch", batch)
	if err != nil {
		return BatchResult{}, err
	}
	processed := gjson.GetBytes(body, "processed")
	if !processed.Exists() || processed.Type != gjson.Number {
		return BatchResult{}, errors.New("submit batch: response missing processed count")
	}
	return BatchResult{Processed: int(processed.Int()), Raw: body}, nil
}

// Simulate asks the backend to process one synthetic call.
func (c *Client) Simulate(ctx context.Context, sub call.Submission) (json.RawMessage, error) {
	return c.do(ctx, "simulate call", http.MethodPost, "/api/calls/simulate", sub)
}

// BatchSimulate asks the backend to generate count synthetic calls itself.
func (c *Client) BatchSimulate(ctx context.Context, count int) (json.RawMessage, error) {
	return c.do(ctx, "batch simulate", http.MethodPost, "/api/calls/batch-simulate?count="+strconv.Itoa(count), nil)
}

// ClearAll deletes every call on the backend.
func (c *Client) ClearAll(ctx context.Context) error {
	_, err := c.do(ctx, "clear calls", http.MethodDelete, "/api/calls/clear", nil)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	start := time.Now()

	var (
		reqBody io.Reader
		data    []byte
	)
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encoding request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.debug.Request(op, method, req.URL.String(), data)

	resp, err := c.client.Do(req)
	if err != nil {
		c.debug.Failure(op, err, time.Since(start))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	duration := time.Since(start)
	if err != nil {
		c.debug.Failure(op, err, duration)
		return nil, fmt.Errorf("%s: reading response: %w", op, err)
	}
	c.debug.Response(op, resp.StatusCode, body, duration)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(op, resp.StatusCode, body)
	}
	return body, nil
}

// statusError builds a StatusError, preferring the {error} field of a JSON
// body over the raw text.
func statusError(op string, code int, body []byte) *StatusError {
	se := &StatusError{Op: op, StatusCode: code}
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "error"); msg.Exists() {
			se.Message = msg.String()
		}
		se.Code = gjson.GetBytes(body, "code").String()
	}
	if se.Message == "" {
		se.Message = strings.TrimSpace(truncateBody(body))
	}
	return se
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"dispatchdesk/internal/config"
	"dispatchdesk/internal/ratelimit"
)

// Proxy forwards dashboard API requests to the Call Backend Service.
// When the backend URL is unset or the placeholder, every request fails
// with a not-configured error instead of reaching the network.
type Proxy struct {
	backendURL string
	client     *http.Client
	limiter    *ratelimit.RateLimiter
	logger     *log.Logger
	mux        *http.ServeMux
}

// NewProxy creates a proxy to backendURL. limiter and logger may be nil.
func NewProxy(backendURL string, client *http.Client, limiter *ratelimit.RateLimiter, logger *log.Logger) *Proxy {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	p := &Proxy{
		backendURL: strings.TrimRight(strings.TrimSpace(backendURL), "/"),
		client:     client,
		limiter:    limiter,
		logger:     logger,
		mux:        http.NewServeMux(),
	}
	p.registerHandlers()
	return p
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mux.ServeHTTP(w, r)
}

// Configured reports whether the proxy has a usable backend URL.
func (p *Proxy) Configured() bool {
	return config.BackendConfigured(p.backendURL)
}

func (p *Proxy) registerHandlers() {
	p.mux.HandleFunc("GET /api/calls", p.handleList)
	p.mux.HandleFunc("POST /api/calls", p.handleProcess)
	p.mux.HandleFunc("POST /api/calls/batch", p.handleBatch)
	p.mux.HandleFunc("DELETE /api/calls/clear", p.handleClear)
	p.mux.HandleFunc("POST /api/calls/simulate", p.handleSimulate)
	p.mux.HandleFunc("POST /api/calls/batch-simulate", p.handleBatchSimulate)
	p.mux.HandleFunc("GET /api/calls/{callId}", p.handleGet)
	p.mux.HandleFunc("POST /api/calls/{callId}/answer", p.handleAnswer)
	p.mux.HandleFunc("POST /api/calls/{callId}/transcription", p.handleTranscription)
}

func (p *Proxy) handleList(w http.ResponseWriter, r *http.Request) {
	path := "/api/calls"
	if r.URL.Query().Get("type") == string(ListActive) {
		path = "/api/calls/active"
	}
	p.forward(w, r, "list calls", http.MethodGet, path, nil)
}

func (p *Proxy) handleGet(w http.ResponseWriter, r *http.Request) {
	if !p.guard(w) {
		return
	}
	status, body, err := p.roundTrip(r.Context(), http.MethodGet, callPath(r, ""), nil)
	if err != nil {
		p.fail(w, "get call", err)
		return
	}
	if status == http.StatusNotFound {
		writeError(w, http.StatusNotFound, "Call not found", "")
		return
	}
	p.reply(w, "get call", status, body)
}

// callPath builds the backend path for the call named in the request. The ID
// arrives decoded, so it is escaped again to stay a single path segment.
func callPath(r *http.Request, suffix string) string {
	return "/api/calls/" + url.PathEscape(r.PathValue("callId")) + suffix
}

func (p *Proxy) handleAnswer(w http.ResponseWriter, r *http.Request) {
	p.forward(w, r, "answer call", http.MethodPost, callPath(r, "/answer"), nil)
}

func (p *Proxy) handleTranscription(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Transcription string `json:"transcription"`
	}
	if !p.guard(w) {
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err), "")
		return
	}
	p.forward(w, r, "submit transcription", http.MethodPost, callPath(r, "/transcription"), body)
}

func (p *Proxy) handleProcess(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if !p.guard(w) {
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err), "")
		return
	}
	p.forward(w, r, "process call", http.MethodPost, "/api/calls/process", body)
}

func (p *Proxy) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body []json.RawMessage
	if !p.guard(w) {
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch must be a JSON array: %v", err), "")
		return
	}
	p.logger.Printf("proxy: forwarding batch of %d calls", len(body))
	p.forward(w, r, "submit batch", http.MethodPost, "/api/calls/batch", body)
}

func (p *Proxy) handleClear(w http.ResponseWriter, r *http.Request) {
	p.forward(w, r, "clear calls", http.MethodDelete, "/api/calls/clear", nil)
}

func (p *Proxy) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PhoneNumber   string `json:"phone_number"`
		Transcription string `json:"transcription"`
	}
	if !p.guard(w) {
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err), "")
		return
	}
	p.forward(w, r, "simulate call", http.MethodPost, "/api/calls/simulate", body)
}

func (p *Proxy) handleBatchSimulate(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count < 1 {
		count = 100
	}
	p.forward(w, r, "batch simulate", http.MethodPost, "/api/calls/batch-simulate?count="+strconv.Itoa(count), nil)
}

// forward relays one request and maps every backend failure to a 500.
func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, op, method, path string, payload any) {
	if !p.guard(w) {
		return
	}
	status, body, err := p.roundTrip(r.Context(), method, path, payload)
	if err != nil {
		p.fail(w, op, err)
		return
	}
	p.reply(w, op, status, body)
}

func (p *Proxy) reply(w http.ResponseWriter, op string, status int, body []byte) {
	if status < 200 || status > 299 {
		p.logger.Printf("proxy: %s: backend returned %d: %s", op, status, truncateBody(body))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Backend returned %d: %s", status, strings.TrimSpace(string(body))), "")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusInternalServerError, op+": backend returned invalid JSON", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (p *Proxy) fail(w http.ResponseWriter, op string, err error) {
	p.logger.Printf("proxy: %s: %v", op, err)
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", op, err), "")
}

// guard writes the not-configured error and returns false when the backend
// URL is unusable.
func (p *Proxy) guard(w http.ResponseWriter) bool {
	if p.Configured() {
		return true
	}
	writeError(w, http.StatusInternalServerError,
		"Backend API URL not configured. Please set the "+config.EnvBackendURL+" environment variable.",
		codeNotConfigured)
	return false
}

func (p *Proxy) roundTrip(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limit: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.backendURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	payload := struct {
		Error string `json:"error"`
		Code  string `json:"code,omitempty"`
	}{msg, code}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// HandlerTransport serves requests with an in-process handler instead of the
// network. It lets a Client talk to a Proxy without a listener.
type HandlerTransport struct {
	Handler http.Handler
}

func (t HandlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	in := req
	if in.Body == nil {
		in = req.Clone(req.Context())
		in.Body = http.NoBody
	}

	rec := &responseRecorder{header: make(http.Header)}
	t.Handler.ServeHTTP(rec, in)
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", rec.status, http.StatusText(rec.status)),
		StatusCode:    rec.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        rec.header,
		Body:          io.NopCloser(&rec.body),
		ContentLength: int64(rec.body.Len()),
		Request:       req,
	}, nil
}

// responseRecorder buffers a handler's response for HandlerTransport.
type responseRecorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) Header() http.Header { return r.header }

func (r *responseRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.WriteHeader(http.StatusOK)
	return r.body.Write(p)
}

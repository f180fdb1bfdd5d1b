// Package backendsim is an in-memory stand-in for the Call Backend Service.
// It serves the same routes the agent API does, classifies transcriptions by
// keyword instead of calling a model, and has knobs for injecting failures.
package backendsim

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"dispatchdesk/internal/call"
	"dispatchdesk/internal/core"
	"dispatchdesk/internal/data"
)

// timestampLayout matches what the agent service emits: no zone offset.
const timestampLayout = "2006-01-02T15:04:05.000000"

// DefaultBatchSimulateCount is used when batch-simulate has no valid count.
const DefaultBatchSimulateCount = 100

// Options configures a Server.
type Options struct {
	Clock  core.Clock
	Seed   int64 // exemplar pool seed; 0 picks one at random
	Logger *log.Logger
}

// Server is the fake backend.
type Server struct {
	mux    *http.ServeMux
	clock  core.Clock
	pool   *data.Pool
	logger *log.Logger

	mu     sync.Mutex
	calls  map[string]call.Call
	order  []string
	active map[string]bool

	requests    atomic.Int64
	batches     atomic.Int64
	failBatches atomic.Int64
	underReport atomic.Int64
}

// NewServer creates a fake backend with all routes registered.
func NewServer(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = core.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		mux:    http.NewServeMux(),
		clock:  opts.Clock,
		pool:   data.NewPool(nil, opts.Seed),
		logger: opts.Logger,
		calls:  make(map[string]call.Call),
		active: make(map[string]bool),
	}
	s.registerHandlers()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.mux.ServeHTTP(w, r)
	})
}

// FailNextBatches makes the next n batch requests answer 500.
func (s *Server) FailNextBatches(n int) { s.failBatches.Store(int64(n)) }

// SetUnderReport makes batch responses report n fewer processed calls than
// they produced, floored at zero.
func (s *Server) SetUnderReport(n int) { s.underReport.Store(int64(n)) }

// Requests returns the number of requests served.
func (s *Server) Requests() int64 { return s.requests.Load() }

// BatchRequests returns the number of batch requests received, failed ones
// included.
func (s *Server) BatchRequests() int64 { return s.batches.Load() }

// Add stores c as if it had been processed. A missing call id is generated.
func (s *Server) Add(c call.Call) call.Call {
	if c.CallID == "" {
		c.CallID = uuid.NewString()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = s.clock.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calls[c.CallID]; !ok {
		s.order = append(s.order, c.CallID)
	}
	s.calls[c.CallID] = c
	s.active[c.CallID] = true
	return c
}

// Calls returns every stored call in processing order.
func (s *Server) Calls() []call.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]call.Call, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.calls[id].Clone())
	}
	return out
}

func (s *Server) registerHandlers() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/calls", s.handleList)
	s.mux.HandleFunc("GET /api/calls/active", s.handleActive)
	s.mux.HandleFunc("GET /api/calls/{callId}", s.handleGet)
	s.mux.HandleFunc("POST /api/calls/process", s.handleProcess)
	s.mux.HandleFunc("POST /api/calls/batch", s.handleBatch)
	s.mux.HandleFunc("DELETE /api/calls/clear", s.handleClear)
	s.mux.HandleFunc("POST /api/calls/simulate", s.handleSimulate)
	s.mux.HandleFunc("POST /api/calls/batch-simulate", s.handleBatchSimulate)
	s.mux.HandleFunc("POST /api/calls/{callId}/answer", s.handleAnswer)
	s.mux.HandleFunc("POST /api/calls/{callId}/transcription", s.handleTranscription)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Ambulance Call Agent API", "status": "running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wireCalls(s.Calls()))
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var out []call.Call
	for _, id := range s.order {
		if s.active[id] {
			out = append(out, s.calls[id].Clone())
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, wireCalls(out))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(r.PathValue("callId"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Call not found")
		return
	}
	writeJSON(w, http.StatusOK, wire(c))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var sub call.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	c, err := s.process(sub)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wire(c))
}

// handleBatch processes every item. Items that fail still count toward
// processed, as error entries in calls.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	s.batches.Add(1)
	if s.takeFailure() {
		writeDetail(w, http.StatusInternalServerError, "batch processing failed")
		return
	}
	var subs []call.Submission
	if err := json.NewDecoder(r.Body).Decode(&subs); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	results := s.processAll(subs)
	processed := max(len(results)-int(s.underReport.Load()), 0)
	s.logger.Printf("backendsim: batch of %d, reporting %d processed", len(subs), processed)
	writeJSON(w, http.StatusOK, map[string]any{"processed": processed, "calls": results})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls = make(map[string]call.Call)
	s.active = make(map[string]bool)
	s.order = nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "All calls cleared"})
}

// handleSimulate processes one call, filling missing fields from the
// exemplar pool.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var sub call.Submission
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil && !errors.Is(err, io.EOF) {
			writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid JSON: %v", err))
			return
		}
	}
	generated := s.pool.Submission()
	if strings.TrimSpace(sub.Transcription) == "" {
		sub.Transcription = generated.Transcription
	}
	if sub.PhoneNumber == "" {
		sub.PhoneNumber = generated.PhoneNumber
	}
	c, err := s.process(sub)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wire(c))
}

func (s *Server) handleBatchSimulate(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count < 1 {
		count = DefaultBatchSimulateCount
	}
	results := s.processAll(s.pool.Submissions(count))
	writeJSON(w, http.StatusOK, map[string]any{"processed": len(results), "calls": results})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("callId")
	s.mu.Lock()
	_, ok := s.calls[id]
	if ok {
		delete(s.active, id)
	}
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Call not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"call_id": id, "status": "answered"})
}

// handleTranscription attaches operator-supplied text to a call. The original
// transcription is never replaced.
func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("callId")
	var body struct {
		Transcription string `json:"transcription"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if strings.TrimSpace(body.Transcription) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "transcription is required")
		return
	}

	s.mu.Lock()
	c, ok := s.calls[id]
	if ok {
		c = c.Clone()
		if c.ExtractedData == nil {
			c.ExtractedData = make(map[string]any)
		}
		notes, _ := c.ExtractedData["operator_transcriptions"].([]any)
		c.ExtractedData["operator_transcriptions"] = append(append([]any(nil), notes...), body.Transcription)
		s.calls[id] = c
	}
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Call not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"call_id": id, "success": true})
}

func (s *Server) lookup(id string) (call.Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	return c.Clone(), ok
}

func (s *Server) takeFailure() bool {
	for {
		n := s.failBatches.Load()
		if n <= 0 {
			return false
		}
		if s.failBatches.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

func (s *Server) process(sub call.Submission) (call.Call, error) {
	if strings.TrimSpace(sub.Transcription) == "" {
		return call.Call{}, errors.New("transcription is required")
	}
	ex := Classify(sub.Transcription)
	c := call.Call{
		PhoneNumber:   sub.PhoneNumber,
		Transcription: sub.Transcription,
		Criticality:   ex.Criticality,
		Condition:     ex.Condition,
		Symptoms:      ex.Symptoms,
		ExtractedData: map[string]any{"urgency_level": ex.Urgency},
	}
	return s.Add(c), nil
}

func (s *Server) processAll(subs []call.Submission) []any {
	results := make([]any, 0, len(subs))
	for _, sub := range subs {
		c, err := s.process(sub)
		if err != nil {
			results = append(results, map[string]string{"error": err.Error(), "phone_number": sub.PhoneNumber})
			continue
		}
		results = append(results, wire(c))
	}
	return results
}

// wireCall renders a call the way the agent service does.
type wireCall struct {
	call.Call
	Timestamp string `json:"timestamp"`
}

func wire(c call.Call) wireCall {
	return wireCall{Call: c, Timestamp: c.Timestamp.UTC().Format(timestampLayout)}
}

func wireCalls(calls []call.Call) []wireCall {
	out := make([]wireCall, len(calls))
	for i, c := range calls {
		out[i] = wire(c)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

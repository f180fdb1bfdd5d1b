// Package data provides the exemplar transcripts used to generate synthetic
// calls, loaded from built-in defaults or a CSV/JSON file.
package data

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dispatchdesk/internal/call"
)

// Exemplar is one sample call a synthetic payload is built from.
type Exemplar struct {
	PhoneNumber   string `json:"phone_number,omitempty"`
	Transcription string `json:"transcription"`
	// Criticality is the severity the exemplar is expected to be classified
	// as. It is informational and never sent to the backend.
	Criticality call.Criticality `json:"criticality,omitempty"`
}

// Pool holds a replaceable set of exemplars and samples from it.
// Safe for concurrent use.
type Pool struct {
	mu        sync.RWMutex
	exemplars []Exemplar

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewPool creates a pool over exemplars. An empty list uses Defaults.
// seed 0 picks a random seed.
func NewPool(exemplars []Exemplar, seed int64) *Pool {
	if len(exemplars) == 0 {
		exemplars = Defaults()
	}
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Pool{
		exemplars: append([]Exemplar(nil), exemplars...),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Len returns the number of exemplars.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.exemplars)
}

// Exemplars returns a copy of the current exemplars.
func (p *Pool) Exemplars() []Exemplar {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Exemplar(nil), p.exemplars...)
}

// Replace swaps in a new exemplar set. An empty set is rejected so the pool
// can always produce payloads.
func (p *Pool) Replace(exemplars []Exemplar) error {
	if len(exemplars) == 0 {
		return fmt.Errorf("exemplar set is empty")
	}
	p.mu.Lock()
	p.exemplars = append([]Exemplar(nil), exemplars...)
	p.mu.Unlock()
	return nil
}

// Next returns a random exemplar.
func (p *Pool) Next() Exemplar {
	p.mu.RLock()
	n := len(p.exemplars)
	p.mu.RUnlock()

	p.rngMu.Lock()
	idx := p.rng.Intn(n)
	p.rngMu.Unlock()

	p.mu.RLock()
	defer p.mu.RUnlock()
	// The set may have been replaced with a shorter one in between.
	return p.exemplars[idx%len(p.exemplars)]
}

// Submission builds a synthetic call payload: a random exemplar's
// transcription with a freshly randomized phone number.
func (p *Pool) Submission() call.Submission {
	ex := p.Next()
	p.rngMu.Lock()
	phone := RandomPhone(p.rng)
	p.rngMu.Unlock()
	return call.Submission{PhoneNumber: phone, Transcription: ex.Transcription}
}

// Submissions builds n synthetic payloads.
func (p *Pool) Submissions(n int) []call.Submission {
	out := make([]call.Submission, n)
	for i := range out {
		out[i] = p.Submission()
	}
	return out
}

// RandomPhone returns "+91 " followed by a random ten-digit number that does
// not start with zero.
func RandomPhone(rng *rand.Rand) string {
	return fmt.Sprintf("+91 %d", 1_000_000_000+rng.Int63n(9_000_000_000))
}

// LoadFile loads exemplars from a CSV or JSON file. Relative paths are
// resolved against baseDir.
func LoadFile(path, baseDir string) ([]Exemplar, error) {
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var exemplars []Exemplar
	var err error

	switch ext {
	case ".csv":
		exemplars, err = loadCSV(path)
	case ".json":
		exemplars, err = loadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported file format %q (use .csv or .json)", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	if len(exemplars) == 0 {
		return nil, fmt.Errorf("exemplar file %s is empty", path)
	}

	return exemplars, nil
}

// loadCSV loads a CSV file. The header row must name a transcription column;
// phone_number and criticality columns are optional.
func loadCSV(path string) ([]Exemplar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("CSV must have header row and at least one data row")
	}

	col := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["transcription"]; !ok {
		return nil, fmt.Errorf("CSV header has no transcription column")
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	exemplars := make([]Exemplar, 0, len(records)-1)
	for n, record := range records[1:] {
		ex := Exemplar{
			PhoneNumber:   field(record, "phone_number"),
			Transcription: field(record, "transcription"),
			Criticality:   call.Criticality(strings.ToLower(field(record, "criticality"))),
		}
		if err := validate(ex); err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		exemplars = append(exemplars, ex)
	}
	return exemplars, nil
}

// loadJSON loads a JSON file holding an array of exemplar objects.
func loadJSON(path string) ([]Exemplar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var exemplars []Exemplar
	if err := json.Unmarshal(raw, &exemplars); err != nil {
		return nil, fmt.Errorf("JSON must be an array of objects: %w", err)
	}
	for i := range exemplars {
		if err := validate(exemplars[i]); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return exemplars, nil
}

func validate(ex Exemplar) error {
	if strings.TrimSpace(ex.Transcription) == "" {
		return fmt.Errorf("empty transcription")
	}
	if ex.Criticality != call.CriticalityUnknown && !ex.Criticality.Valid() {
		return fmt.Errorf("invalid criticality %q", ex.Criticality)
	}
	return nil
}

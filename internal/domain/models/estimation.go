package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EstimationResult is the validated output of the decomposition engine for
// one series. On success Trend is always present; other fitted state
// components (slope, seasonal, cycle, ...) live in Components.
type EstimationResult struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message,omitempty"`
	Trend      []float64              `json:"trend,omitempty"`
	Components map[string][]float64   `json:"components,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

// MarshalJSON always writes trend on a success, so an empty fit survives
// a JSON round trip (cache, Kafka) as an empty trend rather than a missing one.
func (r EstimationResult) MarshalJSON() ([]byte, error) {
	type plain EstimationResult
	if !r.Success {
		return json.Marshal(plain(r))
	}
	trend := r.Trend
	if trend == nil {
		trend = []float64{}
	}
	return json.Marshal(struct {
		plain
		Trend []float64 `json:"trend"`
	}{plain(r), trend})
}

// Failure builds the record stored for a series that could not be estimated.
func Failure(message string) EstimationResult {
	return EstimationResult{Success: false, Message: message}
}

// ResultsMapping is an insertion-ordered map from series name to result.
// It is not safe for concurrent writes.
type ResultsMapping struct {
	keys  []string
	items map[string]EstimationResult
}

func NewResultsMapping() *ResultsMapping {
	return &ResultsMapping{items: make(map[string]EstimationResult)}
}

// Put inserts or replaces name. Replacing keeps the original position.
func (m *ResultsMapping) Put(name string, r EstimationResult) {
	if m.items == nil {
		m.items = make(map[string]EstimationResult)
	}
	if _, ok := m.items[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.items[name] = r
}

func (m *ResultsMapping) Get(name string) (EstimationResult, bool) {
	r, ok := m.items[name]
	return r, ok
}

// Names returns keys in insertion order.
func (m *ResultsMapping) Names() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *ResultsMapping) Len() int { return len(m.keys) }

// Successes counts entries with Success=true.
func (m *ResultsMapping) Successes() int {
	n := 0
	for _, k := range m.keys {
		if m.items[k].Success {
			n++
		}
	}
	return n
}

// Failures counts entries with Success=false.
func (m *ResultsMapping) Failures() int { return m.Len() - m.Successes() }

// Each visits entries in order until fn returns false.
func (m *ResultsMapping) Each(fn func(name string, r EstimationResult) bool) {
	for _, k := range m.keys {
		if !fn(k, m.items[k]) {
			return
		}
	}
}

// MarshalJSON writes a JSON object whose keys follow insertion order.
func (m *ResultsMapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.items[k])
		if err != nil {
			return nil, fmt.Errorf("marshal result %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object and preserves its key order.
func (m *ResultsMapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("results mapping: expected object")
	}
	*m = ResultsMapping{items: make(map[string]EstimationResult)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("results mapping: expected string key")
		}
		var r EstimationResult
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("results mapping %q: %w", key, err)
		}
		m.Put(key, r)
	}
	_, err = dec.Token()
	return err
}

// BatchRun is one execution of the batch over a dataset.
type BatchRun struct {
	ID         uuid.UUID       `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Columns    int             `json:"columns"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Omitted    int             `json:"omitted"`
	Results    *ResultsMapping `json:"results"`
}

// Job states for asynchronous decomposition.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// JobStatus tracks a queued decomposition.
type JobStatus struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Run       *BatchRun `json:"run,omitempty"`
}

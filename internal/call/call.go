// Package call defines the emergency call record and the operator edit overlay.
package call

import (
	"encoding/json"
	"strings"
	"time"
)

// Criticality is the backend-assigned severity of a call.
// The zero value means the backend did not classify the call.
type Criticality string

const (
	CriticalityHigh    Criticality = "high"
	CriticalityMedium  Criticality = "medium"
	CriticalityLow     Criticality = "low"
	CriticalityUnknown Criticality = ""
)

// Valid reports whether c is one of high, medium or low.
func (c Criticality) Valid() bool {
	switch c {
	case CriticalityHigh, CriticalityMedium, CriticalityLow:
		return true
	}
	return false
}

// UnmarshalJSON maps unrecognized values to CriticalityUnknown.
func (c *Criticality) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*c = CriticalityUnknown
		return nil
	}
	v := Criticality(strings.ToLower(strings.TrimSpace(*s)))
	if !v.Valid() {
		v = CriticalityUnknown
	}
	*c = v
	return nil
}

// Coordinates is a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is the structured location the backend may extract.
type Location struct {
	Address     string       `json:"address,omitempty"`
	Landmark    string       `json:"landmark,omitempty"`
	City        string       `json:"city,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Call is one emergency call record as owned by the backend.
// Values are treated as immutable once received.
type Call struct {
	CallID          string         `json:"call_id"`
	Timestamp       time.Time      `json:"timestamp"`
	PhoneNumber     string         `json:"phone_number"`
	Transcription   string         `json:"transcription"`
	Location        *Location      `json:"location,omitempty"`
	Address         string         `json:"address,omitempty"`
	Criticality     Criticality    `json:"criticality,omitempty"`
	Condition       string         `json:"condition,omitempty"`
	PatientAge      *int           `json:"patient_age,omitempty"`
	PatientGender   string         `json:"patient_gender,omitempty"`
	Symptoms        []string       `json:"symptoms,omitempty"`
	AdditionalNotes string         `json:"additional_notes,omitempty"`
	ExtractedData   map[string]any `json:"extracted_data,omitempty"`
}

// UnmarshalJSON accepts the timestamp formats the agent service emits.
// Python's isoformat() omits the zone offset, so RFC 3339 alone is not enough.
func (c *Call) UnmarshalJSON(data []byte) error {
	type plain Call
	aux := struct {
		*plain
		Timestamp string `json:"timestamp"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := ParseTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	c.Timestamp = ts
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a backend timestamp. Zone-less values are read as UTC.
// An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// AddressLine returns the flat address, falling back to the structured location.
func (c Call) AddressLine() string {
	if c.Address != "" {
		return c.Address
	}
	if c.Location != nil {
		return c.Location.Address
	}
	return ""
}

// Clone returns a deep copy of c so callers can hold it independently of a snapshot.
func (c Call) Clone() Call {
	out := c
	if c.Location != nil {
		loc := *c.Location
		if c.Location.Coordinates != nil {
			coords := *c.Location.Coordinates
			loc.Coordinates = &coords
		}
		out.Location = &loc
	}
	if c.PatientAge != nil {
		age := *c.PatientAge
		out.PatientAge = &age
	}
	if c.Symptoms != nil {
		out.Symptoms = append([]string(nil), c.Symptoms...)
	}
	if c.ExtractedData != nil {
		out.ExtractedData = make(map[string]any, len(c.ExtractedData))
		for k, v := range c.ExtractedData {
			out.ExtractedData[k] = v
		}
	}
	return out
}

// Submission is the payload for processing a single call, alone or in a batch.
type Submission struct {
	PhoneNumber   string `json:"phone_number"`
	Transcription string `json:"transcription"`
}

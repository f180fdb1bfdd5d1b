package call

import (
	"strconv"
	"strings"
)

const (
	NotExtracted       = "Not extracted"
	AddressUnspecified = "Address not specified"
	UnknownCriticality = "UNKNOWN"
)

// View is a call rendered for the operator. Missing extracted fields become
// placeholders instead of errors.
type View struct {
	CallID          string
	Time            string
	PhoneNumber     string
	Criticality     string
	Condition       string
	Address         string
	Landmark        string
	City            string
	PatientAge      string
	PatientGender   string
	Symptoms        string
	AdditionalNotes string
	Transcription   string
}

// Display renders c for the operator.
func Display(c Call) View {
	v := View{
		CallID:          c.CallID,
		PhoneNumber:     c.PhoneNumber,
		Criticality:     UnknownCriticality,
		Condition:       orPlaceholder(c.Condition, NotExtracted),
		Address:         orPlaceholder(c.AddressLine(), AddressUnspecified),
		Landmark:        NotExtracted,
		City:            NotExtracted,
		PatientAge:      NotExtracted,
		PatientGender:   orPlaceholder(c.PatientGender, NotExtracted),
		Symptoms:        NotExtracted,
		AdditionalNotes: orPlaceholder(c.AdditionalNotes, NotExtracted),
		Transcription:   c.Transcription,
	}
	if !c.Timestamp.IsZero() {
		v.Time = c.Timestamp.Format("2006-01-02 15:04:05")
	}
	if c.Criticality.Valid() {
		v.Criticality = strings.ToUpper(string(c.Criticality))
	}
	if c.Location != nil {
		v.Landmark = orPlaceholder(c.Location.Landmark, NotExtracted)
		v.City = orPlaceholder(c.Location.City, NotExtracted)
	}
	if c.PatientAge != nil {
		v.PatientAge = strconv.Itoa(*c.PatientAge)
	}
	if len(c.Symptoms) > 0 {
		v.Symptoms = strings.Join(c.Symptoms, ", ")
	}
	return v
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

package backendsim

import (
	"strings"

	"dispatchdesk/internal/call"
)

// Extraction is what the fake backend pulls out of a transcription.
type Extraction struct {
	Criticality call.Criticality
	Condition   string
	Symptoms    []string
	Urgency     string
}

type rule struct {
	keywords    []string
	criticality call.Criticality
	condition   string
}

// Rules are checked in order; the first match sets criticality and condition.
var rules = []rule{
	{[]string{"not breathing", "unconscious", "unresponsive"}, call.CriticalityHigh, "Respiratory arrest"},
	{[]string{"chest pain", "heart attack", "cardiac"}, call.CriticalityHigh, "Suspected cardiac event"},
	{[]string{"stroke", "face drooping", "slurred"}, call.CriticalityHigh, "Suspected stroke"},
	{[]string{"bleeding heavily", "severe bleeding", "accident", "crash"}, call.CriticalityHigh, "Trauma"},
	{[]string{"fracture", "broken", "fell", "fall"}, call.CriticalityMedium, "Suspected fracture"},
	{[]string{"burn"}, call.CriticalityMedium, "Burn injury"},
	{[]string{"breathing difficulty", "asthma", "short of breath"}, call.CriticalityMedium, "Breathing difficulty"},
	{[]string{"fever", "vomiting", "dizzy"}, call.CriticalityLow, "Illness"},
	{[]string{"cut", "sprain", "minor"}, call.CriticalityLow, "Minor injury"},
}

var symptomWords = []string{
	"chest pain", "sweating", "bleeding", "unconscious", "not breathing",
	"fever", "vomiting", "dizzy", "pain", "swelling", "burn", "headache",
}

var urgency = map[call.Criticality]string{
	call.CriticalityHigh:   "immediate",
	call.CriticalityMedium: "urgent",
	call.CriticalityLow:    "routine",
}

// Classify extracts criticality, condition and symptoms from text by keyword.
// Text matching no rule leaves criticality unknown.
func Classify(text string) Extraction {
	lower := strings.ToLower(text)
	var ex Extraction
	for _, r := range rules {
		if containsAny(lower, r.keywords) {
			ex.Criticality = r.criticality
			ex.Condition = r.condition
			break
		}
	}
	for _, w := range symptomWords {
		if strings.Contains(lower, w) {
			ex.Symptoms = append(ex.Symptoms, w)
		}
	}
	ex.Urgency = urgency[ex.Criticality]
	if ex.Urgency == "" {
		ex.Urgency = "unknown"
	}
	return ex
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

package call

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_UnmarshalBackendRecord(t *testing.T) {
	body := `{
		"call_id": "call_1",
		"timestamp": "2024-03-01T10:15:30.123456",
		"phone_number": "+91 98765 43210",
		"transcription": "chest pain",
		"criticality": "HIGH",
		"patient_age": null,
		"patient_gender": null,
		"symptoms": ["chest pain", "sweating"],
		"extracted_data": {"urgency_level": "immediate"}
	}`

	var c Call
	require.NoError(t, json.Unmarshal([]byte(body), &c))

	assert.Equal(t, "call_1", c.CallID)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 30, 123456000, time.UTC), c.Timestamp)
	assert.Equal(t, CriticalityHigh, c.Criticality)
	assert.Nil(t, c.PatientAge)
	assert.Empty(t, c.PatientGender)
	assert.Equal(t, []string{"chest pain", "sweating"}, c.Symptoms)
	assert.Equal(t, "immediate", c.ExtractedData["urgency_level"])
}

func TestCriticality_UnknownValues(t *testing.T) {
	tests := []struct {
		raw  string
		want Criticality
	}{
		{`"low"`, CriticalityLow},
		{`" Medium "`, CriticalityMedium},
		{`"critical"`, CriticalityUnknown},
		{`null`, CriticalityUnknown},
	}
	for _, tt := range tests {
		var c Criticality
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &c), tt.raw)
		assert.Equal(t, tt.want, c, tt.raw)
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2024-03-01T10:15:30Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC), ts)

	ts, err = ParseTimestamp("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestApply_DoesNotMutateSource(t *testing.T) {
	age := 40
	src := Call{
		CallID:     "c1",
		Condition:  "fall",
		PatientAge: &age,
		Symptoms:   []string{"bleeding"},
	}
	cond := "head injury"
	newAge := 41
	crit := CriticalityHigh
	landmark := "near metro"

	merged := Apply(src, Edits{
		CallID:      "c1",
		Condition:   &cond,
		PatientAge:  &newAge,
		Criticality: &crit,
		Landmark:    &landmark,
		Symptoms:    []string{"bleeding", "dizzy"},
	})

	assert.Equal(t, "head injury", merged.Condition)
	assert.Equal(t, 41, *merged.PatientAge)
	assert.Equal(t, CriticalityHigh, merged.Criticality)
	assert.Equal(t, "near metro", merged.Location.Landmark)
	assert.Equal(t, []string{"bleeding", "dizzy"}, merged.Symptoms)

	assert.Equal(t, "fall", src.Condition)
	assert.Equal(t, 40, *src.PatientAge)
	assert.Nil(t, src.Location)
	assert.Equal(t, []string{"bleeding"}, src.Symptoms)
}

func TestApply_IgnoresOtherCall(t *testing.T) {
	cond := "other"
	merged := Apply(Call{CallID: "a", Condition: "x"}, Edits{CallID: "b", Condition: &cond})
	assert.Equal(t, "x", merged.Condition)
}

func TestEdits_Empty(t *testing.T) {
	assert.True(t, Edits{CallID: "a"}.Empty())
	notes := ""
	assert.False(t, Edits{CallID: "a", AdditionalNotes: &notes}.Empty())
}

func TestDisplay_Placeholders(t *testing.T) {
	v := Display(Call{CallID: "c1", PhoneNumber: "+91 1"})

	assert.Equal(t, UnknownCriticality, v.Criticality)
	assert.Equal(t, NotExtracted, v.Condition)
	assert.Equal(t, AddressUnspecified, v.Address)
	assert.Equal(t, NotExtracted, v.PatientAge)
	assert.Equal(t, NotExtracted, v.Symptoms)
	assert.Empty(t, v.Time)
}

func TestDisplay_AddressFallsBackToLocation(t *testing.T) {
	age := 8
	v := Display(Call{
		CallID:      "c1",
		Criticality: CriticalityMedium,
		Location:    &Location{Address: "789 Koramangala", City: "Bangalore"},
		PatientAge:  &age,
		Symptoms:    []string{"swelling", "wheezing"},
	})

	assert.Equal(t, "MEDIUM", v.Criticality)
	assert.Equal(t, "789 Koramangala", v.Address)
	assert.Equal(t, "Bangalore", v.City)
	assert.Equal(t, NotExtracted, v.Landmark)
	assert.Equal(t, "8", v.PatientAge)
	assert.Equal(t, "swelling, wheezing", v.Symptoms)
}

package call

import "time"

// Edits is the operator overlay for one call. A nil field was not edited.
// Edits never mutate the synchronized Call; they are merged by Apply at the
// save boundary only.
type Edits struct {
	CallID          string       `json:"call_id"`
	Address         *string      `json:"address,omitempty"`
	Landmark        *string      `json:"landmark,omitempty"`
	City            *string      `json:"city,omitempty"`
	Criticality     *Criticality `json:"criticality,omitempty"`
	Condition       *string      `json:"condition,omitempty"`
	PatientAge      *int         `json:"patient_age,omitempty"`
	PatientGender   *string      `json:"patient_gender,omitempty"`
	Symptoms        []string     `json:"symptoms"`
	AdditionalNotes *string      `json:"additional_notes,omitempty"`
	SavedAt         time.Time    `json:"saved_at,omitempty"`
}

// Empty reports whether e carries no edited field.
func (e Edits) Empty() bool {
	return e.Address == nil && e.Landmark == nil && e.City == nil &&
		e.Criticality == nil && e.Condition == nil && e.PatientAge == nil &&
		e.PatientGender == nil && e.Symptoms == nil && e.AdditionalNotes == nil
}

// Apply returns c with the overlay e merged on top. c is not modified.
// An overlay for a different call is ignored.
func Apply(c Call, e Edits) Call {
	out := c.Clone()
	if e.CallID != c.CallID {
		return out
	}
	if e.Address != nil {
		out.Address = *e.Address
	}
	if e.Landmark != nil || e.City != nil {
		if out.Location == nil {
			out.Location = &Location{}
		}
		if e.Landmark != nil {
			out.Location.Landmark = *e.Landmark
		}
		if e.City != nil {
			out.Location.City = *e.City
		}
	}
	if e.Criticality != nil {
		out.Criticality = *e.Criticality
	}
	if e.Condition != nil {
		out.Condition = *e.Condition
	}
	if e.PatientAge != nil {
		age := *e.PatientAge
		out.PatientAge = &age
	}
	if e.PatientGender != nil {
		out.PatientGender = *e.PatientGender
	}
	if e.Symptoms != nil {
		out.Symptoms = append([]string(nil), e.Symptoms...)
	}
	if e.AdditionalNotes != nil {
		out.AdditionalNotes = *e.AdditionalNotes
	}
	return out
}

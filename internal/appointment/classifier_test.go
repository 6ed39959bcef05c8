package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func resolved(v string) FieldOutcome { return FieldOutcome{State: Resolved, Value: v} }

func TestClassify(t *testing.T) {
	ambiguous := FieldOutcome{State: Ambiguous, Alternatives: []string{"a", "b"}}
	missing := FieldOutcome{State: Unresolved}

	tests := []struct {
		name    string
		in      ClassifierInput
		status  Status
		reason  Reason
		fields  []Field
		message string
	}{
		{
			name:   "blank",
			in:     ClassifierInput{Blank: true, CandidateCount: 3},
			status: StatusError,
			reason: ReasonEmptyInput,
		},
		{
			name:   "nothing recognised",
			in:     ClassifierInput{Department: missing, Date: missing, Time: missing},
			status: StatusError,
			reason: ReasonNoEntities,
		},
		{
			name:   "all resolved",
			in:     ClassifierInput{CandidateCount: 3, Department: resolved("Dentistry"), Date: resolved("2025-09-26"), Time: resolved("15:00")},
			status: StatusOK,
		},
		{
			name:    "missing date and time",
			in:      ClassifierInput{CandidateCount: 1, Department: resolved("General Medicine"), Date: missing, Time: missing},
			status:  StatusNeedsClarification,
			fields:  []Field{FieldDate, FieldTime},
			message: "Missing date, time",
		},
		{
			name:    "ambiguous and missing",
			in:      ClassifierInput{CandidateCount: 2, Department: missing, Date: ambiguous, Time: missing},
			status:  StatusNeedsClarification,
			fields:  []Field{FieldDepartment, FieldDate, FieldTime},
			message: "Ambiguous date; Missing department, time",
		},
		{
			name:    "resolved state without value is missing",
			in:      ClassifierInput{CandidateCount: 3, Department: FieldOutcome{State: Resolved}, Date: resolved("2025-09-26"), Time: resolved("15:00")},
			status:  StatusNeedsClarification,
			fields:  []Field{FieldDepartment},
			message: "Missing department",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.in)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, tt.fields, got.Fields)
			if tt.message != "" {
				assert.Equal(t, tt.message, got.Message)
			}
		})
	}
}

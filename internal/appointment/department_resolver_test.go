package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepartmentResolver(t *testing.T) {
	r := NewDepartmentResolver(testVocab(t))

	tests := []struct {
		name     string
		mentions []string
		text     string
		state    OutcomeState
		value    string
	}{
		{name: "single alias", mentions: []string{"Dentist"}, state: Resolved, value: "Dentistry"},
		{name: "same department twice", mentions: []string{"dentist", "dental"}, state: Resolved, value: "Dentistry"},
		{name: "multi word alias", mentions: []string{"eye  doctor"}, state: Resolved, value: "Ophthalmology"},
		{name: "two departments take table priority", mentions: []string{"doctor", "dentist"}, state: Resolved, value: "Dentistry"},
		{name: "doctor outranks child", mentions: []string{"child", "doctor"}, state: Resolved, value: "General Medicine"},
		{name: "dentist outranks heart", mentions: []string{"heart", "dentist"}, state: Resolved, value: "Dentistry"},
		{name: "unknown mention skipped", mentions: []string{"plumber", "skin"}, state: Resolved, value: "Dermatology"},
		{name: "unknown mention", mentions: []string{"plumber"}, state: Unresolved},
		{name: "fallback scan", text: "my throat hurts", state: Resolved, value: "ENT"},
		{name: "fallback table priority", text: "heart and dental", state: Resolved, value: "Dentistry"},
		{name: "fallback nothing", text: "meet someone sometime", state: Unresolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cands []CandidateEntity
			for _, m := range tt.mentions {
				cands = append(cands, CandidateEntity{Kind: KindDepartment, Text: m})
			}
			got := r.Resolve(cands, tt.text)
			assert.Equal(t, tt.state, got.State)
			assert.Equal(t, tt.value, got.Value)
			assert.Empty(t, got.Alternatives)
		})
	}
}

func TestDepartmentResolverIgnoresOtherKinds(t *testing.T) {
	r := NewDepartmentResolver(testVocab(t))
	got := r.Resolve([]CandidateEntity{{Kind: KindDate, Text: "dentist"}}, "")
	assert.Equal(t, Unresolved, got.State)
}

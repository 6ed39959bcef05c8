package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleExtractorOrdersBySpan(t *testing.T) {
	e := NewRuleExtractor(testVocab(t))
	text := "Book dentist next Friday at 3pm"

	got := e.Extract(text)
	require.Len(t, got, 3)
	assert.Equal(t, CandidateEntity{Kind: KindDepartment, Text: "dentist", Span: Span{5, 12}}, got[0])
	assert.Equal(t, CandidateEntity{Kind: KindDate, Text: "next Friday", Span: Span{13, 24}}, got[1])
	assert.Equal(t, CandidateEntity{Kind: KindTime, Text: "3pm", Span: Span{28, 31}}, got[2])

	for _, c := range got {
		assert.Equal(t, c.Text, text[c.Span.Start:c.Span.End])
	}
}

func TestRuleExtractorKinds(t *testing.T) {
	e := NewRuleExtractor(testVocab(t))

	tests := []struct {
		name string
		text string
		kind Kind
		want []string
	}{
		{"bare weekday", "see you monday", KindDate, []string{"monday"}},
		{"qualifier", "coming Tue works", KindDate, []string{"coming Tue"}},
		{"relative", "today or the day after tomorrow", KindDate, []string{"today", "day after tomorrow"}},
		{"day month year", "on 26th of September, 2025 please", KindDate, []string{"26th of September, 2025"}},
		{"month day", "Sept 3 is fine", KindDate, []string{"Sept 3"}},
		{"abbreviated month with period", "dentist sept. 26th, 2025 at noon", KindDate, []string{"sept. 26th, 2025"}},
		{"day then abbreviated month", "on 3 Oct. please", KindDate, []string{"3 Oct."}},
		{"stem alias", "derma appointment", KindDepartment, []string{"derma"}},
		{"iso", "2025-12-01", KindDate, []string{"2025-12-01"}},
		{"numeric", "12/10 or 01.02.2026", KindDate, []string{"12/10", "01.02.2026"}},
		{"two weekdays", "Monday or Tuesday", KindDate, []string{"Monday", "Tuesday"}},
		{"twelve hour", "3 pm or 10:30 a.m.", KindTime, []string{"3 pm", "10:30 a.m."}},
		{"twenty four hour", "at 15:45", KindTime, []string{"15:45"}},
		{"named", "around noon", KindTime, []string{"noon"}},
		{"longest alias", "need an eye doctor", KindDepartment, []string{"eye doctor"}},
		{"multi word alias", "mental health clinic", KindDepartment, []string{"mental health"}},
		{"timezone", "3pm IST", KindTimezone, []string{"IST"}},
		{"no partial words", "appointment request for someone", KindDepartment, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := texts(candidatesOf(e.Extract(tt.text), tt.kind))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleExtractorEmpty(t *testing.T) {
	e := NewRuleExtractor(testVocab(t))
	assert.Nil(t, e.Extract(""))
	assert.Nil(t, e.Extract("   \n\t"))
	assert.Empty(t, e.Extract("Meet someone sometime"))
}

func TestRuleExtractorBareHourIsNotATime(t *testing.T) {
	e := NewRuleExtractor(testVocab(t))
	assert.Empty(t, candidatesOf(e.Extract("dentist at 3"), KindTime))
}

func TestCountCoreIgnoresTimezones(t *testing.T) {
	all := []CandidateEntity{
		{Kind: KindTimezone, Text: "IST"},
		{Kind: KindDate, Text: "today"},
	}
	assert.Equal(t, 1, countCore(all))
	assert.Equal(t, 0, countCore(all[:1]))
}

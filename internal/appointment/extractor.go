package appointment

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wolfman30/appointment-parser/internal/vocabulary"
)

// Extractor finds candidate entities in raw text. Implementations must be
// safe for concurrent use and must return candidates ordered by span start.
type Extractor interface {
	Extract(text string) []CandidateEntity
}

// RuleExtractor matches the configured vocabulary with regular expressions.
type RuleExtractor struct {
	patterns map[Kind][]*regexp.Regexp
}

var extractionKinds = []Kind{KindDate, KindTime, KindDepartment, KindTimezone}

const ordinalSuffix = `(?:st|nd|rd|th)?`

// NewRuleExtractor compiles the vocabulary into per-kind patterns.
func NewRuleExtractor(v *vocabulary.Vocabulary) *RuleExtractor {
	weekdays := alternation(v.WeekdayAliases(), true, true)
	months := alternation(v.MonthAliases(), true, true)
	meridiems := alternation(v.MeridiemWords(), false, true)
	year := `(?:,?\s+\d{4}\b)?`

	datePatterns := []string{
		weekdays,
		// 26 september 2025, 26th of sept
		`\b\d{1,2}` + ordinalSuffix + `(?:\s+of)?\s+` + months + `\.?` + year,
		// september 26, 2025, sept. 26th
		months + `\.?\s+\d{1,2}` + ordinalSuffix + `\b` + year,
		// 2025-09-26
		`\b\d{4}-\d{1,2}-\d{1,2}\b`,
		// 26/09/2025, 26-09-2025, 26.09.2025, 26/09
		`\b(?:\d{1,2}/\d{1,2}/\d{2,4}|\d{1,2}-\d{1,2}-\d{2,4}|\d{1,2}\.\d{1,2}\.\d{2,4}|\d{1,2}/\d{1,2})\b`,
	}
	if q := v.QualifierWords(); len(q) > 0 {
		// next friday, this monday
		datePatterns = append(datePatterns, alternation(q, true, true)+`\s+`+weekdays)
	}
	if rel := v.RelativePhrases(); len(rel) > 0 {
		datePatterns = append(datePatterns, alternation(rel, true, true))
	}

	timePatterns := []string{
		// 3pm, 3 pm, 3:30 p.m.
		`\b\d{1,2}(?::\d{2})?\s*` + meridiems,
		// 15:00
		`\b\d{1,2}:\d{2}\b`,
	}
	if named := v.NamedTimePhrases(); len(named) > 0 {
		timePatterns = append(timePatterns, alternation(named, true, true))
	}

	e := &RuleExtractor{patterns: make(map[Kind][]*regexp.Regexp)}
	e.patterns[KindDate] = compileAll(datePatterns)
	e.patterns[KindTime] = compileAll(timePatterns)
	if aliases := v.DepartmentAliases(); len(aliases) > 0 {
		e.patterns[KindDepartment] = compileAll([]string{alternation(aliases, true, true)})
	}
	if zones := v.TimezoneAliases(); len(zones) > 0 {
		e.patterns[KindTimezone] = compileAll([]string{alternation(zones, true, true)})
	}
	return e
}

func compileAll(exprs []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re := regexp.MustCompile(`(?i)` + expr)
		re.Longest()
		out = append(out, re)
	}
	return out
}

// alternation builds a non-capturing group matching any of the phrases,
// longest first, with internal whitespace relaxed. Word boundaries are only
// added next to word characters so "a.m." still matches before a space.
func alternation(phrases []string, leading, trailing bool) string {
	uniq := make(map[string]bool, len(phrases))
	var items []string
	for _, p := range phrases {
		p = vocabulary.NormalizePhrase(p)
		if p == "" || uniq[p] {
			continue
		}
		uniq[p] = true
		items = append(items, p)
	}
	sort.SliceStable(items, func(i, j int) bool { return len(items[i]) > len(items[j]) })

	parts := make([]string, 0, len(items))
	for _, item := range items {
		words := strings.Fields(item)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		expr := strings.Join(words, `\s+`)
		first, _ := utf8.DecodeRuneInString(item)
		last, _ := utf8.DecodeLastRuneInString(item)
		if leading && isWordRune(first) {
			expr = `\b` + expr
		}
		if trailing && isWordRune(last) {
			expr += `\b`
		}
		parts = append(parts, expr)
	}
	return `(?:` + strings.Join(parts, "|") + `)`
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Extract returns every candidate, ordered by position. Overlapping matches of
// the same kind keep the longer span; non-overlapping ones are all kept.
func (e *RuleExtractor) Extract(text string) []CandidateEntity {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []CandidateEntity
	for _, kind := range extractionKinds {
		out = append(out, e.extractKind(kind, text)...)
	}
	sortCandidates(out)
	return out
}

func (e *RuleExtractor) extractKind(kind Kind, text string) []CandidateEntity {
	var spans []Span
	for _, re := range e.patterns[kind] {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if loc[1] > loc[0] {
				spans = append(spans, Span{Start: loc[0], End: loc[1]})
			}
		}
	}
	if len(spans) == 0 {
		return nil
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Len() != spans[j].Len() {
			return spans[i].Len() > spans[j].Len()
		}
		return spans[i].Start < spans[j].Start
	})

	var kept []Span
	for _, s := range spans {
		overlaps := false
		for _, k := range kept {
			if s.Overlaps(k) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, s)
		}
	}

	out := make([]CandidateEntity, 0, len(kept))
	for _, s := range kept {
		out = append(out, CandidateEntity{Kind: kind, Text: text[s.Start:s.End], Span: s})
	}
	return out
}

var kindOrder = map[Kind]int{KindDate: 0, KindTime: 1, KindDepartment: 2, KindTimezone: 3}

func sortCandidates(c []CandidateEntity) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Span.Start != c[j].Span.Start {
			return c[i].Span.Start < c[j].Span.Start
		}
		if c[i].Span.End != c[j].Span.End {
			return c[i].Span.End > c[j].Span.End
		}
		return kindOrder[c[i].Kind] < kindOrder[c[j].Kind]
	})
}

// candidatesOf filters candidates by kind, preserving order.
func candidatesOf(all []CandidateEntity, kind Kind) []CandidateEntity {
	var out []CandidateEntity
	for _, c := range all {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// countCore counts DATE, TIME and DEPARTMENT candidates.
func countCore(all []CandidateEntity) int {
	n := 0
	for _, c := range all {
		switch c.Kind {
		case KindDate, KindTime, KindDepartment:
			n++
		}
	}
	return n
}

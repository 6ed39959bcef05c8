package appointment

import (
	"regexp"

	"github.com/wolfman30/appointment-parser/internal/vocabulary"
)

// DepartmentResolver maps department mentions to canonical labels.
type DepartmentResolver struct {
	vocab    *vocabulary.Vocabulary
	fallback []aliasPattern
}

type aliasPattern struct {
	department string
	re         *regexp.Regexp
}

// NewDepartmentResolver compiles one whole-word pattern per alias, in table
// order, for the full-text fallback scan.
func NewDepartmentResolver(v *vocabulary.Vocabulary) *DepartmentResolver {
	r := &DepartmentResolver{vocab: v}
	for _, d := range v.Departments {
		r.fallback = append(r.fallback, aliasPattern{
			department: d.Department,
			re:         regexp.MustCompile(`(?i)` + alternation([]string{d.Alias}, true, true)),
		})
	}
	return r
}

// Resolve looks up each DEPARTMENT candidate and keeps the department whose
// alias comes first in the table. When there are no candidates at all the
// full text is scanned in table order instead.
func (r *DepartmentResolver) Resolve(candidates []CandidateEntity, text string) FieldOutcome {
	var mentions []CandidateEntity
	for _, c := range candidates {
		if c.Kind == KindDepartment {
			mentions = append(mentions, c)
		}
	}
	if len(mentions) == 0 {
		return r.scan(text)
	}

	best, bestRank := "", -1
	for _, c := range mentions {
		dept, rank, ok := r.vocab.DepartmentPriority(c.Text)
		if !ok {
			continue
		}
		if bestRank < 0 || rank < bestRank {
			best, bestRank = dept, rank
		}
	}
	if bestRank < 0 {
		return FieldOutcome{State: Unresolved, Candidates: len(mentions)}
	}
	return FieldOutcome{State: Resolved, Value: best, Candidates: len(mentions)}
}

func (r *DepartmentResolver) scan(text string) FieldOutcome {
	for _, p := range r.fallback {
		if p.re.MatchString(text) {
			return FieldOutcome{State: Resolved, Value: p.department}
		}
	}
	return FieldOutcome{State: Unresolved}
}

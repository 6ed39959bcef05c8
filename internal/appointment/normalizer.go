package appointment

import (
	"github.com/wolfman30/appointment-parser/internal/vocabulary"
)

// Normalizer assembles resolver outcomes into a ResolvedAppointment.
type Normalizer struct {
	vocab           *vocabulary.Vocabulary
	defaultTimezone string
}

// NewNormalizer creates a normalizer with the deployment's default timezone.
func NewNormalizer(v *vocabulary.Vocabulary, defaultTimezone string) *Normalizer {
	return &Normalizer{vocab: v, defaultTimezone: defaultTimezone}
}

// Normalize copies only resolved values; ambiguous and unresolved fields stay
// nil. The timezone is the single explicitly mentioned zone, if there is
// exactly one, otherwise the default.
func (n *Normalizer) Normalize(department, date, clock FieldOutcome, zones []CandidateEntity) ResolvedAppointment {
	appt := ResolvedAppointment{Timezone: n.timezone(zones)}
	if department.IsResolved() {
		appt.Department = stringPtr(department.Value)
	}
	if date.IsResolved() {
		appt.Date = stringPtr(date.Value)
	}
	if clock.IsResolved() {
		appt.Time = stringPtr(clock.Value)
	}
	return appt
}

func (n *Normalizer) timezone(zones []CandidateEntity) string {
	var values []string
	for _, z := range zones {
		if z.Kind != KindTimezone {
			continue
		}
		if zone, ok := n.vocab.Zone(z.Text); ok {
			values = append(values, zone)
		}
	}
	if o := outcomeFromValues(values, len(zones)); o.IsResolved() {
		return o.Value
	}
	return n.defaultTimezone
}

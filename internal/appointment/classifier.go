package appointment

import "strings"

// ClassifierInput is everything the classifier needs. It holds no text, so
// classification cannot do any matching of its own.
type ClassifierInput struct {
	Blank          bool
	CandidateCount int
	Department     FieldOutcome
	Date           FieldOutcome
	Time           FieldOutcome
}

// Classification is the classifier's verdict.
type Classification struct {
	Status  Status
	Fields  []Field
	Reason  Reason
	Message string
}

// Classify applies the decision table:
//   - error: blank input, or no date/time/department candidates at all
//   - needs_clarification: any field ambiguous or unresolved
//   - ok: all three fields resolved
func Classify(in ClassifierInput) Classification {
	if in.Blank {
		return Classification{Status: StatusError, Reason: ReasonEmptyInput, Message: "Input text is empty"}
	}
	if in.CandidateCount == 0 {
		return Classification{
			Status:  StatusError,
			Reason:  ReasonNoEntities,
			Message: "No date, time or department found in request",
		}
	}

	var fields, ambiguous, missing []string
	for _, f := range []struct {
		field   Field
		outcome FieldOutcome
	}{
		{FieldDepartment, in.Department},
		{FieldDate, in.Date},
		{FieldTime, in.Time},
	} {
		switch {
		case f.outcome.State == Ambiguous:
			ambiguous = append(ambiguous, string(f.field))
		case !f.outcome.IsResolved():
			missing = append(missing, string(f.field))
		default:
			continue
		}
		fields = append(fields, string(f.field))
	}
	if len(fields) == 0 {
		return Classification{Status: StatusOK}
	}

	out := Classification{Status: StatusNeedsClarification}
	for _, f := range fields {
		out.Fields = append(out.Fields, Field(f))
	}
	var msg []string
	if len(ambiguous) > 0 {
		msg = append(msg, "Ambiguous "+strings.Join(ambiguous, ", "))
	}
	if len(missing) > 0 {
		msg = append(msg, "Missing "+strings.Join(missing, ", "))
	}
	out.Message = strings.Join(msg, "; ")
	return out
}

package appointment

// Kind classifies a candidate entity.
type Kind string

const (
	KindDate       Kind = "DATE"
	KindTime       Kind = "TIME"
	KindDepartment Kind = "DEPARTMENT"
	// KindTimezone marks an explicitly mentioned timezone. It never counts
	// towards the "anything recognisable" check.
	KindTimezone Kind = "TIMEZONE"
)

// Span is a half-open byte range into the source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span width in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// CandidateEntity is a text span that may represent a date, time, department
// or timezone. Invariant: source[Span.Start:Span.End] == Text.
type CandidateEntity struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
	Span Span   `json:"span"`
}

// RawRequest is the pipeline input.
type RawRequest struct {
	Text    string
	FromOCR bool
}

// Status is the overall classification of a parse.
type Status string

const (
	StatusOK                 Status = "ok"
	StatusNeedsClarification Status = "needs_clarification"
	StatusError              Status = "error"
)

// Field names a slot of the appointment.
type Field string

const (
	FieldDepartment Field = "department"
	FieldDate       Field = "date"
	FieldTime       Field = "time"
)

// Reason explains an error status.
type Reason string

const (
	ReasonEmptyInput Reason = "empty_input"
	ReasonNoEntities Reason = "no_entities"
	ReasonOCRFailed  Reason = "ocr_failed"
)

// Source records where the parsed text came from.
type Source string

const (
	SourceText  Source = "text"
	SourceImage Source = "image"
)

// OutcomeState tags how a single field resolved.
type OutcomeState string

const (
	Unresolved OutcomeState = "unresolved"
	Ambiguous  OutcomeState = "ambiguous"
	Resolved   OutcomeState = "resolved"
)

// FieldOutcome is what a resolver reports for one field. Value is set only
// when State is Resolved; Alternatives lists the distinct values found when
// State is Ambiguous.
type FieldOutcome struct {
	State        OutcomeState
	Value        string
	Alternatives []string
	Candidates   int
}

// IsResolved reports whether the outcome carries a single value.
func (o FieldOutcome) IsResolved() bool { return o.State == Resolved && o.Value != "" }

// outcomeFromValues turns a list of resolved values (duplicates allowed) into
// a tagged outcome. More than one distinct value is never collapsed.
func outcomeFromValues(values []string, candidates int) FieldOutcome {
	var distinct []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		distinct = append(distinct, v)
	}
	switch len(distinct) {
	case 0:
		return FieldOutcome{State: Unresolved, Candidates: candidates}
	case 1:
		return FieldOutcome{State: Resolved, Value: distinct[0], Candidates: candidates}
	default:
		return FieldOutcome{State: Ambiguous, Alternatives: distinct, Candidates: candidates}
	}
}

// ResolvedAppointment is the canonical scheduling record. Timezone is always
// set; the other fields are independently nullable.
type ResolvedAppointment struct {
	Department *string `json:"department"`
	Date       *string `json:"date"`
	Time       *string `json:"time"`
	Timezone   string  `json:"tz"`
}

// ParseResult is the contract returned to callers.
type ParseResult struct {
	Appointment              *ResolvedAppointment `json:"appointment"`
	Status                   Status               `json:"status"`
	MissingOrAmbiguousFields []Field              `json:"missing_or_ambiguous_fields,omitempty"`
	Reason                   Reason               `json:"reason,omitempty"`
	Message                  string               `json:"message,omitempty"`
	Source                   Source               `json:"source,omitempty"`
	OCRConfidence            *float64             `json:"ocr_confidence,omitempty"`
	EntitiesConfidence       *float64             `json:"entities_confidence,omitempty"`
	NormalizationConfidence  *float64             `json:"normalization_confidence,omitempty"`
}

func stringPtr(s string) *string {
	return &s
}

package appointment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/appointment-parser/internal/vocabulary"
)

const dateLayout = "2006-01-02"

var (
	isoDateRE     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	numericDateRE = regexp.MustCompile(`^(\d{1,2})([/.-])(\d{1,2})(?:([/.-])(\d{2,4}))?$`)
	dayMonthRE    = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?(?:\s+of)?\s+([a-z.]+)(?:,?\s+(\d{4}))?$`)
	monthDayRE    = regexp.MustCompile(`^([a-z.]+)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?$`)
	twelveHourRE  = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*([a-z.]+)$`)
	twentyFourRE  = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// DateTimeResolver turns DATE and TIME candidates into a calendar date and a
// 24-hour time. The reference instant is always passed in by the caller.
type DateTimeResolver struct {
	vocab *vocabulary.Vocabulary
}

// NewDateTimeResolver creates a resolver over the given vocabulary.
func NewDateTimeResolver(v *vocabulary.Vocabulary) *DateTimeResolver {
	return &DateTimeResolver{vocab: v}
}

// ResolveDate resolves every DATE candidate against ref. Candidates that do
// not parse are ignored; more than one distinct date is ambiguous.
func (r *DateTimeResolver) ResolveDate(candidates []CandidateEntity, ref time.Time) FieldOutcome {
	var values []string
	for _, c := range candidates {
		if c.Kind != KindDate {
			continue
		}
		if d, ok := r.ResolveDatePhrase(c.Text, ref); ok {
			values = append(values, d.Format(dateLayout))
		}
	}
	return outcomeFromValues(values, len(candidates))
}

// ResolveTime resolves every TIME candidate to HH:MM.
func (r *DateTimeResolver) ResolveTime(candidates []CandidateEntity) FieldOutcome {
	var values []string
	for _, c := range candidates {
		if c.Kind != KindTime {
			continue
		}
		if t, ok := r.ResolveTimePhrase(c.Text); ok {
			values = append(values, t)
		}
	}
	return outcomeFromValues(values, len(candidates))
}

// ResolveDatePhrase resolves a single date phrase. The returned time is a UTC
// midnight carrying the civil date.
func (r *DateTimeResolver) ResolveDatePhrase(phrase string, ref time.Time) (time.Time, bool) {
	p := vocabulary.NormalizePhrase(phrase)
	p = strings.TrimRight(p, ",;")
	if p == "" {
		return time.Time{}, false
	}
	today := civilDate(ref)

	if offset, ok := r.vocab.RelativeOffset(p); ok {
		return today.AddDate(0, 0, offset), true
	}

	if day, ok := r.vocab.Weekday(p); ok {
		return nextWeekday(today, day, false), true
	}
	if qualifier, rest, ok := strings.Cut(p, " "); ok {
		if day, ok := r.vocab.Weekday(rest); ok {
			switch {
			case r.vocab.IsNextQualifier(qualifier):
				return nextWeekday(today, day, true), true
			case r.vocab.IsThisQualifier(qualifier):
				return nextWeekday(today, day, false), true
			}
		}
	}

	if m := isoDateRE.FindStringSubmatch(p); m != nil {
		return fullDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	if m := numericDateRE.FindStringSubmatch(p); m != nil {
		if m[4] != "" && m[4] != m[2] {
			return time.Time{}, false
		}
		first, second := atoi(m[1]), atoi(m[3])
		day, month := first, second
		if r.vocab.NumericDateOrder == vocabulary.OrderMDY {
			day, month = second, first
		}
		if m[5] == "" {
			return yearlessDate(today, month, day)
		}
		return fullDate(expandYear(m[5]), month, day)
	}

	if m := dayMonthRE.FindStringSubmatch(p); m != nil {
		if month, ok := r.vocab.Month(m[2]); ok {
			return r.monthDay(today, int(month), atoi(m[1]), m[3])
		}
	}
	if m := monthDayRE.FindStringSubmatch(p); m != nil {
		if month, ok := r.vocab.Month(m[1]); ok {
			return r.monthDay(today, int(month), atoi(m[2]), m[3])
		}
	}
	return time.Time{}, false
}

func (r *DateTimeResolver) monthDay(today time.Time, month, day int, year string) (time.Time, bool) {
	if year == "" {
		return yearlessDate(today, month, day)
	}
	return fullDate(atoi(year), month, day)
}

// ResolveTimePhrase converts a time phrase to HH:MM.
func (r *DateTimeResolver) ResolveTimePhrase(phrase string) (string, bool) {
	p := vocabulary.NormalizePhrase(phrase)
	if p == "" {
		return "", false
	}
	if t, ok := r.vocab.NamedTime(p); ok {
		return t, true
	}
	if m := twentyFourRE.FindStringSubmatch(p); m != nil {
		return formatClock(atoi(m[1]), atoi(m[2]))
	}
	if m := twelveHourRE.FindStringSubmatch(p); m != nil {
		meridiem, ok := r.vocab.Meridiem(m[3])
		if !ok {
			return "", false
		}
		minute := 0
		if m[2] != "" {
			minute = atoi(m[2])
		}
		return to24Hour(atoi(m[1]), minute, meridiem)
	}
	return "", false
}

// to24Hour applies am/pm rules: 12am is 00:00, 12pm is 12:00.
func to24Hour(hour, minute int, meridiem string) (string, bool) {
	if hour < 1 || hour > 12 {
		return "", false
	}
	switch meridiem {
	case vocabulary.PM:
		if hour != 12 {
			hour += 12
		}
	case vocabulary.AM:
		if hour == 12 {
			hour = 0
		}
	default:
		return "", false
	}
	return formatClock(hour, minute)
}

func formatClock(hour, minute int) (string, bool) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// civilDate strips the clock from ref, keeping the calendar date as seen in
// ref's own location.
func civilDate(ref time.Time) time.Time {
	y, m, d := ref.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// nextWeekday returns the nearest date on or after today falling on day, or
// strictly after today when strict is set.
func nextWeekday(today time.Time, day time.Weekday, strict bool) time.Time {
	delta := (int(day) - int(today.Weekday()) + 7) % 7
	if strict && delta == 0 {
		delta = 7
	}
	return today.AddDate(0, 0, delta)
}

// fullDate validates an explicit year/month/day.
func fullDate(year, month, day int) (time.Time, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// yearlessDate places month/day in the reference year, rolling forward one
// year when that date is already past (or does not exist, e.g. 29 Feb).
func yearlessDate(today time.Time, month, day int) (time.Time, bool) {
	if t, ok := fullDate(today.Year(), month, day); ok && !t.Before(today) {
		return t, true
	}
	for year := today.Year() + 1; year <= today.Year()+4; year++ {
		if t, ok := fullDate(year, month, day); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func expandYear(s string) int {
	y := atoi(s)
	switch len(s) {
	case 2:
		return 2000 + y
	case 3:
		return -1
	}
	return y
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

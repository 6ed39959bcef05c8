package vocabulary

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Numeric date orders accepted in numeric_date_order.
const (
	OrderDMY = "DMY"
	OrderMDY = "MDY"
)

// Meridiem values returned by Meridiem.
const (
	AM = "am"
	PM = "pm"
)

var (
	// ErrInvalidVocabulary wraps every validation failure.
	ErrInvalidVocabulary = errors.New("invalid vocabulary")
)

// Vocabulary holds the locale-specific phrase tables used to extract and
// resolve appointment requests. It is built once at startup and must not be
// mutated afterwards; all lookups are safe for concurrent use.
type Vocabulary struct {
	Locale           string            `yaml:"locale"`
	NumericDateOrder string            `yaml:"numeric_date_order"`
	Weekdays         []WeekdayTerm     `yaml:"weekdays"`
	Months           []MonthTerm       `yaml:"months"`
	RelativeDays     []RelativeDay     `yaml:"relative_days"`
	Qualifiers       Qualifiers        `yaml:"qualifiers"`
	Meridiems        Meridiems         `yaml:"meridiems"`
	NamedTimes       []NamedTime       `yaml:"named_times"`
	Departments      []DepartmentAlias `yaml:"departments"`
	Timezones        []TimezoneAlias   `yaml:"timezones"`

	weekdays       map[string]time.Weekday
	months         map[string]time.Month
	relative       map[string]int
	next           map[string]bool
	this           map[string]bool
	meridiems      map[string]string
	namedTimes     map[string]string
	departments    map[string]string
	departmentRank map[string]int
	timezones      map[string]string
	fingerprint    string
}

// WeekdayTerm lists the spellings of one weekday.
type WeekdayTerm struct {
	Day     string   `yaml:"day"`
	Aliases []string `yaml:"aliases"`
}

// MonthTerm lists the spellings of one month (1-12).
type MonthTerm struct {
	Month   int      `yaml:"month"`
	Aliases []string `yaml:"aliases"`
}

// RelativeDay maps a phrase such as "tomorrow" to a day offset.
type RelativeDay struct {
	Phrase string `yaml:"phrase"`
	Offset int    `yaml:"offset"`
}

// Qualifiers are the words that may precede a weekday. "next" words resolve
// strictly after the reference date, "this" words include it.
type Qualifiers struct {
	Next []string `yaml:"next"`
	This []string `yaml:"this"`
}

// Meridiems lists am/pm spellings.
type Meridiems struct {
	AM []string `yaml:"am"`
	PM []string `yaml:"pm"`
}

// NamedTime maps a phrase such as "noon" to a 24-hour HH:MM value.
type NamedTime struct {
	Phrase string `yaml:"phrase"`
	Time   string `yaml:"time"`
}

// DepartmentAlias maps a free-text alias to a canonical department label.
// Table order is lookup priority.
type DepartmentAlias struct {
	Alias      string `yaml:"alias"`
	Department string `yaml:"department"`
}

// TimezoneAlias maps a spoken timezone to an IANA identifier.
type TimezoneAlias struct {
	Alias string `yaml:"alias"`
	Zone  string `yaml:"zone"`
}

// Default returns the embedded English vocabulary.
func Default() (*Vocabulary, error) {
	return Parse(defaultYAML)
}

// MustDefault is Default for tests and package initialisation.
func MustDefault() *Vocabulary {
	v, err := Default()
	if err != nil {
		panic(err)
	}
	return v
}

// Load reads a vocabulary file. An empty path returns the embedded default.
func Load(path string) (*Vocabulary, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: read %s: %w", path, err)
	}
	v, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: %s: %w", path, err)
	}
	return v, nil
}

// Parse decodes, validates and indexes a YAML vocabulary document.
func Parse(data []byte) (*Vocabulary, error) {
	v := &Vocabulary{}
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("vocabulary: parse: %w", err)
	}
	if v.NumericDateOrder == "" {
		v.NumericDateOrder = OrderDMY
	}
	v.NumericDateOrder = strings.ToUpper(strings.TrimSpace(v.NumericDateOrder))
	if err := v.Validate(); err != nil {
		return nil, err
	}
	v.index()
	sum := sha256.Sum256(data)
	v.fingerprint = hex.EncodeToString(sum[:8])
	return v, nil
}

// Fingerprint identifies the document the vocabulary was parsed from. Two
// vocabularies with different tables never share a fingerprint.
func (v *Vocabulary) Fingerprint() string {
	return v.fingerprint
}

// Validate checks that every table entry is usable.
func (v *Vocabulary) Validate() error {
	if v.NumericDateOrder != OrderDMY && v.NumericDateOrder != OrderMDY {
		return fmt.Errorf("%w: numeric_date_order must be DMY or MDY, got %q", ErrInvalidVocabulary, v.NumericDateOrder)
	}
	if len(v.Weekdays) == 0 {
		return fmt.Errorf("%w: weekdays are required", ErrInvalidVocabulary)
	}
	for _, w := range v.Weekdays {
		if _, ok := weekdayByName[strings.ToLower(w.Day)]; !ok {
			return fmt.Errorf("%w: unknown weekday %q", ErrInvalidVocabulary, w.Day)
		}
		if err := requireAliases("weekday "+w.Day, w.Aliases); err != nil {
			return err
		}
	}
	if len(v.Months) == 0 {
		return fmt.Errorf("%w: months are required", ErrInvalidVocabulary)
	}
	for _, m := range v.Months {
		if m.Month < 1 || m.Month > 12 {
			return fmt.Errorf("%w: month %d out of range", ErrInvalidVocabulary, m.Month)
		}
		if err := requireAliases(fmt.Sprintf("month %d", m.Month), m.Aliases); err != nil {
			return err
		}
	}
	for _, r := range v.RelativeDays {
		if strings.TrimSpace(r.Phrase) == "" {
			return fmt.Errorf("%w: relative day phrase is empty", ErrInvalidVocabulary)
		}
		if r.Offset < 0 {
			return fmt.Errorf("%w: relative day %q has negative offset", ErrInvalidVocabulary, r.Phrase)
		}
	}
	if err := requireAliases("meridiem am", v.Meridiems.AM); err != nil {
		return err
	}
	if err := requireAliases("meridiem pm", v.Meridiems.PM); err != nil {
		return err
	}
	for _, n := range v.NamedTimes {
		if _, err := time.Parse("15:04", n.Time); err != nil || len(n.Time) != 5 {
			return fmt.Errorf("%w: named time %q must be HH:MM, got %q", ErrInvalidVocabulary, n.Phrase, n.Time)
		}
	}
	seen := make(map[string]string, len(v.Departments))
	for _, d := range v.Departments {
		alias := normalizePhrase(d.Alias)
		if alias == "" || strings.TrimSpace(d.Department) == "" {
			return fmt.Errorf("%w: department alias and label are required", ErrInvalidVocabulary)
		}
		if prev, ok := seen[alias]; ok && prev != d.Department {
			return fmt.Errorf("%w: alias %q maps to both %q and %q", ErrInvalidVocabulary, d.Alias, prev, d.Department)
		}
		seen[alias] = d.Department
	}
	for _, tz := range v.Timezones {
		if strings.TrimSpace(tz.Alias) == "" {
			return fmt.Errorf("%w: timezone alias is empty", ErrInvalidVocabulary)
		}
		if _, err := time.LoadLocation(tz.Zone); err != nil {
			return fmt.Errorf("%w: timezone %q: %v", ErrInvalidVocabulary, tz.Alias, err)
		}
	}
	return nil
}

func requireAliases(what string, aliases []string) error {
	if len(aliases) == 0 {
		return fmt.Errorf("%w: %s has no aliases", ErrInvalidVocabulary, what)
	}
	for _, a := range aliases {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("%w: %s has an empty alias", ErrInvalidVocabulary, what)
		}
	}
	return nil
}

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (v *Vocabulary) index() {
	v.weekdays = make(map[string]time.Weekday)
	for _, w := range v.Weekdays {
		day := weekdayByName[strings.ToLower(w.Day)]
		for _, a := range w.Aliases {
			v.weekdays[normalizePhrase(a)] = day
		}
	}
	v.months = make(map[string]time.Month)
	for _, m := range v.Months {
		for _, a := range m.Aliases {
			v.months[normalizePhrase(a)] = time.Month(m.Month)
		}
	}
	v.relative = make(map[string]int)
	for _, r := range v.RelativeDays {
		v.relative[normalizePhrase(r.Phrase)] = r.Offset
	}
	v.next = toSet(v.Qualifiers.Next)
	v.this = toSet(v.Qualifiers.This)
	v.meridiems = make(map[string]string)
	for _, a := range v.Meridiems.AM {
		v.meridiems[normalizePhrase(a)] = AM
	}
	for _, a := range v.Meridiems.PM {
		v.meridiems[normalizePhrase(a)] = PM
	}
	v.namedTimes = make(map[string]string)
	for _, n := range v.NamedTimes {
		v.namedTimes[normalizePhrase(n.Phrase)] = n.Time
	}
	v.departments = make(map[string]string)
	v.departmentRank = make(map[string]int)
	for i, d := range v.Departments {
		alias := normalizePhrase(d.Alias)
		if _, ok := v.departments[alias]; !ok {
			v.departments[alias] = strings.TrimSpace(d.Department)
			v.departmentRank[alias] = i
		}
	}
	v.timezones = make(map[string]string)
	for _, tz := range v.Timezones {
		v.timezones[normalizePhrase(tz.Alias)] = tz.Zone
	}
}

func toSet(words []string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[normalizePhrase(w)] = true
	}
	return out
}

// normalizePhrase lowercases and collapses internal whitespace so "Day  After
// Tomorrow" and "day after tomorrow" share a key.
func normalizePhrase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizePhrase exposes the key normalisation used by every lookup.
func NormalizePhrase(s string) string {
	return normalizePhrase(s)
}

// Weekday looks up a weekday spelling.
func (v *Vocabulary) Weekday(word string) (time.Weekday, bool) {
	d, ok := v.weekdays[normalizePhrase(word)]
	return d, ok
}

// Month looks up a month spelling. A trailing period ("Sept.") is ignored.
func (v *Vocabulary) Month(word string) (time.Month, bool) {
	m, ok := v.months[strings.TrimSuffix(normalizePhrase(word), ".")]
	return m, ok
}

// RelativeOffset returns the day offset for phrases like "tomorrow".
func (v *Vocabulary) RelativeOffset(phrase string) (int, bool) {
	o, ok := v.relative[normalizePhrase(phrase)]
	return o, ok
}

// IsNextQualifier reports whether word means "strictly after the reference date".
func (v *Vocabulary) IsNextQualifier(word string) bool {
	return v.next[normalizePhrase(word)]
}

// IsThisQualifier reports whether word means "on or after the reference date".
func (v *Vocabulary) IsThisQualifier(word string) bool {
	return v.this[normalizePhrase(word)]
}

// Meridiem maps an am/pm spelling to AM or PM.
func (v *Vocabulary) Meridiem(word string) (string, bool) {
	m, ok := v.meridiems[normalizePhrase(word)]
	return m, ok
}

// NamedTime returns the HH:MM value for phrases like "noon".
func (v *Vocabulary) NamedTime(phrase string) (string, bool) {
	t, ok := v.namedTimes[normalizePhrase(phrase)]
	return t, ok
}

// Department returns the canonical label for an alias.
func (v *Vocabulary) Department(alias string) (string, bool) {
	d, ok := v.departments[normalizePhrase(alias)]
	return d, ok
}

// DepartmentPriority returns the canonical label for an alias together with
// the alias's position in the table. Lower ranks win.
func (v *Vocabulary) DepartmentPriority(alias string) (string, int, bool) {
	key := normalizePhrase(alias)
	d, ok := v.departments[key]
	if !ok {
		return "", 0, false
	}
	return d, v.departmentRank[key], true
}

// Zone returns the IANA identifier for a timezone alias.
func (v *Vocabulary) Zone(alias string) (string, bool) {
	z, ok := v.timezones[normalizePhrase(alias)]
	return z, ok
}

// WeekdayAliases returns every weekday spelling.
func (v *Vocabulary) WeekdayAliases() []string {
	var out []string
	for _, w := range v.Weekdays {
		out = append(out, w.Aliases...)
	}
	return out
}

// MonthAliases returns every month spelling.
func (v *Vocabulary) MonthAliases() []string {
	var out []string
	for _, m := range v.Months {
		out = append(out, m.Aliases...)
	}
	return out
}

// RelativePhrases returns every relative day phrase.
func (v *Vocabulary) RelativePhrases() []string {
	out := make([]string, 0, len(v.RelativeDays))
	for _, r := range v.RelativeDays {
		out = append(out, r.Phrase)
	}
	return out
}

// QualifierWords returns both "next" and "this" qualifiers.
func (v *Vocabulary) QualifierWords() []string {
	out := append([]string{}, v.Qualifiers.Next...)
	return append(out, v.Qualifiers.This...)
}

// MeridiemWords returns every am/pm spelling.
func (v *Vocabulary) MeridiemWords() []string {
	out := append([]string{}, v.Meridiems.AM...)
	return append(out, v.Meridiems.PM...)
}

// NamedTimePhrases returns every named time phrase.
func (v *Vocabulary) NamedTimePhrases() []string {
	out := make([]string, 0, len(v.NamedTimes))
	for _, n := range v.NamedTimes {
		out = append(out, n.Phrase)
	}
	return out
}

// DepartmentAliases returns aliases in table-priority order.
func (v *Vocabulary) DepartmentAliases() []string {
	out := make([]string, 0, len(v.Departments))
	for _, d := range v.Departments {
		out = append(out, d.Alias)
	}
	return out
}

// TimezoneAliases returns every timezone alias.
func (v *Vocabulary) TimezoneAliases() []string {
	out := make([]string, 0, len(v.Timezones))
	for _, tz := range v.Timezones {
		out = append(out, tz.Alias)
	}
	return out
}

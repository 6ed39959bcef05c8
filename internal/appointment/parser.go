package appointment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/appointment-parser/internal/observability/metrics"
	"github.com/wolfman30/appointment-parser/internal/ocr"
	"github.com/wolfman30/appointment-parser/internal/vocabulary"
	"github.com/wolfman30/appointment-parser/pkg/logging"
)

var parserTracer = otel.Tracer("appointment-parser.internal.appointment")

// ErrOCRUnavailable is reported when an image parse is requested but no
// recognizer is configured.
var ErrOCRUnavailable = errors.New("appointment: no OCR recognizer configured")

// ResultCache stores pipeline results keyed by input text and reference date.
// Implementations must be safe for concurrent use.
type ResultCache interface {
	Get(ctx context.Context, key string) (*ParseResult, bool, error)
	Set(ctx context.Context, key string, result ParseResult) error
}

// Parser sequences extraction, resolution, normalization and classification.
// A Parser holds only immutable configuration and is safe for concurrent use.
type Parser struct {
	vocab       *vocabulary.Vocabulary
	location    *time.Location
	extractor   Extractor
	dates       *DateTimeResolver
	departments *DepartmentResolver
	normalizer  *Normalizer
	recognizer  ocr.Recognizer
	provider    string
	cache       ResultCache
	metrics     *metrics.ParseMetrics
	logger      *logging.Logger
	clock       func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithExtractor swaps the rule-based extractor.
func WithExtractor(e Extractor) Option {
	return func(p *Parser) {
		if e != nil {
			p.extractor = e
		}
	}
}

// WithRecognizer enables ParseImage. provider labels metrics and logs.
func WithRecognizer(r ocr.Recognizer, provider string) Option {
	return func(p *Parser) {
		p.recognizer = r
		p.provider = provider
	}
}

func WithCache(c ResultCache) Option {
	return func(p *Parser) { p.cache = c }
}

func WithMetrics(m *metrics.ParseMetrics) Option {
	return func(p *Parser) { p.metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock replaces the wall clock used when no reference time is given.
func WithClock(clock func() time.Time) Option {
	return func(p *Parser) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithReferenceTime pins "now" for every parse.
func WithReferenceTime(ref time.Time) Option {
	return WithClock(func() time.Time { return ref })
}

// NewParser wires the pipeline for the given vocabulary and default IANA
// timezone.
func NewParser(v *vocabulary.Vocabulary, defaultTimezone string, opts ...Option) (*Parser, error) {
	if v == nil {
		return nil, errors.New("appointment: vocabulary is required")
	}
	loc, err := LoadZone(defaultTimezone)
	if err != nil {
		return nil, err
	}
	p := &Parser{
		vocab:       v,
		location:    loc,
		extractor:   NewRuleExtractor(v),
		dates:       NewDateTimeResolver(v),
		departments: NewDepartmentResolver(v),
		normalizer:  NewNormalizer(v, loc.String()),
		logger:      logging.Default(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Location is the default timezone.
func (p *Parser) Location() *time.Location { return p.location }

// Now returns the parser's reference instant in the default timezone.
func (p *Parser) Now() time.Time { return p.clock().In(p.location) }

// ParseText parses free text against the parser clock.
func (p *Parser) ParseText(ctx context.Context, text string) ParseResult {
	return p.ParseTextAt(ctx, text, p.Now())
}

// ParseTextAt parses free text against an explicit reference instant.
func (p *Parser) ParseTextAt(ctx context.Context, text string, ref time.Time) ParseResult {
	start := time.Now()
	ctx, span := parserTracer.Start(ctx, "appointment.parse_text")
	defer span.End()

	result := p.run(ctx, RawRequest{Text: text}, ref)
	result.Source = SourceText
	p.finish(ctx, result, len(text), start)
	span.SetAttributes(attribute.String("appointment.status", string(result.Status)))
	return result
}

// ParseOCRText parses text produced by an OCR engine outside this process.
// Blank text is an OCR failure, not an empty request.
func (p *Parser) ParseOCRText(ctx context.Context, rawText string) ParseResult {
	return p.ParseOCRTextAt(ctx, rawText, p.Now())
}

func (p *Parser) ParseOCRTextAt(ctx context.Context, rawText string, ref time.Time) ParseResult {
	start := time.Now()
	ctx, span := parserTracer.Start(ctx, "appointment.parse_ocr_text")
	defer span.End()

	result := p.parseRecognized(ctx, rawText, ref)
	result.Source = SourceImage
	p.finish(ctx, result, len(rawText), start)
	span.SetAttributes(attribute.String("appointment.status", string(result.Status)))
	return result
}

// ParseImage recognises the image and parses the resulting text. Any
// recognizer failure, including cancellation, short-circuits to ocr_failed.
func (p *Parser) ParseImage(ctx context.Context, img ocr.Image) ParseResult {
	return p.ParseImageAt(ctx, img, p.Now())
}

func (p *Parser) ParseImageAt(ctx context.Context, img ocr.Image, ref time.Time) ParseResult {
	start := time.Now()
	ctx, span := parserTracer.Start(ctx, "appointment.parse_image")
	defer span.End()
	span.SetAttributes(
		attribute.String("ocr.provider", p.provider),
		attribute.Int("ocr.image_bytes", len(img.Data)),
	)

	recognized, err := p.recognize(ctx, img)
	var result ParseResult
	switch {
	case err != nil:
		span.RecordError(err)
		p.metrics.ObserveOCRFailure(p.provider)
		p.logger.Warn("ocr failed", "provider", p.provider, "error", err)
		result = ocrFailed("OCR could not read the image")
	default:
		result = p.parseRecognized(ctx, recognized.Text, ref)
		if result.Reason == ReasonOCRFailed {
			p.metrics.ObserveOCRFailure(p.provider)
			break
		}
		conf := recognized.Confidence
		result.OCRConfidence = &conf
	}
	result.Source = SourceImage
	p.finish(ctx, result, len(recognized.Text), start)
	span.SetAttributes(attribute.String("appointment.status", string(result.Status)))
	return result
}

// parseRecognized cleans OCR output before it reaches the pipeline, whichever
// engine produced it. Nothing readable left is an OCR failure.
func (p *Parser) parseRecognized(ctx context.Context, raw string, ref time.Time) ParseResult {
	text := ocr.Normalize(raw)
	if text == "" {
		return ocrFailed("OCR returned no text")
	}
	return p.run(ctx, RawRequest{Text: text, FromOCR: true}, ref)
}

func (p *Parser) recognize(ctx context.Context, img ocr.Image) (ocr.Result, error) {
	if p.recognizer == nil {
		return ocr.Result{}, ErrOCRUnavailable
	}
	ctx, span := parserTracer.Start(ctx, "ocr.recognize")
	defer span.End()

	res, err := p.recognizer.Recognize(ctx, img)
	if err != nil {
		span.RecordError(err)
		return ocr.Result{}, err
	}
	span.SetAttributes(
		attribute.Float64("ocr.confidence", res.Confidence),
		attribute.Int("ocr.text_length", len(res.Text)),
	)
	return res, nil
}

// run is the pure pipeline plus the optional cache around it.
func (p *Parser) run(ctx context.Context, req RawRequest, ref time.Time) ParseResult {
	if strings.TrimSpace(req.Text) == "" {
		return p.pipeline(req, ref)
	}
	ref = ref.In(p.location)
	key := p.cacheKey(req.Text, ref)
	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			p.logger.Warn("result cache read failed", "error", err)
		}
		p.metrics.ObserveCache(ok)
		if ok && cached != nil {
			return *cached
		}
	}

	result := p.pipeline(req, ref)
	if p.cache != nil {
		if err := p.cache.Set(ctx, key, result); err != nil {
			p.logger.Warn("result cache write failed", "error", err)
		}
	}
	return result
}

// pipeline runs extraction, resolution, normalization and classification. It
// touches no shared state.
func (p *Parser) pipeline(req RawRequest, ref time.Time) ParseResult {
	blank := strings.TrimSpace(req.Text) == ""
	if blank {
		return fromClassification(Classify(ClassifierInput{Blank: true}), nil)
	}
	ref = ref.In(p.location)

	candidates := p.extractor.Extract(req.Text)
	departments := candidatesOf(candidates, KindDepartment)
	dates := candidatesOf(candidates, KindDate)
	times := candidatesOf(candidates, KindTime)

	department := p.departments.Resolve(departments, req.Text)
	date := p.dates.ResolveDate(dates, ref)
	clock := p.dates.ResolveTime(times)

	class := Classify(ClassifierInput{
		CandidateCount: countCore(candidates),
		Department:     department,
		Date:           date,
		Time:           clock,
	})
	entities := entitiesConfidence(len(departments), len(dates), len(times))
	if class.Status == StatusError {
		result := fromClassification(class, nil)
		result.EntitiesConfidence = &entities
		return result
	}
	appt := p.normalizer.Normalize(department, date, clock, candidatesOf(candidates, KindTimezone))
	result := fromClassification(class, &appt)
	result.EntitiesConfidence = &entities
	if appt.Date != nil && appt.Time != nil {
		normalized := normalizationConfidence
		result.NormalizationConfidence = &normalized
	}
	return result
}

// normalizationConfidence is reported once both date and time resolved to
// concrete values.
const normalizationConfidence = 0.9

// entitiesConfidence starts at 0.5 and grows with each kind of entity found.
func entitiesConfidence(departments, dates, times int) float64 {
	score := 0.5
	if dates > 0 {
		score += 0.2
	}
	if times > 0 {
		score += 0.2
	}
	if departments > 0 {
		score += 0.1
	}
	return math.Min(score, 0.99)
}

// cacheKey covers everything a result depends on: the text, the reference
// date, the default zone and the vocabulary tables.
func (p *Parser) cacheKey(text string, ref time.Time) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%s:%s:%s",
		hex.EncodeToString(sum[:]), ref.Format(dateLayout), p.location.String(), p.vocab.Fingerprint())
}

func (p *Parser) finish(ctx context.Context, result ParseResult, inputLen int, start time.Time) {
	fields := make([]string, 0, len(result.MissingOrAmbiguousFields))
	for _, f := range result.MissingOrAmbiguousFields {
		fields = append(fields, string(f))
	}
	p.metrics.ObserveParse(string(result.Source), string(result.Status), fields, time.Since(start).Seconds())
	p.logger.InfoContext(ctx, "parse completed",
		"source", result.Source,
		"status", result.Status,
		"reason", result.Reason,
		"fields", fields,
		"input_length", inputLen,
	)
}

func fromClassification(c Classification, appt *ResolvedAppointment) ParseResult {
	return ParseResult{
		Appointment:              appt,
		Status:                   c.Status,
		MissingOrAmbiguousFields: c.Fields,
		Reason:                   c.Reason,
		Message:                  c.Message,
	}
}

func ocrFailed(message string) ParseResult {
	return ParseResult{Status: StatusError, Reason: ReasonOCRFailed, Message: message}
}

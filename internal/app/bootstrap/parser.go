package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/appointment-parser/internal/appointment"
	appconfig "github.com/wolfman30/appointment-parser/internal/config"
	"github.com/wolfman30/appointment-parser/internal/observability/metrics"
	"github.com/wolfman30/appointment-parser/internal/ocr"
	"github.com/wolfman30/appointment-parser/internal/vocabulary"
	"github.com/wolfman30/appointment-parser/pkg/logging"
)

// ParserDeps are the optional collaborators of the parser. Zero values turn
// the matching feature off.
type ParserDeps struct {
	Recognizer ocr.Recognizer
	Cache      appointment.ResultCache
	Metrics    *metrics.ParseMetrics
}

// LoadVocabulary reads VOCABULARY_PATH, falling back to the embedded tables.
func LoadVocabulary(cfg *appconfig.Config, logger *logging.Logger) (*vocabulary.Vocabulary, error) {
	if logger == nil {
		logger = logging.Default()
	}
	path := ""
	if cfg != nil {
		path = strings.TrimSpace(cfg.VocabularyPath)
	}
	v, err := vocabulary.Load(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if path == "" {
		logger.Debug("using embedded vocabulary")
	} else {
		logger.Info("vocabulary loaded", "path", path)
	}
	return v, nil
}

// BuildParser wires the appointment parser from config. REFERENCE_NOW, when
// set, pins the reference instant for every request without its own.
func BuildParser(cfg *appconfig.Config, vocab *vocabulary.Vocabulary, deps ParserDeps, logger *logging.Logger) (*appointment.Parser, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	opts := []appointment.Option{
		appointment.WithLogger(logger),
		appointment.WithMetrics(deps.Metrics),
	}
	if deps.Recognizer != nil {
		opts = append(opts, appointment.WithRecognizer(deps.Recognizer, cfg.OCRProvider))
	}
	if deps.Cache != nil {
		opts = append(opts, appointment.WithCache(deps.Cache))
	}
	if raw := strings.TrimSpace(cfg.ReferenceNow); raw != "" {
		loc, err := appointment.LoadZone(cfg.DefaultTimezone)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		ref, err := appointment.ParseReferenceTime(raw, loc)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: REFERENCE_NOW: %w", err)
		}
		logger.Warn("reference time pinned", "reference_now", ref.Format(time.RFC3339))
		opts = append(opts, appointment.WithReferenceTime(ref))
	}

	parser, err := appointment.NewParser(vocab, cfg.DefaultTimezone, opts...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: build parser: %w", err)
	}
	return parser, nil
}

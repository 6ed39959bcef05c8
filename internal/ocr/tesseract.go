package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/appointment-parser/pkg/logging"
)

// TesseractConfig configures the tesseract CLI provider.
type TesseractConfig struct {
	Binary        string // binary name or absolute path; default "tesseract"
	Lang          string // default "eng"
	TessdataDir   string
	PSM           int // page segmentation mode; 0 leaves the tesseract default
	TSVConfidence bool
	TempDir       string
}

// TesseractRecognizer shells out to tesseract.
type TesseractRecognizer struct {
	cfg    TesseractConfig
	runner Runner
	logger *logging.Logger
}

// NewTesseractRecognizer fills config defaults. A nil runner uses ExecRunner.
func NewTesseractRecognizer(cfg TesseractConfig, runner Runner, logger *logging.Logger) *TesseractRecognizer {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &TesseractRecognizer{cfg: cfg, runner: runner, logger: logger}
}

// Recognize writes the image to a temp file and runs tesseract on it.
func (t *TesseractRecognizer) Recognize(ctx context.Context, img Image) (Result, error) {
	if err := img.Validate(); err != nil {
		return Result{}, err
	}
	start := time.Now()

	dir, err := os.MkdirTemp(t.cfg.TempDir, "apptparse-ocr-*")
	if err != nil {
		return Result{}, fmt.Errorf("ocr: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "upload"+extensionFor(img.ContentType))
	if err := os.WriteFile(path, img.Data, 0o600); err != nil {
		return Result{}, fmt.Errorf("ocr: write image: %w", err)
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, t.args(path)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("ocr: tesseract: %w", ctxErr)
		}
		return Result{}, fmt.Errorf("ocr: tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	text := Normalize(string(out))
	if text == "" {
		return Result{}, ErrNoText
	}

	conf := DefaultConfidence
	if t.cfg.TSVConfidence {
		if c, ok, err := t.tsvConfidence(ctx, path); err != nil {
			t.logger.Warn("tesseract confidence unavailable", "error", err)
		} else if ok {
			conf = c
		}
	}

	return Result{
		Text:       text,
		Confidence: conf,
		Provider:   "tesseract",
		Duration:   time.Since(start),
	}, nil
}

func (t *TesseractRecognizer) args(path string, extra ...string) []string {
	args := []string{path, "stdout", "-l", t.cfg.Lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return append(args, extra...)
}

// tsvConfidence runs tesseract in TSV mode and returns the mean word
// confidence on a 0..1 scale. Rows with conf -1 are layout boxes, not words.
func (t *TesseractRecognizer) tsvConfidence(ctx context.Context, path string) (float64, bool, error) {
	out, _, err := t.runner.Run(ctx, t.cfg.Binary, t.args(path, "tsv")...)
	if err != nil {
		return 0, false, fmt.Errorf("ocr: tesseract tsv: %w", err)
	}
	return meanTSVConfidence(string(out))
}

func meanTSVConfidence(tsv string) (float64, bool, error) {
	lines := strings.Split(tsv, "\n")
	if len(lines) == 0 {
		return 0, false, nil
	}
	confCol := -1
	for i, name := range strings.Split(strings.TrimSpace(lines[0]), "\t") {
		if name == "conf" {
			confCol = i
		}
	}
	if confCol < 0 {
		return 0, false, fmt.Errorf("ocr: tsv header has no conf column")
	}

	var sum, n float64
	for _, ln := range lines[1:] {
		cols := strings.Split(ln, "\t")
		if len(cols) <= confCol {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cols[confCol]), 64)
		if err != nil || v < 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false, nil
	}
	return clamp01(sum / n / 100.0), true, nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/tiff":
		return ".tiff"
	case "image/bmp":
		return ".bmp"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

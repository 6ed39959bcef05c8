package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"

	"github.com/wolfman30/appointment-parser/cmd/mainconfig"
	"github.com/wolfman30/appointment-parser/internal/app/bootstrap"
	"github.com/wolfman30/appointment-parser/internal/appointment"
	appconfig "github.com/wolfman30/appointment-parser/internal/config"
	"github.com/wolfman30/appointment-parser/internal/ocr"
	"github.com/wolfman30/appointment-parser/pkg/logging"
)

type rootOptions struct {
	timezone   string
	now        string
	vocabulary string
	logLevel   string
	compact    bool
}

func newRootCmd(cfg *appconfig.Config) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "apptparse",
		Short:         "Parse appointment requests into department, date, time and timezone",
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.timezone, "tz", cfg.DefaultTimezone, "default IANA timezone")
	flags.StringVar(&opts.now, "now", cfg.ReferenceNow, "reference time (RFC3339, 2006-01-02T15:04:05 or 2006-01-02)")
	flags.StringVar(&opts.vocabulary, "vocabulary", cfg.VocabularyPath, "vocabulary YAML file; empty uses the embedded tables")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level for stderr")
	flags.BoolVar(&opts.compact, "compact", false, "print single-line JSON")

	root.AddCommand(newTextCmd(cfg, opts), newImageCmd(cfg, opts))
	return root
}

func newTextCmd(cfg *appconfig.Config, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "text [words...]",
		Short: "Parse free text; reads stdin when no words are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			parser, err := opts.parser(cmd, cfg, nil)
			if err != nil {
				return err
			}
			ref, err := opts.reference(parser)
			if err != nil {
				return err
			}
			return opts.print(cmd, parser.ParseTextAt(cmd.Context(), text, ref))
		},
	}
}

func newImageCmd(cfg *appconfig.Config, opts *rootOptions) *cobra.Command {
	var (
		provider string
		fromText bool
	)
	cmd := &cobra.Command{
		Use:   "image <file>",
		Short: "Run OCR on an image file and parse the recognised text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			if fromText {
				parser, err := opts.parser(cmd, cfg, nil)
				if err != nil {
					return err
				}
				ref, err := opts.reference(parser)
				if err != nil {
					return err
				}
				return opts.print(cmd, parser.ParseOCRTextAt(cmd.Context(), string(data), ref))
			}

			ocrCfg := *cfg
			ocrCfg.OCRProvider = strings.ToLower(strings.TrimSpace(provider))
			recognizer, err := buildRecognizer(cmd.Context(), &ocrCfg, opts.logger(cmd))
			if err != nil {
				return err
			}
			parser, err := opts.parser(cmd, &ocrCfg, recognizer)
			if err != nil {
				return err
			}
			ref, err := opts.reference(parser)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if cfg.OCRTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.OCRTimeout)
				defer cancel()
			}
			img := ocr.Image{
				Data:        data,
				ContentType: http.DetectContentType(data),
				Name:        filepath.Base(args[0]),
			}
			return opts.print(cmd, parser.ParseImageAt(ctx, img, ref))
		},
	}
	cmd.Flags().StringVar(&provider, "ocr-provider", cfg.OCRProvider, "tesseract, bedrock or none")
	cmd.Flags().BoolVar(&fromText, "from-text", false, "treat the file as text already produced by an OCR engine")
	return cmd
}

func buildRecognizer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (ocr.Recognizer, error) {
	var awsCfg *aws.Config
	if cfg.OCRProvider == appconfig.OCRProviderBedrock {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &loaded
	}
	return bootstrap.BuildRecognizer(cfg, awsCfg, logger)
}

func (o *rootOptions) logger(cmd *cobra.Command) *logging.Logger {
	return logging.NewWithWriter(cmd.ErrOrStderr(), o.logLevel)
}

func (o *rootOptions) parser(cmd *cobra.Command, cfg *appconfig.Config, recognizer ocr.Recognizer) (*appointment.Parser, error) {
	parserCfg := *cfg
	parserCfg.DefaultTimezone = o.timezone
	parserCfg.VocabularyPath = o.vocabulary
	// --now is applied per call so a bad value is reported against the flag.
	parserCfg.ReferenceNow = ""

	logger := o.logger(cmd)
	vocab, err := bootstrap.LoadVocabulary(&parserCfg, logger)
	if err != nil {
		return nil, err
	}
	return bootstrap.BuildParser(&parserCfg, vocab, bootstrap.ParserDeps{Recognizer: recognizer}, logger)
}

func (o *rootOptions) reference(parser *appointment.Parser) (time.Time, error) {
	if strings.TrimSpace(o.now) == "" {
		return parser.Now(), nil
	}
	ref, err := appointment.ParseReferenceTime(o.now, parser.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("--now: %w", err)
	}
	return ref, nil
}

func (o *rootOptions) print(cmd *cobra.Command, result appointment.ParseResult) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if !o.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

package bootstrap

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/wolfman30/appointment-parser/internal/config"
	"github.com/wolfman30/appointment-parser/internal/ocr"
	"github.com/wolfman30/appointment-parser/pkg/logging"
)

// BuildRecognizer returns the configured OCR provider, or nil when OCR is
// disabled. awsCfg is only required for the bedrock provider.
func BuildRecognizer(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (ocr.Recognizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.OCRProvider {
	case appconfig.OCRProviderNone:
		logger.Warn("OCR disabled; /parse-image will not be served")
		return nil, nil
	case appconfig.OCRProviderTesseract, "":
		logger.Info("OCR provider configured", "provider", appconfig.OCRProviderTesseract, "binary", cfg.TesseractPath)
		return ocr.NewTesseractRecognizer(ocr.TesseractConfig{
			Binary:        cfg.TesseractPath,
			Lang:          cfg.TesseractLang,
			PSM:           cfg.TesseractPSM,
			TSVConfidence: cfg.OCRTSVConfidence,
		}, nil, logger), nil
	case appconfig.OCRProviderBedrock:
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: aws config is required for bedrock OCR")
		}
		if strings.TrimSpace(cfg.BedrockVisionModelID) == "" {
			return nil, fmt.Errorf("bootstrap: BEDROCK_VISION_MODEL_ID is required for bedrock OCR")
		}
		logger.Info("OCR provider configured", "provider", appconfig.OCRProviderBedrock, "model", cfg.BedrockVisionModelID)
		return ocr.NewBedrockRecognizer(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockVisionModelID), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown OCR provider %q", cfg.OCRProvider)
	}
}

// BuildImageSource returns the S3 image source, or nil when IMAGE_BUCKET is
// unset. Path-style addressing is used behind an endpoint override so
// LocalStack buckets resolve.
func BuildImageSource(cfg *appconfig.Config, awsCfg *aws.Config) *ocr.S3ImageSource {
	if cfg == nil || awsCfg == nil || strings.TrimSpace(cfg.ImageBucket) == "" {
		return nil
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		o.UsePathStyle = strings.TrimSpace(cfg.AWSEndpointOverride) != ""
	})
	return ocr.NewS3ImageSource(client, cfg.ImageBucket, cfg.MaxUploadBytes)
}

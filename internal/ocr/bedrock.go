package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const bedrockTranscribePrompt = "Transcribe all text in this image exactly as written. " +
	"Return only the transcribed text with no commentary. If there is no text, return nothing."

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockRecognizer transcribes images with a Bedrock vision model.
type BedrockRecognizer struct {
	api     bedrockConverseAPI
	modelID string
}

// NewBedrockRecognizer panics on a nil client, matching the other Bedrock
// clients in this codebase.
func NewBedrockRecognizer(api bedrockConverseAPI, modelID string) *BedrockRecognizer {
	if api == nil {
		panic("ocr: bedrock converse client cannot be nil")
	}
	return &BedrockRecognizer{api: api, modelID: modelID}
}

func (b *BedrockRecognizer) Recognize(ctx context.Context, img Image) (Result, error) {
	if strings.TrimSpace(b.modelID) == "" {
		return Result{}, errors.New("ocr: bedrock model id is required")
	}
	if err := img.Validate(); err != nil {
		return Result{}, err
	}
	format, ok := bedrockImageFormat(img.ContentType)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, img.ContentType)
	}
	start := time.Now()

	out, err := b.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.modelID),
		Messages: []brtypes.Message{{
			Role: brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberImage{Value: brtypes.ImageBlock{
					Format: format,
					Source: &brtypes.ImageSourceMemberBytes{Value: img.Data},
				}},
				&brtypes.ContentBlockMemberText{Value: bedrockTranscribePrompt},
			},
		}},
		InferenceConfig: &brtypes.InferenceConfiguration{
			Temperature: aws.Float32(0),
			MaxTokens:   aws.Int32(1024),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("ocr: bedrock converse: %w", err)
	}

	text, err := bedrockOutputText(out)
	if err != nil {
		return Result{}, err
	}
	text = Normalize(text)
	if text == "" {
		return Result{}, ErrNoText
	}
	return Result{
		Text:       text,
		Confidence: DefaultConfidence,
		Provider:   "bedrock",
		Duration:   time.Since(start),
	}, nil
}

func bedrockOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", errors.New("ocr: bedrock response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("ocr: bedrock response did not include a message output")
	}
	var builder strings.Builder
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			builder.WriteString(textBlock.Value)
		}
	}
	return builder.String(), nil
}

func bedrockImageFormat(contentType string) (brtypes.ImageFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png", "":
		return brtypes.ImageFormatPng, true
	case "image/jpeg", "image/jpg":
		return brtypes.ImageFormatJpeg, true
	case "image/gif":
		return brtypes.ImageFormatGif, true
	case "image/webp":
		return brtypes.ImageFormatWebp, true
	}
	return "", false
}

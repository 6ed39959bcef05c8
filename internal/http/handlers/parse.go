package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/appointment-parser/internal/appointment"
	"github.com/wolfman30/appointment-parser/internal/ocr"
	"github.com/wolfman30/appointment-parser/pkg/logging"
)

// Parser is the subset of *appointment.Parser the handlers use.
type Parser interface {
	ParseTextAt(ctx context.Context, text string, ref time.Time) appointment.ParseResult
	ParseImageAt(ctx context.Context, img ocr.Image, ref time.Time) appointment.ParseResult
	Now() time.Time
	Location() *time.Location
}

// ImageFetcher loads previously uploaded images by key.
type ImageFetcher interface {
	Fetch(ctx context.Context, key string) (ocr.Image, error)
}

// ParseHandlerConfig wires a ParseHandler.
type ParseHandlerConfig struct {
	Parser         Parser
	Images         ImageFetcher
	Logger         *logging.Logger
	MaxUploadBytes int64
	OCRTimeout     time.Duration
	Version        string
}

// ParseHandler serves the parse endpoints.
type ParseHandler struct {
	parser         Parser
	images         ImageFetcher
	logger         *logging.Logger
	maxUploadBytes int64
	ocrTimeout     time.Duration
	version        string
	now            func() time.Time
}

const defaultMaxUploadBytes = 10 << 20

func NewParseHandler(cfg ParseHandlerConfig) *ParseHandler {
	if cfg.Parser == nil {
		panic("handlers: parser cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &ParseHandler{
		parser:         cfg.Parser,
		images:         cfg.Images,
		logger:         cfg.Logger,
		maxUploadBytes: cfg.MaxUploadBytes,
		ocrTimeout:     cfg.OCRTimeout,
		version:        cfg.Version,
		now:            time.Now,
	}
}

type parseTextRequest struct {
	Text          *string `json:"text"`
	ReferenceTime string  `json:"reference_time,omitempty"`
}

type parseImageRequest struct {
	S3Key         string `json:"s3_key"`
	ReferenceTime string `json:"reference_time,omitempty"`
}

// ParseText handles POST /parse-text.
func (h *ParseHandler) ParseText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	var req parseTextRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.decodeError(w, err)
		return
	}
	if req.Text == nil {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}
	ref, err := h.reference(req.ReferenceTime)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.parser.ParseTextAt(r.Context(), *req.Text, ref))
}

// ParseImage handles POST /parse-image with either a multipart upload in the
// "image" field or a JSON body naming an object in the image bucket.
func (h *ParseHandler) ParseImage(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var (
		img    ocr.Image
		rawRef string
	)
	switch mediaType {
	case "multipart/form-data":
		var status int
		var err error
		img, rawRef, status, err = h.readUpload(r)
		if err != nil {
			jsonError(w, err.Error(), status)
			return
		}
	case "application/json":
		var req parseImageRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			h.decodeError(w, err)
			return
		}
		if strings.TrimSpace(req.S3Key) == "" {
			jsonError(w, "s3_key is required", http.StatusBadRequest)
			return
		}
		if h.images == nil {
			jsonError(w, "image bucket not configured", http.StatusBadRequest)
			return
		}
		fetched, err := h.images.Fetch(r.Context(), req.S3Key)
		if errors.Is(err, ocr.ErrImageTooLarge) {
			jsonError(w, "image too large", http.StatusRequestEntityTooLarge)
			return
		}
		if err != nil {
			h.logger.Error("image fetch failed", "key", req.S3Key, "error", err)
			jsonError(w, "image could not be loaded", http.StatusBadGateway)
			return
		}
		if fetched.ContentType == "" || fetched.ContentType == "application/octet-stream" {
			fetched.ContentType = http.DetectContentType(fetched.Data)
		}
		if !isImage(fetched.ContentType) {
			jsonError(w, "object is not an image", http.StatusUnsupportedMediaType)
			return
		}
		img, rawRef = fetched, req.ReferenceTime
	default:
		jsonError(w, "expected multipart/form-data or application/json", http.StatusUnsupportedMediaType)
		return
	}

	ref, err := h.reference(rawRef)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if h.ocrTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.ocrTimeout)
		defer cancel()
	}
	writeJSON(w, http.StatusOK, h.parser.ParseImageAt(ctx, img, ref))
}

// Health handles GET /health.
func (h *ParseHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   h.version,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *ParseHandler) readUpload(r *http.Request) (ocr.Image, string, int, error) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > h.maxUploadBytes {
			return ocr.Image{}, "", http.StatusRequestEntityTooLarge, errors.New("image too large")
		}
		return ocr.Image{}, "", http.StatusBadRequest, errors.New("invalid multipart form")
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return ocr.Image{}, "", http.StatusBadRequest, errors.New("image field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return ocr.Image{}, "", http.StatusBadRequest, errors.New("image could not be read")
	}
	if len(data) == 0 {
		return ocr.Image{}, "", http.StatusBadRequest, errors.New("image is empty")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !isImage(contentType) {
		return ocr.Image{}, "", http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type %q", contentType)
	}
	return ocr.Image{Data: data, ContentType: contentType, Name: header.Filename}, r.FormValue("reference_time"), 0, nil
}

func (h *ParseHandler) reference(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return h.parser.Now(), nil
	}
	ref, err := appointment.ParseReferenceTime(raw, h.parser.Location())
	if err != nil {
		return time.Time{}, errors.New("reference_time must be RFC3339")
	}
	return ref, nil
}

func (h *ParseHandler) decodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		jsonError(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}
	jsonError(w, "invalid JSON body", http.StatusBadRequest)
}

func decodeJSON(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func isImage(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mediaType, "image/")
}

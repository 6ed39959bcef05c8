package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/appointment-parser/internal/appointment"
	"github.com/wolfman30/appointment-parser/internal/ocr"
	"github.com/wolfman30/appointment-parser/internal/vocabulary"
	"github.com/wolfman30/appointment-parser/pkg/logging"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n0000")

type stubRecognizer struct {
	text string
	err  error
	got  ocr.Image
}

func (s *stubRecognizer) Recognize(ctx context.Context, img ocr.Image) (ocr.Result, error) {
	s.got = img
	if s.err != nil {
		return ocr.Result{}, s.err
	}
	return ocr.Result{Text: s.text, Confidence: 0.9, Provider: "stub"}, nil
}

type stubFetcher map[string]ocr.Image

func (f stubFetcher) Fetch(_ context.Context, key string) (ocr.Image, error) {
	if key == "huge.png" {
		return ocr.Image{}, ocr.ErrImageTooLarge
	}
	img, ok := f[key]
	if !ok {
		return ocr.Image{}, errors.New("NoSuchKey")
	}
	return img, nil
}

func newHandler(t *testing.T, rec ocr.Recognizer, images ImageFetcher) *ParseHandler {
	t.Helper()
	vocab, err := vocabulary.Default()
	require.NoError(t, err)
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	opts := []appointment.Option{
		appointment.WithReferenceTime(time.Date(2025, 9, 19, 10, 0, 0, 0, loc)),
		appointment.WithLogger(logging.Discard()),
	}
	if rec != nil {
		opts = append(opts, appointment.WithRecognizer(rec, "stub"))
	}
	p, err := appointment.NewParser(vocab, "Asia/Kolkata", opts...)
	require.NoError(t, err)
	return NewParseHandler(ParseHandlerConfig{
		Parser:         p,
		Images:         images,
		Logger:         logging.Discard(),
		MaxUploadBytes: 1024,
		OCRTimeout:     time.Second,
		Version:        "test",
	})
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) appointment.ParseResult {
	t.Helper()
	var out appointment.ParseResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func postJSON(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func multipartBody(t *testing.T, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if data != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="image"; filename="note.png"`)
		if contentType != "" {
			hdr.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestParseTextHandler(t *testing.T) {
	h := newHandler(t, nil, nil)

	rec := postJSON(h.ParseText, "/parse-text", `{"text":"Book dentist next Friday at 3pm"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	got := decodeResult(t, rec)
	assert.Equal(t, appointment.StatusOK, got.Status)
	assert.Equal(t, "2025-09-26", *got.Appointment.Date)

	rec = postJSON(h.ParseText, "/parse-text", `{"text":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeResult(t, rec)
	assert.Equal(t, appointment.StatusError, got.Status)
	assert.Equal(t, appointment.ReasonEmptyInput, got.Reason)
	assert.Contains(t, rec.Body.String(), `"appointment":null`)
}

func TestParseTextHandlerReferenceTime(t *testing.T) {
	h := newHandler(t, nil, nil)

	rec := postJSON(h.ParseText, "/parse-text", `{"text":"dentist tomorrow 9am","reference_time":"2025-12-31T20:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeResult(t, rec)
	// 20:00Z is already 1 Jan in India.
	assert.Equal(t, "2026-01-02", *got.Appointment.Date)
}

func TestParseTextHandlerBadRequests(t *testing.T) {
	h := newHandler(t, nil, nil)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"text":`, http.StatusBadRequest},
		{"missing text", `{}`, http.StatusBadRequest},
		{"unknown field", `{"text":"x","foo":1}`, http.StatusBadRequest},
		{"bad reference", `{"text":"x","reference_time":"soon"}`, http.StatusBadRequest},
		{"too large", `{"text":"` + strings.Repeat("a", 2048) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(h.ParseText, "/parse-text", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestParseImageUpload(t *testing.T) {
	stub := &stubRecognizer{text: "Eye checkup\nMonday 10:30 am"}
	h := newHandler(t, stub, nil)

	body, ct := multipartBody(t, "", pngMagic, nil)
	req := httptest.NewRequest(http.MethodPost, "/parse-image", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ParseImage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeResult(t, rec)
	assert.Equal(t, appointment.StatusOK, got.Status)
	assert.Equal(t, appointment.SourceImage, got.Source)
	assert.Equal(t, "Ophthalmology", *got.Appointment.Department)
	assert.Equal(t, "2025-09-22", *got.Appointment.Date)
	require.NotNil(t, got.OCRConfidence)
	assert.Equal(t, "image/png", stub.got.ContentType)
	assert.Equal(t, "note.png", stub.got.Name)
}

func TestParseImageOCRFailure(t *testing.T) {
	h := newHandler(t, &stubRecognizer{err: errors.New("tesseract crashed")}, nil)

	body, ct := multipartBody(t, "image/png", pngMagic, nil)
	req := httptest.NewRequest(http.MethodPost, "/parse-image", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ParseImage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeResult(t, rec)
	assert.Equal(t, appointment.StatusError, got.Status)
	assert.Equal(t, appointment.ReasonOCRFailed, got.Reason)
	assert.Nil(t, got.Appointment)
}

func TestParseImageRejections(t *testing.T) {
	h := newHandler(t, &stubRecognizer{text: "x"}, nil)

	send := func(body *bytes.Buffer, ct string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/parse-image", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		h.ParseImage(rec, req)
		return rec
	}

	body, ct := multipartBody(t, "application/pdf", []byte("%PDF-1.4"), nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, send(body, ct).Code)

	body, ct = multipartBody(t, "", []byte("plain text, not an image"), nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, send(body, ct).Code)

	body, ct = multipartBody(t, "image/png", bytes.Repeat([]byte("x"), 4096), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, send(body, ct).Code)

	body, ct = multipartBody(t, "", nil, map[string]string{"note": "no file"})
	assert.Equal(t, http.StatusBadRequest, send(body, ct).Code)

	assert.Equal(t, http.StatusUnsupportedMediaType, send(bytes.NewBufferString("raw"), "text/plain").Code)
}

func TestParseImageFromBucket(t *testing.T) {
	stub := &stubRecognizer{text: "cardiology tomorrow noon"}
	h := newHandler(t, stub, stubFetcher{
		"uploads/note.png": {Data: pngMagic, Name: "uploads/note.png"},
		"uploads/doc.txt":  {Data: []byte("hello"), ContentType: "text/plain"},
	})

	rec := postJSON(h.ParseImage, "/parse-image", `{"s3_key":"uploads/note.png"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeResult(t, rec)
	assert.Equal(t, appointment.StatusOK, got.Status)
	assert.Equal(t, "image/png", stub.got.ContentType)

	assert.Equal(t, http.StatusBadRequest, postJSON(h.ParseImage, "/parse-image", `{"s3_key":" "}`).Code)
	assert.Equal(t, http.StatusUnsupportedMediaType, postJSON(h.ParseImage, "/parse-image", `{"s3_key":"uploads/doc.txt"}`).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, postJSON(h.ParseImage, "/parse-image", `{"s3_key":"huge.png"}`).Code)
	assert.Equal(t, http.StatusBadGateway, postJSON(h.ParseImage, "/parse-image", `{"s3_key":"missing.png"}`).Code)
}

func TestParseImageBucketNotConfigured(t *testing.T) {
	h := newHandler(t, &stubRecognizer{text: "x"}, nil)
	rec := postJSON(h.ParseImage, "/parse-image", `{"s3_key":"uploads/note.png"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newHandler(t, nil, nil)
	h.now = func() time.Time { return time.Date(2025, 9, 19, 4, 30, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test","timestamp":"2025-09-19T04:30:00Z"}`, rec.Body.String())
}

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	jsonError(rec, "oops", http.StatusTeapot)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"oops"}`, rec.Body.String())
}

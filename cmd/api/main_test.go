package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/wolfman30/appointment-parser/internal/config"
	"github.com/wolfman30/appointment-parser/pkg/logging"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		Version:             "test",
		DefaultTimezone:     "Asia/Kolkata",
		ReferenceNow:        "2025-09-19T10:00:00",
		OCRProvider:         appconfig.OCRProviderNone,
		MaxUploadBytes:      1 << 20,
		CORSAllowedOrigins:  []string{"*"},
		ImageRateLimitRPS:   1,
		ImageRateLimitBurst: 1,
	}
}

func TestSetupParseMetricsExposesMetrics(t *testing.T) {
	handler, m := setupParseMetrics()
	if handler == nil || m == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	m.ObserveParse("text", "ok", nil, 0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "appointment_parser_parse_total") {
		t.Fatalf("expected parse counter to be exported")
	}
}

func TestBuildServerTextOnly(t *testing.T) {
	app, err := buildServer(context.Background(), testConfig(), logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer app.Close()
	if app.redis != nil {
		t.Fatalf("expected no redis client without REDIS_ADDR")
	}

	body := strings.NewReader(`{"text":"Book dentist next Friday at 3pm"}`)
	req := httptest.NewRequest(http.MethodPost, "/parse-text", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	app.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Status      string `json:"status"`
		Appointment struct {
			Department string `json:"department"`
			Date       string `json:"date"`
			Time       string `json:"time"`
			TZ         string `json:"tz"`
		} `json:"appointment"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Appointment.Date != "2025-09-26" || resp.Appointment.Time != "15:00" {
		t.Fatalf("unexpected response: %s", rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/parse-image", nil)
	rr = httptest.NewRecorder()
	app.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected /parse-image to be unmounted without OCR, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	app.handler.ServeHTTP(rr, req)
	if !strings.Contains(rr.Body.String(), `appointment_parser_parse_total{source="text",status="ok"} 1`) {
		t.Fatalf("expected parse to be counted, got %s", rr.Body.String())
	}
}

func TestBuildServerWithOCRAndCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.OCRProvider = appconfig.OCRProviderTesseract
	cfg.TesseractPath = "tesseract"
	cfg.RedisAddr = mr.Addr()

	app, err := buildServer(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer app.Close()
	if app.redis == nil {
		t.Fatalf("expected redis client")
	}
	if app.limiter == nil {
		t.Fatalf("expected image rate limiter")
	}

	req := httptest.NewRequest(http.MethodPost, "/parse-image", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	app.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 for non-image body, got %d", rr.Code)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/parse-text", strings.NewReader(`{"text":"dentist tomorrow 10am"}`))
		rr := httptest.NewRecorder()
		app.handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	}
	if keys := mr.Keys(); len(keys) != 1 {
		t.Fatalf("expected one cached result, got %v", keys)
	}
}

func TestBuildServerBadVocabulary(t *testing.T) {
	cfg := testConfig()
	cfg.VocabularyPath = "/nonexistent/vocabulary.yaml"
	if _, err := buildServer(context.Background(), cfg, logging.Discard()); err == nil {
		t.Fatalf("expected error for missing vocabulary")
	}
}

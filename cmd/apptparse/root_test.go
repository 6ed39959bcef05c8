package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/appointment-parser/internal/appointment"
	appconfig "github.com/wolfman30/appointment-parser/internal/config"
)

func run(t *testing.T, stdin string, args ...string) (appointment.ParseResult, string, error) {
	t.Helper()
	cfg := &appconfig.Config{
		DefaultTimezone: "Asia/Kolkata",
		OCRProvider:     appconfig.OCRProviderNone,
	}
	cmd := newRootCmd(cfg)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	var result appointment.ParseResult
	if err == nil {
		require.NoError(t, json.Unmarshal(out.Bytes(), &result), out.String())
	}
	return result, errOut.String(), err
}

func TestTextCommand(t *testing.T) {
	result, _, err := run(t, "", "text", "--now", "2025-09-19T10:00:00", "Book", "dentist", "next", "Friday", "at", "3pm")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusOK, result.Status)
	require.NotNil(t, result.Appointment)
	assert.Equal(t, "Dentistry", *result.Appointment.Department)
	assert.Equal(t, "2025-09-26", *result.Appointment.Date)
	assert.Equal(t, "15:00", *result.Appointment.Time)
	assert.Equal(t, "Asia/Kolkata", result.Appointment.Timezone)
	assert.Equal(t, appointment.SourceText, result.Source)
}

func TestTextCommandReadsStdin(t *testing.T) {
	result, _, err := run(t, "dentist tomorrow at 10am\n", "text", "--now", "2025-09-19", "--tz", "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusOK, result.Status)
	assert.Equal(t, "2025-09-20", *result.Appointment.Date)
	assert.Equal(t, "America/New_York", result.Appointment.Timezone)
}

func TestTextCommandEmptyInput(t *testing.T) {
	result, _, err := run(t, "   ", "text", "-")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusError, result.Status)
	assert.Equal(t, appointment.ReasonEmptyInput, result.Reason)
}

func TestTextCommandRejectsBadFlags(t *testing.T) {
	_, _, err := run(t, "", "text", "--now", "someday", "dentist")
	assert.ErrorContains(t, err, "--now")

	_, _, err = run(t, "", "text", "--tz", "Nowhere/Land", "dentist")
	assert.Error(t, err)
}

func TestImageCommandFromText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.txt")
	require.NoError(t, os.WriteFile(path, []byte("Book  dentist\r\n-----\nnext Friday at 3pm\r\n"), 0o600))

	result, _, err := run(t, "", "image", "--from-text", "--now", "2025-09-19T10:00:00", path)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusOK, result.Status)
	assert.Equal(t, appointment.SourceImage, result.Source)
	assert.Equal(t, "2025-09-26", *result.Appointment.Date)
}

func TestImageCommandWithoutOCR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nfake"), 0o600))

	result, _, err := run(t, "", "image", "--ocr-provider", "none", path)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusError, result.Status)
	assert.Equal(t, appointment.ReasonOCRFailed, result.Reason)
	assert.Nil(t, result.Appointment)
}

func TestImageCommandMissingFile(t *testing.T) {
	_, _, err := run(t, "", "image", filepath.Join(t.TempDir(), "nope.png"))
	assert.ErrorContains(t, err, "read image")
}

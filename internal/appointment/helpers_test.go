package appointment

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"github.com/wolfman30/appointment-parser/internal/vocabulary"
)

const testZone = "Asia/Kolkata"

func testVocab(t *testing.T) *vocabulary.Vocabulary {
	t.Helper()
	v, err := vocabulary.Default()
	require.NoError(t, err)
	return v
}

// friday is Friday 2025-09-19, 10:00 India time.
func friday(t *testing.T) time.Time {
	t.Helper()
	loc, err := LoadZone(testZone)
	require.NoError(t, err)
	return time.Date(2025, time.September, 19, 10, 0, 0, 0, loc)
}

func texts(c []CandidateEntity) []string {
	out := make([]string, 0, len(c))
	for _, e := range c {
		out = append(out, e.Text)
	}
	return out
}

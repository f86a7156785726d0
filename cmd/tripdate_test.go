package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeparture(t *testing.T) {
	want := time.Date(2026, time.January, 15, 6, 30, 0, 0, time.UTC)

	for _, raw := range []string{"15/01/2026 06:30", "15/1/2026 6:30", "2026-01-15T06:30", "2026-01-15 06:30"} {
		got, err := parseDeparture(raw, time.UTC)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	got, err := parseDeparture("15/01/2026", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC), got)

	_, err = parseDeparture("mañana", time.UTC)
	assert.Error(t, err)
}

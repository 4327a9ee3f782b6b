package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, 3, 1, 10, 7, 0, 0, time.UTC)
	info, err := GetTriggerInfo("*/15 * * * *", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC), info.Next)
	assert.Equal(t, 8*time.Minute, info.TimeUntilNext)
}

func TestGetTriggerInfoDescriptor(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	info, err := GetTriggerInfo("@every 5m", ref)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, info.TimeUntilNext)
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Parse("every tuesday")
	assert.ErrorContains(t, err, "invalid cron expression")
}

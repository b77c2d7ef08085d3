package service

import (
	"testing"
	"time"

	config "github.com/maheshrc27/contentpilot/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformTimes(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	times := PlatformTimes(config.DefaultPlatforms(), now)

	require.Len(t, times, 3)
	require.NotNil(t, times["instagram"])
	require.NotNil(t, times["facebook"])
	assert.Equal(t, now, *times["instagram"])
	assert.Equal(t, now.Add(5*time.Minute), *times["facebook"])
	assert.Nil(t, times["linkedin"])
}

func TestPlatformTimesIsDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	a := PlatformTimes(config.DefaultPlatforms(), now)
	b := PlatformTimes(config.DefaultPlatforms(), now)
	assert.Equal(t, a, b)
	assert.Equal(t, time.UTC, a["instagram"].Location())
}

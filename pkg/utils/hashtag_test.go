package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanHashtag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#travel", "travel"},
		{"travel", "travel"},
		{"  #travel  ", "travel"},
		{"# travel", "travel"},
		{"#", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanHashtag(tt.in), tt.in)
	}
}

func TestHashIdentifier_Deterministic(t *testing.T) {
	assert.Equal(t, HashIdentifier("10.0.0.1"), HashIdentifier("10.0.0.1"))
	assert.NotEqual(t, HashIdentifier("10.0.0.1"), HashIdentifier("10.0.0.2"))
	assert.Len(t, HashIdentifier("x"), 64)
}

func TestDayKey_UsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 01:00 on June 2nd in UTC+9 is still June 1st in UTC.
	at := time.Date(2025, 6, 2, 1, 0, 0, 0, loc)

	assert.Equal(t, "2025-06-01", DayKey(at))
}

func TestSecondsUntilEndOfDay(t *testing.T) {
	at := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	d := SecondsUntilEndOfDay(at)

	assert.Greater(t, d, time.Duration(0))
	assert.LessOrEqual(t, d, time.Minute)
}

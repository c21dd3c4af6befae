package timeslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinutes24Hour(t *testing.T) {
	cases := map[string]int{
		"00:00": 0,
		"09:05": 9*60 + 5,
		"14:30": 14*60 + 30,
		"23:59": 23*60 + 59,
	}
	for input, want := range cases {
		got, err := ParseMinutes(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseMinutes12Hour(t *testing.T) {
	cases := map[string]int{
		"2:30 PM":  14*60 + 30,
		"12:00 PM": 12 * 60,
		"12:00 AM": 0,
		"12:15 am": 15,
		"11:59 pm": 23*60 + 59,
		"9:00 AM":  9 * 60,
	}
	for input, want := range cases {
		got, err := ParseMinutes(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseMinutesMalformed(t *testing.T) {
	for _, input := range []string{
		"", "noon", "25:00", "9:60", "13:00 PM", "0:30 AM", "9", "9:00 XM", "9 00 AM",
	} {
		_, err := ParseMinutes(input)
		require.Error(t, err, input)
		var perr *ParseError
		assert.ErrorAs(t, err, &perr, input)
	}
}

func TestOverlapsSymmetry(t *testing.T) {
	intervals := [][2]int{{540, 600}, {570, 690}, {600, 660}, {540, 540}}
	for _, a := range intervals {
		for _, b := range intervals {
			assert.Equal(t, Overlaps(a[0], a[1], b[0], b[1]), Overlaps(b[0], b[1], a[0], a[1]))
		}
	}
}

func TestOverlapsSelf(t *testing.T) {
	assert.True(t, Overlaps(540, 600, 540, 600))
	// zero-length intervals never overlap, not even themselves
	assert.False(t, Overlaps(540, 540, 540, 540))
}

func TestOverlapsTouchingEndpoints(t *testing.T) {
	// [9:00,10:00) and [10:00,11:00) share only a boundary
	assert.False(t, Overlaps(540, 600, 600, 660))
	assert.False(t, Overlaps(600, 660, 540, 600))
}

func TestOverlapsContainment(t *testing.T) {
	// [10:00,10:30) sits strictly inside [9:00,12:00)
	assert.True(t, Overlaps(540, 720, 600, 630))
	assert.True(t, Overlaps(600, 630, 540, 720))
}

func TestFormatMinutesRoundTrip(t *testing.T) {
	for _, m := range []int{0, 1, 540, 14*60 + 30, 23*60 + 59} {
		parsed, err := ParseMinutes(FormatMinutes(m))
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
}

package tz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConverter_Offset(t *testing.T) {
	c := Default()
	assert.Equal(t, 16*time.Hour, c.Offset())
}

func TestConverter_RoundTrip(t *testing.T) {
	c := Default()
	src := time.Date(2023, 12, 11, 19, 30, 0, 0, c.Source)

	disp := c.ToDisplay(src)
	assert.True(t, disp.Equal(src), "conversion must not move the instant")
	assert.Equal(t, 12, disp.Day())
	assert.Equal(t, 11, disp.Hour())
	assert.Equal(t, 30, disp.Minute())

	back := c.ToSource(disp)
	assert.True(t, back.Equal(src))
	assert.Equal(t, 19, back.Hour())
	assert.Equal(t, c.Source, back.Location())
}

func TestConverter_NoDaylightSaving(t *testing.T) {
	c := Default()
	// Mid-July would be PDT (UTC-7) under calendar rules; the fixed zone keeps -8.
	summer := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	_, off := c.ToSource(summer).Zone()
	assert.Equal(t, -8*3600, off)
	assert.Equal(t, 16*time.Hour, c.Offset())
}

func TestConverter_NilLocationsFallBackToUTC(t *testing.T) {
	var c Converter
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
	assert.Equal(t, time.UTC, c.ToDisplay(now).Location())
	assert.Equal(t, time.Duration(0), c.Offset())
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"+08:00", 8 * time.Hour},
		{"-08:00", -8 * time.Hour},
		{"-0800", -8 * time.Hour},
		{"-8", -8 * time.Hour},
		{"8", 8 * time.Hour},
		{"UTC+5:30", 5*time.Hour + 30*time.Minute},
		{"gmt-03:30", -3*time.Hour - 30*time.Minute},
		{"", 0},
		{"UTC", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOffset(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOffset_Invalid(t *testing.T) {
	for _, in := range []string{"+", "abc", "+08:75", "+15:00", "-20"} {
		_, err := ParseOffset(in)
		assert.Error(t, err, in)
	}
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "+08:00", FormatOffset(8*time.Hour))
	assert.Equal(t, "-08:00", FormatOffset(-8*time.Hour))
	assert.Equal(t, "+05:30", FormatOffset(5*time.Hour+30*time.Minute))
	assert.Equal(t, "+00:00", FormatOffset(0))
}

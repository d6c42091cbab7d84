/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: datetime_test.go
Description: Tests for date/time format detection, parsing outcomes and format rewrites.
*/

package datetime

import (
	"regexp"
	"testing"
	"time"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineFormats(t *testing.T) {
	d := NewDetector(true)
	cases := map[string]string{
		"2023-01-15":                          "yyyy-MM-dd",
		"2023/1/5":                            "yyyy/M/d",
		"15/01/2023":                          "dd/MM/yyyy",
		"01/15/2023":                          "MM/dd/yyyy",
		"5 Jan 2023":                          "d MMM yyyy",
		"12:30":                               "HH:mm",
		"9:05:01":                             "H:mm:ss",
		"2023-01-15T10:20:30":                 "yyyy-MM-dd'T'HH:mm:ss",
		"2023-01-15 10:20:30.123":             "yyyy-MM-dd HH:mm:ss.SSS",
		"2023-01-15T10:20:30Z":                "yyyy-MM-dd'T'HH:mm:ssX",
		"2023-01-15T10:20:30+05:30":           "yyyy-MM-dd'T'HH:mm:ssxxx",
		"2023-01-15T10:20:30+01:00[Europe/Paris]": "yyyy-MM-dd'T'HH:mm:ssxxx'['VV']'",
	}
	for sample, want := range cases {
		det, ok := d.Determine(sample)
		require.True(t, ok, sample)
		assert.Equal(t, want, det.Format, sample)
	}

	for _, bad := range []string{"hello", "2023", "12345", "2023-02-30", "32/13/2023", "10:61"} {
		_, ok := d.Determine(bad)
		assert.False(t, ok, bad)
	}
}

func TestDetermineAmbiguousFollowsLocale(t *testing.T) {
	us, ok := NewDetector(true).Determine("01/02/2023")
	require.True(t, ok)
	assert.True(t, us.Ambiguous)
	assert.Equal(t, "MM/dd/yyyy", us.Format)
	assert.Equal(t, "dd/MM/yyyy", us.AltFormat)

	gb, ok := NewDetector(false).Determine("01/02/2023")
	require.True(t, ok)
	assert.Equal(t, "dd/MM/yyyy", gb.Format)
}

func TestResolveUsesUnambiguousVotes(t *testing.T) {
	d := NewDetector(true)
	var dets []Detection
	for _, s := range []string{"01/02/2023", "03/04/2023", "25/12/2023"} {
		det, ok := d.Determine(s)
		require.True(t, ok)
		dets = append(dets, det)
	}
	format, count := Resolve(dets)
	assert.Equal(t, "dd/MM/yyyy", format)
	assert.Equal(t, 3, count)
}

func TestResolveLoosensWidths(t *testing.T) {
	d := NewDetector(true)
	var dets []Detection
	for _, s := range []string{"2023-1-5", "2023-12-15", "2023-11-5"} {
		det, ok := d.Determine(s)
		require.True(t, ok)
		dets = append(dets, det)
	}
	format, count := Resolve(dets)
	assert.Equal(t, "yyyy-M-d", format)
	assert.Equal(t, 3, count)
}

func TestParseOutcomes(t *testing.T) {
	p := NewParser()

	out := p.Parse("yyyy-MM-dd", "2023-03-04")
	require.Equal(t, OK, out.Kind)
	assert.Equal(t, time.Date(2023, 3, 4, 0, 0, 0, 0, time.UTC), out.Time)

	assert.Equal(t, Mismatch, p.Parse("yyyy-MM-dd", "2023-3-4x").Kind)
	assert.Equal(t, Mismatch, p.Parse("yyyy-MM-dd", "2023-02-29").Kind)

	out = p.Parse("HH:mm:ss.SSS", "10:20:30.123456")
	assert.Equal(t, NeedsFractionWidth, out.Kind)
	assert.Equal(t, 6, out.Width)

	assert.Equal(t, NeedsHour24, p.Parse("HH:mm", "24:00").Kind)
	out = p.Parse("kk:mm", "24:00")
	require.Equal(t, OK, out.Kind)

	out = p.Parse("yyyy-MM-dd'T'HH:mmxxx", "2023-01-01T10:00+02:00")
	require.Equal(t, OK, out.Kind)
	_, offset := out.Time.Zone()
	assert.Equal(t, 7200, offset)

	out = p.Parse("yyyy-MM-dd'T'HH:mm'['VV']'", "2023-07-01T10:00[Europe/Paris]")
	require.Equal(t, OK, out.Kind)
	assert.Equal(t, "Europe/Paris", out.Time.Location().String())
	assert.Equal(t, Mismatch, p.Parse("yyyy-MM-dd'T'HH:mm'['VV']'", "2023-07-01T10:00[Mars/Olympus]").Kind)
}

func TestFormatRendersParseableValues(t *testing.T) {
	at := time.Date(2023, 3, 4, 0, 5, 6, 120000000, time.UTC)
	cases := map[string]string{
		"yyyy-MM-dd":                    "2023-03-04",
		"yyyy/M/d":                      "2023/3/4",
		"d MMM yyyy":                    "4 Mar 2023",
		"kk:mm:ss":                      "24:05:06",
		"yyyy-MM-dd HH:mm:ss.SSS":       "2023-03-04 00:05:06.120",
		"HH:mm:ss.S{1,6}":               "00:05:06.12",
		"yyyy-MM-dd'T'HH:mmX":           "2023-03-04T00:05Z",
		"yyyy-MM-dd'T'HH:mmxx":          "2023-03-04T00:05+0000",
		"yyyy-MM-dd'T'HH:mmxxx'['VV']'": "2023-03-04T00:05+00:00[UTC]",
	}
	p := NewParser()
	for format, want := range cases {
		got, err := Format(format, at)
		require.NoError(t, err, format)
		assert.Equal(t, want, got, format)
		assert.Equal(t, OK, p.Parse(format, got).Kind, format)
	}

	_, err := Format("yyyy-QQ", at)
	assert.Error(t, err)
}

func TestFormatRewrites(t *testing.T) {
	widened, ok := WidenFraction("HH:mm:ss.SSS", 6)
	require.True(t, ok)
	assert.Equal(t, "HH:mm:ss.S{3,6}", widened)
	assert.Equal(t, OK, NewParser().Parse(widened, "10:20:30.1234").Kind)

	_, ok = WidenFraction(widened, 4)
	assert.False(t, ok)

	swapped, ok := SwapHour24("yyyy-MM-dd HH:mm")
	require.True(t, ok)
	assert.Equal(t, "yyyy-MM-dd kk:mm", swapped)

	_, ok = Loosen("yyyy-MM-dd", "dd/MM/yyyy")
	assert.False(t, ok)
}

func TestRegexpAndBaseType(t *testing.T) {
	re, err := Regexp("yyyy-MM-dd'T'HH:mm:ss.S{1,3}xxx")
	require.NoError(t, err)
	compiled := regexp.MustCompile("^" + re + "$")
	assert.True(t, compiled.MatchString("2023-01-01T10:00:00.5+01:00"))
	assert.False(t, compiled.MatchString("2023-01-01T10:00:00+01:00"))

	cases := map[string]core.BaseType{
		"yyyy-MM-dd":              core.BaseLocalDate,
		"HH:mm":                   core.BaseLocalTime,
		"yyyy-MM-dd HH:mm":        core.BaseLocalDateTime,
		"yyyy-MM-dd'T'HH:mmX":     core.BaseOffsetDateTime,
		"yyyy-MM-dd'T'HH:mm'['VV']'": core.BaseZonedDateTime,
	}
	for format, want := range cases {
		got, err := BaseType(format)
		require.NoError(t, err)
		assert.Equal(t, want, got, format)
	}

	ti, err := TypeInfo("yyyyMMdd")
	require.NoError(t, err)
	assert.Equal(t, `\d{4}\d{2}\d{2}`, ti.Regexp)
	assert.Equal(t, "yyyyMMdd", ti.DateFormat())

	assert.Error(t, Validate("yyyy-QQ"))
}

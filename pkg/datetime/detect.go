/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: detect.go
Description: Date/time format detection for the Akaylee Profiler. Guesses the format of a single
sample from its structure (ISO and common numeric date layouts, English month abbreviations,
24-hour times, fractional seconds, offsets and region zone ids) and resolves the formats seen
across a window into one, using unambiguous samples to settle day/month order.
*/

package datetime

import (
	"regexp"
	"strings"
)

// Detection is the guessed format of one sample
type Detection struct {
	Format    string `json:"format"`
	AltFormat string `json:"altFormat,omitempty"` // Day/month swapped reading for ambiguous samples
	Ambiguous bool   `json:"ambiguous,omitempty"`
}

var (
	isoDate     = regexp.MustCompile(`^(\d{4})([-/.])(\d{1,2})([-/.])(\d{1,2})`)
	numericDate = regexp.MustCompile(`^(\d{1,2})([-/.])(\d{1,2})([-/.])(\d{4})`)
	namedDate   = regexp.MustCompile(`^(\d{1,2})([- ])(\p{L}{3})([- ])(\d{4})`)
	clockTime   = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2})(?:[.,](\d{1,9}))?)?`)
	zoneSuffix  = regexp.MustCompile(`^\[([\p{L}_]+(?:/[\p{L}_+\-\d]+)*)\]$`)
)

// Detector guesses formats for samples in a locale
type Detector struct {
	monthFirst bool
	parser     *Parser
}

// NewDetector creates a detector; monthFirst selects MM/dd for ambiguous dates
func NewDetector(monthFirst bool) *Detector {
	return &Detector{monthFirst: monthFirst, parser: NewParser()}
}

// Determine guesses the format of a trimmed sample
func (d *Detector) Determine(sample string) (Detection, bool) {
	if len(sample) < 4 || len(sample) > 64 {
		return Detection{}, false
	}

	var format, alt strings.Builder
	rest := sample
	ambiguous := false

	switch {
	case isoDate.MatchString(rest):
		m := isoDate.FindStringSubmatch(rest)
		if m[2] != m[4] {
			return Detection{}, false
		}
		part := "yyyy" + m[2] + digitToken("M", m[3]) + m[4] + digitToken("d", m[5])
		format.WriteString(part)
		alt.WriteString(part)
		rest = rest[len(m[0]):]

	case numericDate.MatchString(rest):
		m := numericDate.FindStringSubmatch(rest)
		if m[2] != m[4] {
			return Detection{}, false
		}
		first, second := atoi(m[1]), atoi(m[3])
		dayFirst := digitToken("d", m[1]) + m[2] + digitToken("M", m[3]) + m[4] + "yyyy"
		monthFirst := digitToken("M", m[1]) + m[2] + digitToken("d", m[3]) + m[4] + "yyyy"
		switch {
		case first > 12 && second > 12:
			return Detection{}, false
		case first > 12:
			format.WriteString(dayFirst)
			alt.WriteString(dayFirst)
		case second > 12:
			format.WriteString(monthFirst)
			alt.WriteString(monthFirst)
		case d.monthFirst:
			ambiguous = first != second
			format.WriteString(monthFirst)
			alt.WriteString(dayFirst)
		default:
			ambiguous = first != second
			format.WriteString(dayFirst)
			alt.WriteString(monthFirst)
		}
		rest = rest[len(m[0]):]

	case namedDate.MatchString(rest):
		m := namedDate.FindStringSubmatch(rest)
		if _, ok := monthNames[strings.ToLower(m[3])]; !ok {
			return Detection{}, false
		}
		part := digitToken("d", m[1]) + m[2] + "MMM" + m[4] + "yyyy"
		format.WriteString(part)
		alt.WriteString(part)
		rest = rest[len(m[0]):]
	}

	hasDate := format.Len() > 0
	if hasDate && rest != "" {
		switch rest[0] {
		case 'T':
			format.WriteString("'T'")
			alt.WriteString("'T'")
		case ' ':
			format.WriteString(" ")
			alt.WriteString(" ")
		default:
			return Detection{}, false
		}
		rest = rest[1:]
		if rest == "" {
			return Detection{}, false
		}
	}

	if rest != "" {
		m := clockTime.FindStringSubmatch(rest)
		if m == nil {
			return Detection{}, false
		}
		hour := "HH"
		if len(m[1]) == 1 {
			hour = "H"
		}
		if atoi(m[1]) == 24 {
			hour = strings.Repeat("k", len(m[1]))
		}
		part := hour + ":mm"
		if m[3] != "" {
			part += ":ss"
		}
		if m[4] != "" {
			sep := rest[len(m[1])+len(m[2])+len(m[3])+2 : len(m[1])+len(m[2])+len(m[3])+3]
			part += sep + strings.Repeat("S", len(m[4]))
		}
		format.WriteString(part)
		alt.WriteString(part)
		rest = rest[len(m[0]):]

		offset := offsetToken(rest)
		if offset != "" {
			format.WriteString(offset)
			alt.WriteString(offset)
			rest = rest[offsetLength(rest, offset):]
		}
		if rest != "" {
			if !zoneSuffix.MatchString(rest) {
				return Detection{}, false
			}
			format.WriteString("'['VV']'")
			alt.WriteString("'['VV']'")
			rest = ""
		}
	}

	if format.Len() == 0 || rest != "" {
		return Detection{}, false
	}

	det := Detection{Format: format.String(), Ambiguous: ambiguous}
	if ambiguous {
		det.AltFormat = alt.String()
	}
	if outcome := d.parser.Parse(det.Format, sample); outcome.Kind != OK {
		if !ambiguous || d.parser.Parse(det.AltFormat, sample).Kind != OK {
			return Detection{}, false
		}
		det.Format, det.AltFormat, det.Ambiguous = det.AltFormat, "", false
	}
	return det, true
}

func digitToken(letter, digits string) string {
	if len(digits) == 1 {
		return letter
	}
	return letter + letter
}

func offsetToken(s string) string {
	switch {
	case strings.HasPrefix(s, "Z"):
		return "X"
	case len(s) >= 6 && (s[0] == '+' || s[0] == '-') && countDigits(s[1:]) == 2 && s[3] == ':' && countDigits(s[4:]) >= 2:
		return "xxx"
	case len(s) >= 5 && (s[0] == '+' || s[0] == '-') && countDigits(s[1:]) >= 4:
		return "xx"
	}
	return ""
}

func offsetLength(s, token string) int {
	switch token {
	case "X":
		return 1
	case "xxx":
		return 6
	}
	return 5
}

// Resolve picks one format for a set of per-sample detections
// Ambiguous samples follow the order voted by unambiguous ones; formats that differ only
// in field widths are loosened into one. Returns the format and how many samples it covers.
func Resolve(detections []Detection) (string, int) {
	definite := make(map[string]int)
	for _, d := range detections {
		if !d.Ambiguous {
			definite[d.Format]++
		}
	}

	var groups []string
	counts := make(map[string]int)
	for _, d := range detections {
		format := d.Format
		if d.Ambiguous && definite[d.AltFormat] > definite[d.Format] {
			format = d.AltFormat
		}
		merged := false
		for i, g := range groups {
			if loose, ok := Loosen(g, format); ok {
				counts[loose] = counts[g] + 1
				if loose != g {
					delete(counts, g)
					groups[i] = loose
				}
				merged = true
				break
			}
		}
		if !merged {
			groups = append(groups, format)
			counts[format] = 1
		}
	}

	best, bestCount := "", 0
	for _, g := range groups {
		if counts[g] > bestCount {
			best, bestCount = g, counts[g]
		}
	}
	return best, bestCount
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parse.go
Description: Date/time parsing for the Akaylee Profiler. Parses a value against a format and
returns a typed outcome instead of an error: either the parsed time, a plain mismatch, or a
repair hint (fractional seconds of a different width, or an hour of 24) that the caller can
act on by rewriting the format and retrying.
*/

package datetime

import (
	"strings"
	"time"
	_ "time/tzdata"
	"unicode"
)

// OutcomeKind classifies the result of a parse
type OutcomeKind int

const (
	OK OutcomeKind = iota
	Mismatch
	NeedsFractionWidth
	NeedsHour24
)

// String returns a readable outcome name
func (k OutcomeKind) String() string {
	switch k {
	case OK:
		return "ok"
	case Mismatch:
		return "mismatch"
	case NeedsFractionWidth:
		return "needs-fraction-width"
	case NeedsHour24:
		return "needs-hour-24"
	}
	return "unknown"
}

// Outcome is the result of parsing one value
type Outcome struct {
	Kind  OutcomeKind
	Width int       // Observed fraction width for NeedsFractionWidth
	Time  time.Time // Parsed value when Kind is OK
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// Parser parses values against formats, caching tokenized formats and zones
// Not safe for concurrent use
type Parser struct {
	layouts map[string][]token
	zones   map[string]*time.Location
}

// NewParser creates a parser
func NewParser() *Parser {
	return &Parser{
		layouts: make(map[string][]token),
		zones:   make(map[string]*time.Location),
	}
}

func (p *Parser) layout(format string) ([]token, error) {
	if tokens, ok := p.layouts[format]; ok {
		return tokens, nil
	}
	tokens, err := tokenize(format)
	if err != nil {
		return nil, err
	}
	p.layouts[format] = tokens
	return tokens, nil
}

func (p *Parser) zone(name string) *time.Location {
	if loc, ok := p.zones[name]; ok {
		return loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = nil
	}
	p.zones[name] = loc
	return loc
}

// fields collects parsed components
type fields struct {
	year, month, day     int
	hour, minute, second int
	nanos                int
	offset               int // seconds east of UTC
	hasOffset, hasDate   bool
	loc                  *time.Location
	hour24               bool
}

// Parse parses input against format
func (p *Parser) Parse(format, input string) Outcome {
	tokens, err := p.layout(format)
	if err != nil {
		return Outcome{Kind: Mismatch}
	}

	f := fields{year: 0, month: 1, day: 1}
	pos := 0
	for _, t := range tokens {
		switch t.field {
		case fieldLiteral:
			if !strings.HasPrefix(input[pos:], t.literal) {
				return Outcome{Kind: Mismatch}
			}
			pos += len(t.literal)

		case fieldFraction:
			n := countDigits(input[pos:])
			if n == 0 {
				return Outcome{Kind: Mismatch}
			}
			if n < t.minWidth || n > t.maxWidth {
				if n > 9 {
					return Outcome{Kind: Mismatch}
				}
				return Outcome{Kind: NeedsFractionWidth, Width: n}
			}
			v := atoi(input[pos : pos+n])
			for i := n; i < 9; i++ {
				v *= 10
			}
			f.nanos = v
			pos += n

		case fieldMonthName:
			if len(input) < pos+3 {
				return Outcome{Kind: Mismatch}
			}
			m, ok := monthNames[strings.ToLower(input[pos:pos+3])]
			if !ok {
				return Outcome{Kind: Mismatch}
			}
			f.month = int(m)
			f.hasDate = true
			pos += 3

		case fieldOffsetColon, fieldOffsetCompact, fieldOffsetZ:
			n, offset, ok := parseOffset(input[pos:], t.field)
			if !ok {
				return Outcome{Kind: Mismatch}
			}
			f.offset = offset
			f.hasOffset = true
			pos += n

		case fieldZone:
			n := 0
			for n < len(input)-pos {
				r := rune(input[pos+n])
				if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '/' || r == '_' || r == '+' || r == '-') {
					break
				}
				n++
			}
			if n == 0 {
				return Outcome{Kind: Mismatch}
			}
			loc := p.zone(input[pos : pos+n])
			if loc == nil {
				return Outcome{Kind: Mismatch}
			}
			f.loc = loc
			pos += n

		default:
			n := countDigits(input[pos:])
			if n < t.minWidth {
				return Outcome{Kind: Mismatch}
			}
			n = min(n, t.maxWidth)
			v := atoi(input[pos : pos+n])
			pos += n
			if outcome, ok := f.set(t.field, v); !ok {
				return outcome
			}
		}
	}
	if pos != len(input) {
		return Outcome{Kind: Mismatch}
	}
	return f.build()
}

// set validates and stores a numeric field
func (f *fields) set(fl field, v int) (Outcome, bool) {
	switch fl {
	case fieldYear:
		f.year = v
		f.hasDate = true
	case fieldMonth:
		if v < 1 || v > 12 {
			return Outcome{Kind: Mismatch}, false
		}
		f.month = v
		f.hasDate = true
	case fieldDay:
		if v < 1 || v > 31 {
			return Outcome{Kind: Mismatch}, false
		}
		f.day = v
		f.hasDate = true
	case fieldHour:
		if v == 24 {
			return Outcome{Kind: NeedsHour24}, false
		}
		if v > 23 {
			return Outcome{Kind: Mismatch}, false
		}
		f.hour = v
	case fieldHour24:
		if v < 1 || v > 24 {
			return Outcome{Kind: Mismatch}, false
		}
		if v == 24 {
			f.hour24 = true
			v = 0
		}
		f.hour = v
	case fieldMinute:
		if v > 59 {
			return Outcome{Kind: Mismatch}, false
		}
		f.minute = v
	case fieldSecond:
		if v > 59 {
			return Outcome{Kind: Mismatch}, false
		}
		f.second = v
	}
	return Outcome{}, true
}

func (f *fields) build() Outcome {
	loc := time.UTC
	switch {
	case f.loc != nil:
		loc = f.loc
	case f.hasOffset:
		loc = time.FixedZone("", f.offset)
	}
	t := time.Date(f.year, time.Month(f.month), f.day, f.hour, f.minute, f.second, f.nanos, loc)
	if f.hasDate && (t.Day() != f.day || int(t.Month()) != f.month) {
		return Outcome{Kind: Mismatch}
	}
	if f.hour24 {
		t = t.Add(24 * time.Hour)
	}
	return Outcome{Kind: OK, Time: t}
}

func parseOffset(s string, fl field) (int, int, bool) {
	if fl == fieldOffsetZ && strings.HasPrefix(s, "Z") {
		return 1, 0, true
	}
	if len(s) < 3 || (s[0] != '+' && s[0] != '-') {
		return 0, 0, false
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	if countDigits(s[1:]) < 2 {
		return 0, 0, false
	}
	hours := atoi(s[1:3])
	n := 3
	minutes := 0
	switch {
	case len(s) >= 6 && s[3] == ':' && countDigits(s[4:]) >= 2 && fl != fieldOffsetCompact:
		minutes = atoi(s[4:6])
		n = 6
	case len(s) >= 5 && countDigits(s[3:]) >= 2 && fl != fieldOffsetColon:
		minutes = atoi(s[3:5])
		n = 5
	case fl != fieldOffsetZ:
		return 0, 0, false
	}
	if hours > 18 || minutes > 59 {
		return 0, 0, false
	}
	return n, sign * (hours*3600 + minutes*60), true
}

func countDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

func atoi(s string) int {
	v := 0
	for i := 0; i < len(s); i++ {
		v = v*10 + int(s[i]-'0')
	}
	return v
}

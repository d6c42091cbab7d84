/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: format.go
Description: Date/time format patterns for the Akaylee Profiler. A format is a compact pattern
such as yyyy-MM-dd'T'HH:mm:ss.SSSxxx built from field tokens and literals. This file
tokenizes formats, derives the matching regular expression and base type, and performs the
small rewrites the date tracker needs (widening fractional seconds, switching to 1-24 hours).
*/

package datetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kleascm/akaylee-profiler/pkg/core"
)

// field identifies what a token parses
type field int

const (
	fieldLiteral field = iota
	fieldYear
	fieldMonth
	fieldMonthName
	fieldDay
	fieldHour
	fieldHour24 // 1-24 clock
	fieldMinute
	fieldSecond
	fieldFraction
	fieldOffsetColon   // xxx: +hh:mm
	fieldOffsetCompact // xx: +hhmm
	fieldOffsetZ       // X: Z or +hh[:mm]
	fieldZone          // VV: region id
)

// token is one element of a format
type token struct {
	field    field
	literal  string
	minWidth int
	maxWidth int
}

// tokenize splits a format into tokens
func tokenize(format string) ([]token, error) {
	var tokens []token
	runes := []rune(format)
	for i := 0; i < len(runes); {
		c := runes[i]

		if c == '\'' {
			end := i + 1
			for end < len(runes) && runes[end] != '\'' {
				end++
			}
			if end >= len(runes) {
				return nil, fmt.Errorf("unterminated literal in format %q", format)
			}
			tokens = append(tokens, token{field: fieldLiteral, literal: string(runes[i+1 : end])})
			i = end + 1
			continue
		}

		run := 1
		for i+run < len(runes) && runes[i+run] == c {
			run++
		}

		switch c {
		case 'y':
			if run != 4 {
				return nil, fmt.Errorf("unsupported year width %d in format %q", run, format)
			}
			tokens = append(tokens, token{field: fieldYear, minWidth: 4, maxWidth: 4})
		case 'M':
			switch run {
			case 1:
				tokens = append(tokens, token{field: fieldMonth, minWidth: 1, maxWidth: 2})
			case 2:
				tokens = append(tokens, token{field: fieldMonth, minWidth: 2, maxWidth: 2})
			case 3:
				tokens = append(tokens, token{field: fieldMonthName, minWidth: 3, maxWidth: 3})
			default:
				return nil, fmt.Errorf("unsupported month width %d in format %q", run, format)
			}
		case 'd', 'H', 'k', 'm', 's':
			if run > 2 {
				return nil, fmt.Errorf("unsupported width %d for %q in format %q", run, c, format)
			}
			f := map[rune]field{'d': fieldDay, 'H': fieldHour, 'k': fieldHour24, 'm': fieldMinute, 's': fieldSecond}[c]
			tok := token{field: f, minWidth: 2, maxWidth: 2}
			if run == 1 {
				tok.minWidth = 1
			}
			tokens = append(tokens, tok)
		case 'S':
			if run == 1 && i+1 < len(runes) && runes[i+1] == '{' {
				end := 2
				for i+end < len(runes) && runes[i+end] != '}' {
					end++
				}
				if i+end >= len(runes) {
					return nil, fmt.Errorf("unterminated fraction width in format %q", format)
				}
				minW, maxW, err := parseWidthRange(string(runes[i+2 : i+end]))
				if err != nil {
					return nil, fmt.Errorf("bad fraction width in format %q: %w", format, err)
				}
				tokens = append(tokens, token{field: fieldFraction, minWidth: minW, maxWidth: maxW})
				i += end + 1
				continue
			}
			tokens = append(tokens, token{field: fieldFraction, minWidth: run, maxWidth: run})
		case 'x':
			switch run {
			case 2:
				tokens = append(tokens, token{field: fieldOffsetCompact})
			case 3:
				tokens = append(tokens, token{field: fieldOffsetColon})
			default:
				return nil, fmt.Errorf("unsupported offset width %d in format %q", run, format)
			}
		case 'X':
			tokens = append(tokens, token{field: fieldOffsetZ})
		case 'V':
			if run != 2 {
				return nil, fmt.Errorf("zone id must be VV in format %q", format)
			}
			tokens = append(tokens, token{field: fieldZone})
		default:
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
				return nil, fmt.Errorf("unsupported pattern letter %q in format %q", c, format)
			}
			tokens = append(tokens, token{field: fieldLiteral, literal: string(runes[i : i+run])})
		}
		i += run
	}
	return tokens, nil
}

func parseWidthRange(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected m,n got %q", s)
	}
	minW, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	maxW, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if minW < 1 || maxW > 9 || minW > maxW {
		return 0, 0, fmt.Errorf("width range %d,%d out of bounds", minW, maxW)
	}
	return minW, maxW, nil
}

// render turns tokens back into a format string
func render(tokens []token) string {
	var b strings.Builder
	for _, t := range tokens {
		switch t.field {
		case fieldLiteral:
			if strings.ContainsAny(t.literal, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ[]") {
				b.WriteString("'" + t.literal + "'")
			} else {
				b.WriteString(t.literal)
			}
		case fieldYear:
			b.WriteString("yyyy")
		case fieldMonth:
			b.WriteString(widthLetters('M', t))
		case fieldMonthName:
			b.WriteString("MMM")
		case fieldDay:
			b.WriteString(widthLetters('d', t))
		case fieldHour:
			b.WriteString(widthLetters('H', t))
		case fieldHour24:
			b.WriteString(widthLetters('k', t))
		case fieldMinute:
			b.WriteString(widthLetters('m', t))
		case fieldSecond:
			b.WriteString(widthLetters('s', t))
		case fieldFraction:
			if t.minWidth == t.maxWidth {
				b.WriteString(strings.Repeat("S", t.minWidth))
			} else {
				fmt.Fprintf(&b, "S{%d,%d}", t.minWidth, t.maxWidth)
			}
		case fieldOffsetColon:
			b.WriteString("xxx")
		case fieldOffsetCompact:
			b.WriteString("xx")
		case fieldOffsetZ:
			b.WriteString("X")
		case fieldZone:
			b.WriteString("VV")
		}
	}
	return b.String()
}

func widthLetters(c rune, t token) string {
	if t.minWidth == 1 {
		return string(c)
	}
	return string([]rune{c, c})
}

// Format renders t with format; offsets and zones are written for t's location
func Format(format string, t time.Time) (string, error) {
	tokens, err := tokenize(format)
	if err != nil {
		return "", err
	}
	_, offset := t.Zone()
	var b strings.Builder
	for _, tok := range tokens {
		switch tok.field {
		case fieldLiteral:
			b.WriteString(tok.literal)
		case fieldYear:
			fmt.Fprintf(&b, "%04d", t.Year())
		case fieldMonth:
			writeNumber(&b, int(t.Month()), tok.minWidth)
		case fieldMonthName:
			b.WriteString(t.Month().String()[:3])
		case fieldDay:
			writeNumber(&b, t.Day(), tok.minWidth)
		case fieldHour:
			writeNumber(&b, t.Hour(), tok.minWidth)
		case fieldHour24:
			hour := t.Hour()
			if hour == 0 {
				hour = 24
			}
			writeNumber(&b, hour, tok.minWidth)
		case fieldMinute:
			writeNumber(&b, t.Minute(), tok.minWidth)
		case fieldSecond:
			writeNumber(&b, t.Second(), tok.minWidth)
		case fieldFraction:
			fraction := fmt.Sprintf("%09d", t.Nanosecond())[:tok.maxWidth]
			for len(fraction) > tok.minWidth && fraction[len(fraction)-1] == '0' {
				fraction = fraction[:len(fraction)-1]
			}
			b.WriteString(fraction)
		case fieldOffsetZ:
			if offset == 0 {
				b.WriteByte('Z')
				continue
			}
			writeOffset(&b, offset, ":")
		case fieldOffsetColon:
			writeOffset(&b, offset, ":")
		case fieldOffsetCompact:
			writeOffset(&b, offset, "")
		case fieldZone:
			b.WriteString(t.Location().String())
		}
	}
	return b.String(), nil
}

func writeNumber(b *strings.Builder, v, width int) {
	fmt.Fprintf(b, "%0*d", width, v)
}

func writeOffset(b *strings.Builder, offset int, sep string) {
	sign := '+'
	if offset < 0 {
		sign, offset = '-', -offset
	}
	fmt.Fprintf(b, "%c%02d%s%02d", sign, offset/3600, sep, offset%3600/60)
}

// Regexp returns the regular expression matching values of the format
func Regexp(format string) (string, error) {
	tokens, err := tokenize(format)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, t := range tokens {
		switch t.field {
		case fieldLiteral:
			b.WriteString(regexp.QuoteMeta(t.literal))
		case fieldMonthName:
			b.WriteString(`\p{L}{3}`)
		case fieldOffsetColon:
			b.WriteString(`[+-]\d{2}:\d{2}`)
		case fieldOffsetCompact:
			b.WriteString(`[+-]\d{4}`)
		case fieldOffsetZ:
			b.WriteString(`(?:Z|[+-]\d{2}(?::?\d{2})?)`)
		case fieldZone:
			b.WriteString(`[\p{L}_]+(?:/[\p{L}_+\-\d]+)*`)
		default:
			if t.minWidth == t.maxWidth {
				fmt.Fprintf(&b, `\d{%d}`, t.minWidth)
			} else {
				fmt.Fprintf(&b, `\d{%d,%d}`, t.minWidth, t.maxWidth)
			}
		}
	}
	return b.String(), nil
}

// BaseType derives the date/time base type implied by a format
func BaseType(format string) (core.BaseType, error) {
	tokens, err := tokenize(format)
	if err != nil {
		return core.BaseString, err
	}
	var hasDate, hasTime, hasOffset, hasZone bool
	for _, t := range tokens {
		switch t.field {
		case fieldYear, fieldMonth, fieldMonthName, fieldDay:
			hasDate = true
		case fieldHour, fieldHour24, fieldMinute, fieldSecond, fieldFraction:
			hasTime = true
		case fieldOffsetColon, fieldOffsetCompact, fieldOffsetZ:
			hasOffset = true
		case fieldZone:
			hasZone = true
		}
	}
	switch {
	case hasZone:
		return core.BaseZonedDateTime, nil
	case hasOffset:
		return core.BaseOffsetDateTime, nil
	case hasDate && hasTime:
		return core.BaseLocalDateTime, nil
	case hasDate:
		return core.BaseLocalDate, nil
	case hasTime:
		return core.BaseLocalTime, nil
	}
	return core.BaseString, fmt.Errorf("format %q has no date or time fields", format)
}

// TypeInfo builds the classification for a format
func TypeInfo(format string) (*core.TypeInfo, error) {
	base, err := BaseType(format)
	if err != nil {
		return nil, err
	}
	re, err := Regexp(format)
	if err != nil {
		return nil, err
	}
	return core.NewQualifiedTypeInfo(base, re, format), nil
}

// WidenFraction rewrites the fractional-seconds field so it also accepts width digits
func WidenFraction(format string, width int) (string, bool) {
	tokens, err := tokenize(format)
	if err != nil || width < 1 || width > 9 {
		return format, false
	}
	for i, t := range tokens {
		if t.field != fieldFraction {
			continue
		}
		if width >= t.minWidth && width <= t.maxWidth {
			return format, false
		}
		tokens[i].minWidth = min(t.minWidth, width)
		tokens[i].maxWidth = max(t.maxWidth, width)
		return render(tokens), true
	}
	return format, false
}

// SwapHour24 rewrites a 0-23 hour field as a 1-24 hour field
func SwapHour24(format string) (string, bool) {
	tokens, err := tokenize(format)
	if err != nil {
		return format, false
	}
	for i, t := range tokens {
		if t.field == fieldHour {
			tokens[i].field = fieldHour24
			return render(tokens), true
		}
	}
	return format, false
}

// Loosen merges two formats that differ only in field widths into one accepting both
func Loosen(a, b string) (string, bool) {
	if a == b {
		return a, true
	}
	ta, err := tokenize(a)
	if err != nil {
		return "", false
	}
	tb, err := tokenize(b)
	if err != nil || len(ta) != len(tb) {
		return "", false
	}
	for i := range ta {
		x, y := ta[i], tb[i]
		if x.field != y.field || (x.field == fieldLiteral && x.literal != y.literal) {
			return "", false
		}
		ta[i].minWidth = min(x.minWidth, y.minWidth)
		ta[i].maxWidth = max(x.maxWidth, y.maxWidth)
	}
	return render(ta), true
}

// Validate reports whether a format is well formed
func Validate(format string) error {
	_, err := tokenize(format)
	return err
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: numeric.go
Description: Numeric scanner for the Akaylee Profiler. Walks a trimmed sample once and decides
whether it is a number in the active locale: leading or trailing sign, grouping separators
in groups of three, one decimal separator and a short exponent. Alongside the verdict it
records per-character counts and last-seen positions that semantic matchers use for cheap
candidacy checks.
*/

package escalator

import (
	"unicode"

	"github.com/kleascm/akaylee-profiler/pkg/core"
)

// maxExponentDigits bounds the exponent so values like 1e99999 are not numbers
const maxExponentDigits = 3

// NumericShape is the result of scanning one sample
type NumericShape struct {
	Numeric       bool `json:"numeric"`
	Double        bool `json:"double"`
	Signed        bool `json:"signed"`
	TrailingMinus bool `json:"trailingMinus"`
	Grouping      bool `json:"grouping"`
	Exponent      bool `json:"exponent"`
	Digits        int  `json:"digits"`
	Letters       int  `json:"letters"`
	Others        int  `json:"others"`
	Length        int  `json:"length"`

	CharCounts [128]int `json:"-"` // Occurrences of each ASCII character
	LastIndex  [128]int `json:"-"` // Rune index of the last occurrence, -1 if absent
}

// Count returns the number of occurrences of an ASCII character
func (s *NumericShape) Count(c byte) int {
	if c >= 128 {
		return 0
	}
	return s.CharCounts[c]
}

// Last returns the rune index of the last occurrence of c, or -1
func (s *NumericShape) Last(c byte) int {
	if c >= 128 {
		return -1
	}
	return s.LastIndex[c]
}

// Flags converts the shape into TypeInfo flags
func (s *NumericShape) Flags() core.TypeFlags {
	var f core.TypeFlags
	if s.Signed {
		f |= core.FlagSigned
	}
	if s.TrailingMinus {
		f |= core.FlagSigned | core.FlagTrailingMinus
	}
	if s.Grouping {
		f |= core.FlagGrouping
	}
	if s.Exponent {
		f |= core.FlagExponent
	}
	return f
}

// BaseType returns LONG or DOUBLE for numeric shapes
func (s *NumericShape) BaseType() core.BaseType {
	if s.Double {
		return core.BaseDouble
	}
	return core.BaseLong
}

// Scan inspects a trimmed sample
func Scan(trimmed string, sym core.Symbols) NumericShape {
	var s NumericShape
	for i := range s.LastIndex {
		s.LastIndex[i] = -1
	}

	runes := []rune(trimmed)
	s.Length = len(runes)

	numeric := len(runes) > 0
	decimalSeen := false
	exponentSeen := false
	exponentDigits := 0
	groupDigits := 0 // digits since the last grouping separator
	leadDigits := 0  // digits before the first grouping separator
	groupsSeen := 0

	for i, r := range runes {
		if r < 128 {
			s.CharCounts[r]++
			s.LastIndex[r] = i
		}
		switch {
		case unicode.IsDigit(r):
			s.Digits++
		case unicode.IsLetter(r):
			s.Letters++
		default:
			s.Others++
		}
		if !numeric {
			continue
		}

		switch {
		case r >= '0' && r <= '9':
			if exponentSeen {
				exponentDigits++
			} else if groupsSeen > 0 && !decimalSeen {
				groupDigits++
			} else if !decimalSeen {
				leadDigits++
			}

		case i == 0 && (r == '+' || r == '-' || r == sym.Minus):
			s.Signed = true

		case i == len(runes)-1 && r == '-' && !s.Signed && s.Digits > 0:
			s.TrailingMinus = true

		case r == sym.Grouping && !decimalSeen && !exponentSeen:
			if groupsSeen == 0 {
				if leadDigits == 0 || leadDigits > 3 {
					numeric = false
				}
			} else if groupDigits != 3 {
				numeric = false
			}
			groupsSeen++
			groupDigits = 0

		case r == sym.Decimal && !decimalSeen && !exponentSeen:
			if groupsSeen > 0 && groupDigits != 3 {
				numeric = false
			}
			decimalSeen = true

		case (r == 'e' || r == 'E') && !exponentSeen && s.Digits > 0:
			exponentSeen = true

		case (r == '+' || r == '-') && exponentSeen && exponentDigits == 0 && (runes[i-1] == 'e' || runes[i-1] == 'E'):
			// exponent sign

		default:
			numeric = false
		}
	}

	if numeric && groupsSeen > 0 && !decimalSeen && groupDigits != 3 {
		numeric = false
	}
	if exponentSeen && (exponentDigits == 0 || exponentDigits > maxExponentDigits) {
		numeric = false
	}
	digitsBeforeExponent := s.Digits - exponentDigits
	if digitsBeforeExponent == 0 {
		numeric = false
	}

	s.Numeric = numeric
	if numeric {
		s.Grouping = groupsSeen > 0
		s.Exponent = exponentSeen
		s.Double = decimalSeen || exponentSeen
	} else {
		s.Signed, s.TrailingMinus = false, false
	}
	return s
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types for the Akaylee Profiler. Defines the base type tags and the
TypeInfo classification record that every other component reads and produces. A TypeInfo
is treated as immutable once built; changing the classification means building a new one.
*/

package core

import (
	"fmt"
	"regexp"
	"strings"
)

// BaseType is the primitive type tag of a stream
type BaseType int

const (
	BaseBoolean BaseType = iota
	BaseLong
	BaseDouble
	BaseString
	BaseLocalDate
	BaseLocalTime
	BaseLocalDateTime
	BaseOffsetDateTime
	BaseZonedDateTime
)

var baseTypeNames = [...]string{
	"BOOLEAN",
	"LONG",
	"DOUBLE",
	"STRING",
	"LOCALDATE",
	"LOCALTIME",
	"LOCALDATETIME",
	"OFFSETDATETIME",
	"ZONEDDATETIME",
}

// String returns the canonical upper-case name of the base type
func (b BaseType) String() string {
	if b < 0 || int(b) >= len(baseTypeNames) {
		return fmt.Sprintf("BaseType(%d)", int(b))
	}
	return baseTypeNames[b]
}

// IsNumeric reports whether the base type is LONG or DOUBLE
func (b BaseType) IsNumeric() bool {
	return b == BaseLong || b == BaseDouble
}

// IsDateType reports whether the base type is one of the five date/time variants
func (b BaseType) IsDateType() bool {
	return b >= BaseLocalDate && b <= BaseZonedDateTime
}

// MarshalText encodes the base type by name
func (b BaseType) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText decodes a base type name
func (b *BaseType) UnmarshalText(text []byte) error {
	parsed, err := ParseBaseType(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBaseType maps a name such as "LONG" back to its BaseType
func ParseBaseType(name string) (BaseType, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range baseTypeNames {
		if n == upper {
			return BaseType(i), nil
		}
	}
	return BaseString, fmt.Errorf("unknown base type: %q", name)
}

// TypeFlags carries modifiers that refine a base type
type TypeFlags uint16

const (
	FlagSigned TypeFlags = 1 << iota
	FlagGrouping
	FlagTrailingMinus
	FlagExponent
	FlagZeroFraction
	FlagAlpha
	FlagAlphanumeric
)

// Has reports whether all bits of x are set
func (f TypeFlags) Has(x TypeFlags) bool {
	return f&x == x
}

// Boolean qualifiers
const (
	BooleanTrueFalse = "TRUE_FALSE"
	BooleanYesNo     = "YES_NO"
	BooleanYN        = "Y_N"
	BooleanLocalized = "LOCALIZED"
)

// Well-known patterns shared by the escalator, trackers and finalization
const (
	PatternAny    = `.+`
	PatternAlpha  = `\p{L}+`
	PatternAlnum  = `[\p{L}\d]+`
	PatternLong   = `\d+`
	PatternDigits = `\d`

	patternExponent = `(?:[eE][+-]?\d+)?`
	patternSign     = `[+-]?`
)

// maxPriorDepth bounds the diagnostic prior chain
const maxPriorDepth = 8

// TypeInfo describes the current classification of a stream
type TypeInfo struct {
	BaseType     BaseType  `json:"baseType"`
	Regexp       string    `json:"regexp"`
	Qualifier    string    `json:"qualifier,omitempty"`    // Boolean form, date format or semantic type name
	SemanticType bool      `json:"semanticType,omitempty"` // Qualifier names a semantic type
	Flags        TypeFlags `json:"flags,omitempty"`
	Prior        *TypeInfo `json:"-"` // Superseded classification, diagnostics only
}

// NewTypeInfo builds a plain TypeInfo
func NewTypeInfo(base BaseType, regexp string, flags TypeFlags) *TypeInfo {
	return &TypeInfo{BaseType: base, Regexp: regexp, Flags: flags}
}

// NewQualifiedTypeInfo builds a TypeInfo with a qualifier (boolean form or date format)
func NewQualifiedTypeInfo(base BaseType, regexp, qualifier string) *TypeInfo {
	return &TypeInfo{BaseType: base, Regexp: regexp, Qualifier: qualifier}
}

// NewSemanticTypeInfo builds a TypeInfo naming a semantic type
func NewSemanticTypeInfo(base BaseType, regexp, semanticType string) *TypeInfo {
	return &TypeInfo{BaseType: base, Regexp: regexp, Qualifier: semanticType, SemanticType: true}
}

// Supersedes returns a copy of t whose prior is p
func (t *TypeInfo) Supersedes(p *TypeInfo) *TypeInfo {
	c := *t
	c.Prior = trimPrior(p, maxPriorDepth)
	return &c
}

func trimPrior(p *TypeInfo, depth int) *TypeInfo {
	if p == nil || depth == 0 {
		return nil
	}
	c := *p
	c.Prior = trimPrior(p.Prior, depth-1)
	return &c
}

// WithRegexp returns a copy of t with a different regexp
func (t *TypeInfo) WithRegexp(regexp string) *TypeInfo {
	c := *t
	c.Regexp = regexp
	c.Prior = t
	return &c
}

// WithQualifier returns a copy of t with a different qualifier
func (t *TypeInfo) WithQualifier(qualifier string) *TypeInfo {
	c := *t
	c.Qualifier = qualifier
	c.Prior = t
	return &c
}

// WithFlags returns a copy of t with the given flags added
func (t *TypeInfo) WithFlags(flags TypeFlags) *TypeInfo {
	c := *t
	c.Flags |= flags
	c.Prior = t
	return &c
}

// IsAlphabetic reports whether the stream is purely alphabetic text
func (t *TypeInfo) IsAlphabetic() bool {
	return t.BaseType == BaseString && t.Flags.Has(FlagAlpha)
}

// IsAlphanumeric reports whether the stream is letters and digits only
func (t *TypeInfo) IsAlphanumeric() bool {
	return t.BaseType == BaseString && t.Flags.Has(FlagAlphanumeric)
}

// IsWildcard reports whether the regexp accepts any text
func (t *TypeInfo) IsWildcard() bool {
	return t.BaseType == BaseString && !t.SemanticType && strings.HasPrefix(t.Regexp, ".")
}

// SemanticName returns the semantic type name, or "" if there is none
func (t *TypeInfo) SemanticName() string {
	if t == nil || !t.SemanticType {
		return ""
	}
	return t.Qualifier
}

// DateFormat returns the date/time format for date types
func (t *TypeInfo) DateFormat() string {
	if t.BaseType.IsDateType() && !t.SemanticType {
		return t.Qualifier
	}
	return ""
}

// Key identifies the classification, ignoring the prior chain
func (t *TypeInfo) Key() string {
	return fmt.Sprintf("%s|%s|%s|%t|%d", t.BaseType, t.Regexp, t.Qualifier, t.SemanticType, t.Flags)
}

// Equal compares two classifications, ignoring the prior chain
func (t *TypeInfo) Equal(o *TypeInfo) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Key() == o.Key()
}

// String renders the TypeInfo for logs
func (t *TypeInfo) String() string {
	if t == nil {
		return "<undetermined>"
	}
	if t.Qualifier != "" {
		return fmt.Sprintf("%s(%s) %s", t.BaseType, t.Qualifier, t.Regexp)
	}
	return fmt.Sprintf("%s %s", t.BaseType, t.Regexp)
}

// NumericRegexp builds the general regexp for a numeric subtype
func NumericRegexp(base BaseType, flags TypeFlags, sym Symbols) string {
	var b strings.Builder
	if flags.Has(FlagSigned) && !flags.Has(FlagTrailingMinus) {
		b.WriteString(patternSign)
	}
	group := regexp.QuoteMeta(string(sym.Grouping))
	decimal := regexp.QuoteMeta(string(sym.Decimal))
	switch {
	case base == BaseLong && flags.Has(FlagGrouping):
		b.WriteString(`\d{1,3}(?:` + group + `\d{3})*`)
	case base == BaseLong:
		b.WriteString(`\d+`)
	case flags.Has(FlagGrouping):
		b.WriteString(`\d{1,3}(?:` + group + `\d{3})*(?:` + decimal + `\d*)?`)
	default:
		b.WriteString(`(?:\d+` + decimal + `?\d*|` + decimal + `\d+)`)
	}
	if base == BaseLong && flags.Has(FlagZeroFraction) {
		b.WriteString(`(?:` + decimal + `0+)?`)
	}
	if base == BaseDouble && flags.Has(FlagExponent) {
		b.WriteString(patternExponent)
	}
	if flags.Has(FlagTrailingMinus) {
		b.WriteString(`-?`)
	}
	return b.String()
}

// NewNumericTypeInfo builds a numeric TypeInfo with its general regexp
func NewNumericTypeInfo(base BaseType, flags TypeFlags, sym Symbols) *TypeInfo {
	return NewTypeInfo(base, NumericRegexp(base, flags, sym), flags)
}

// LengthQualified rewrites a "one-or-more" class pattern as a bounded repetition
func LengthQualified(class string, minLength, maxLength int) string {
	if minLength == maxLength {
		return fmt.Sprintf("%s{%d}", class, minLength)
	}
	return fmt.Sprintf("%s{%d,%d}", class, minLength, maxLength)
}

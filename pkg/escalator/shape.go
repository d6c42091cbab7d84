/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: shape.go
Description: Per-sample shape construction for the Akaylee Profiler. Each sample becomes an
Escalation: three increasingly general patterns (an exact run-length shape, the same shape
with counts collapsed to one-or-more, and a universal form) together with the TypeInfo each
level implies. Booleans and numbers are recognised first and get typed patterns at every
level.
*/

package escalator

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"golang.org/x/text/collate"
)

const (
	// maxShapeRuns is the most character-class runs a shape may have and still be recognised
	maxShapeRuns = 12
	// maxShapeLength is the longest sample given a run-length shape
	maxShapeLength = 128
)

// Escalation holds the three generalisations of one sample
type Escalation struct {
	Levels [3]string         `json:"levels"`
	Types  [3]*core.TypeInfo `json:"types"` // nil where the level is not recognised
}

// Booleans recognises boolean words, including the locale's yes/no
// Not safe for concurrent use
type Booleans struct {
	collator *collate.Collator
	yes, no  string
}

// NewBooleans creates a recogniser for a locale
func NewBooleans(locale *core.Locale) *Booleans {
	return &Booleans{
		collator: collate.New(locale.Tag, collate.IgnoreCase, collate.IgnoreDiacritics),
		yes:      locale.Yes,
		no:       locale.No,
	}
}

// Match returns the boolean qualifier and the canonical value of a word
func (b *Booleans) Match(trimmed string) (qualifier string, value bool, ok bool) {
	if len(trimmed) > 8 {
		return "", false, false
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return core.BooleanTrueFalse, true, true
	case "false":
		return core.BooleanTrueFalse, false, true
	case "yes":
		return core.BooleanYesNo, true, true
	case "no":
		return core.BooleanYesNo, false, true
	case "y":
		return core.BooleanYN, true, true
	case "n":
		return core.BooleanYN, false, true
	}
	if b.yes == "yes" {
		return "", false, false
	}
	switch {
	case b.collator.CompareString(trimmed, b.yes) == 0:
		return core.BooleanLocalized, true, true
	case b.collator.CompareString(trimmed, b.no) == 0:
		return core.BooleanLocalized, false, true
	}
	return "", false, false
}

// Regexp returns the pattern for a boolean qualifier
func (b *Booleans) Regexp(qualifier string) string {
	switch qualifier {
	case core.BooleanTrueFalse:
		return `(?i)(?:true|false)`
	case core.BooleanYesNo:
		return `(?i)(?:yes|no)`
	case core.BooleanYN:
		return `(?i)[yn]`
	}
	return `(?i)(?:` + regexp.QuoteMeta(b.yes) + `|` + regexp.QuoteMeta(b.no) + `)`
}

// TypeInfo returns the classification for a boolean qualifier
func (b *Booleans) TypeInfo(qualifier string) *core.TypeInfo {
	return core.NewQualifiedTypeInfo(core.BaseBoolean, b.Regexp(qualifier), qualifier)
}

// Builder turns samples into escalations for one locale
type Builder struct {
	symbols  core.Symbols
	booleans *Booleans
}

// NewBuilder creates a shape builder
func NewBuilder(locale *core.Locale, booleans *Booleans) *Builder {
	return &Builder{symbols: locale.Symbols, booleans: booleans}
}

// charClass groups runes for run-length encoding
type charClass int

const (
	classDigit charClass = iota
	classLetter
	classOther
)

type run struct {
	class charClass
	r     rune // the literal rune for classOther
	n     int
}

func classify(r rune) charClass {
	switch {
	case unicode.IsDigit(r):
		return classDigit
	case unicode.IsLetter(r):
		return classLetter
	}
	return classOther
}

// runs splits a sample into runs of the same class (and the same rune for others)
func runs(trimmed string) []run {
	var out []run
	for _, r := range trimmed {
		c := classify(r)
		if len(out) > 0 {
			last := &out[len(out)-1]
			if last.class == c && (c != classOther || last.r == r) {
				last.n++
				continue
			}
		}
		out = append(out, run{class: c, r: r, n: 1})
	}
	return out
}

func runPattern(r run, collapsed bool) string {
	var base string
	switch r.class {
	case classDigit:
		base = `\d`
	case classLetter:
		base = `\p{L}`
	default:
		base = regexp.QuoteMeta(string(r.r))
	}
	switch {
	case collapsed:
		return base + "+"
	case r.n == 1:
		return base
	}
	return base + "{" + strconv.Itoa(r.n) + "}"
}

// Smash returns the exact run-length shape of a sample
func Smash(trimmed string) string {
	if len([]rune(trimmed)) > maxShapeLength {
		return core.PatternAny
	}
	var b strings.Builder
	for _, r := range runs(trimmed) {
		b.WriteString(runPattern(r, false))
	}
	return b.String()
}

// Build computes the escalation of a trimmed, non-blank sample
func (b *Builder) Build(trimmed string) (Escalation, NumericShape) {
	var e Escalation
	shape := Scan(trimmed, b.symbols)

	if qualifier, _, ok := b.booleans.Match(trimmed); ok {
		ti := b.booleans.TypeInfo(qualifier)
		for i := range e.Levels {
			e.Levels[i] = ti.Regexp
			e.Types[i] = ti
		}
		return e, shape
	}

	if shape.Numeric {
		flags := shape.Flags()
		base := shape.BaseType()
		exact := core.NewNumericTypeInfo(base, flags, b.symbols)
		general := core.NewNumericTypeInfo(base, flags|core.FlagSigned, b.symbols)
		e.Levels[0] = Smash(trimmed)
		e.Types[0] = exact
		e.Levels[1] = exact.Regexp
		e.Types[1] = exact
		e.Levels[2] = general.Regexp
		e.Types[2] = general
		return e, shape
	}

	if len([]rune(trimmed)) > maxShapeLength {
		wildcard := core.NewTypeInfo(core.BaseString, core.PatternAny, 0)
		e.Levels = [3]string{core.PatternAny, core.PatternAny, core.PatternAny}
		e.Types = [3]*core.TypeInfo{nil, nil, wildcard}
		return e, shape
	}

	rs := runs(trimmed)
	var exact, collapsed strings.Builder
	for _, r := range rs {
		exact.WriteString(runPattern(r, false))
		collapsed.WriteString(runPattern(r, true))
	}

	var textFlags core.TypeFlags
	level2 := core.PatternAny
	switch {
	case shape.Others == 0 && shape.Digits == 0:
		textFlags = core.FlagAlpha
		level2 = core.PatternAlpha
	case shape.Others == 0:
		textFlags = core.FlagAlphanumeric
		level2 = core.PatternAlnum
	}

	e.Levels[0] = exact.String()
	e.Levels[1] = collapsed.String()
	e.Levels[2] = level2
	if len(rs) <= maxShapeRuns {
		e.Types[0] = core.NewTypeInfo(core.BaseString, e.Levels[0], textFlags)
		e.Types[1] = core.NewTypeInfo(core.BaseString, e.Levels[1], textFlags)
	}
	e.Types[2] = core.NewTypeInfo(core.BaseString, level2, textFlags)
	return e, shape
}

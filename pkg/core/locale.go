/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: locale.go
Description: Locale handling for the Akaylee Profiler. Resolves a BCP 47 locale into the
numeric symbols, yes/no words and day/month ordering used by the escalator and trackers.
Only the Gregorian calendar is supported.
*/

package core

import (
	"fmt"

	"golang.org/x/text/language"
)

// Symbols holds the locale-specific numeric separators
type Symbols struct {
	Grouping rune `json:"grouping"`
	Decimal  rune `json:"decimal"`
	Minus    rune `json:"minus"`
}

// Locale is a resolved locale
type Locale struct {
	Tag        language.Tag
	Symbols    Symbols
	Yes        string
	No         string
	MonthFirst bool // Ambiguous dates like 01/02/2023 read as MM/dd
}

var (
	commaDecimal = Symbols{Grouping: '.', Decimal: ',', Minus: '-'}
	spaceGroup   = Symbols{Grouping: ' ', Decimal: ',', Minus: '-'}
	dotDecimal   = Symbols{Grouping: ',', Decimal: '.', Minus: '-'}
	swissSymbols = Symbols{Grouping: '\'', Decimal: '.', Minus: '-'}
)

// Base languages that write the decimal separator as a comma
var symbolsByLanguage = map[string]Symbols{
	"de": commaDecimal,
	"es": commaDecimal,
	"it": commaDecimal,
	"nl": commaDecimal,
	"pt": commaDecimal,
	"id": commaDecimal,
	"tr": commaDecimal,
	"da": commaDecimal,
	"fr": spaceGroup,
	"ru": spaceGroup,
	"pl": spaceGroup,
	"cs": spaceGroup,
	"sv": spaceGroup,
	"nb": spaceGroup,
	"fi": spaceGroup,
}

var yesNoByLanguage = map[string][2]string{
	"en": {"yes", "no"},
	"fr": {"oui", "non"},
	"de": {"ja", "nein"},
	"es": {"sí", "no"},
	"it": {"sì", "no"},
	"pt": {"sim", "não"},
	"nl": {"ja", "nee"},
	"sv": {"ja", "nej"},
	"da": {"ja", "nej"},
	"nb": {"ja", "nei"},
	"pl": {"tak", "nie"},
	"tr": {"evet", "hayır"},
}

// ResolveLocale parses and validates a locale string
func ResolveLocale(locale string) (*Locale, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnsupportedLocale, locale, err)
	}

	if calendar := tag.TypeForKey("ca"); calendar != "" && calendar != "gregory" {
		return nil, fmt.Errorf("%w: calendar %q is not Gregorian", ErrUnsupportedLocale, calendar)
	}

	base, _ := tag.Base()
	region, _ := tag.Region()

	l := &Locale{
		Tag:     tag,
		Symbols: dotDecimal,
		Yes:     "yes",
		No:      "no",
	}
	if s, ok := symbolsByLanguage[base.String()]; ok {
		l.Symbols = s
	}
	if base.String() == "de" && region.String() == "CH" {
		l.Symbols = swissSymbols
	}
	if yn, ok := yesNoByLanguage[base.String()]; ok {
		l.Yes, l.No = yn[0], yn[1]
	}
	switch region.String() {
	case "US", "PH", "FM", "PR":
		l.MonthFirst = true
	}

	return l, nil
}

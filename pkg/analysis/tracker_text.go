/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tracker_text.go
Description: BOOLEAN, STRING and date/time trackers for the Akaylee Profiler. Date samples
are parsed against the committed format; when the parser reports a wider fraction or a
24-hour clock, the format is rewritten and the sample retried.
*/

package analysis

import (
	"strings"

	"github.com/kleascm/akaylee-profiler/pkg/datetime"
	"github.com/sirupsen/logrus"
)

// maxDateRetries bounds how often one sample may rewrite the date format
const maxDateRetries = 3

// trackBoolean validates a BOOLEAN sample in the committed form
func (a *TextAnalyzer) trackBoolean(trimmed string) (Observation, bool) {
	qualifier, value, ok := a.booleans.Match(trimmed)
	if !ok || qualifier != a.facts.TypeInfo.Qualifier {
		return Observation{}, false
	}
	obs := Observation{Text: strings.ToLower(trimmed)}
	if value {
		obs.Value = 1
	}
	return obs, true
}

// trackString validates a STRING sample against the type pattern
func (a *TextAnalyzer) trackString(trimmed string) (Observation, bool) {
	ti := a.facts.TypeInfo
	if !ti.SemanticType && !ti.IsWildcard() && a.compiled != nil && !a.compiled.MatchString(trimmed) {
		return Observation{}, false
	}
	return Observation{Text: trimmed}, true
}

// trackDate validates a date/time sample, widening the format when the parser asks for it
func (a *TextAnalyzer) trackDate(trimmed string) (Observation, bool) {
	for range maxDateRetries {
		ti := a.facts.TypeInfo
		format := ti.DateFormat()
		if format == "" {
			return Observation{}, false
		}
		out := a.parser.Parse(format, trimmed)
		var widened string
		var ok bool
		switch out.Kind {
		case datetime.OK:
			t := out.Time
			return Observation{
				Value: float64(t.Unix()) + float64(t.Nanosecond())/1e9,
				Text:  trimmed,
			}, true
		case datetime.NeedsFractionWidth:
			widened, ok = datetime.WidenFraction(format, out.Width)
		case datetime.NeedsHour24:
			widened, ok = datetime.SwapHour24(format)
		}
		if !ok {
			return Observation{}, false
		}
		next, err := datetime.TypeInfo(widened)
		if err != nil {
			return Observation{}, false
		}
		a.logger.WithFields(logrus.Fields{
			"stream": a.ctx.StreamName,
			"from":   format,
			"to":     widened,
		}).Debug("Date format widened")
		a.setType(next.Supersedes(ti))
	}
	return Observation{}, false
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: Profile reports for the Akaylee Profiler. Collects the results of a run into a
Report with quantiles and histogram bars per stream and renders it as an aligned text
table, as JSON or as a standalone HTML page.
*/

package reporting

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kleascm/akaylee-profiler/pkg/analysis"
	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/monitoring"
	"github.com/sirupsen/logrus"
)

// Format names an output format
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatText, FormatJSON, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", name)
	}
}

// reportQuantiles are the quantiles shown for every stream with a distribution
var reportQuantiles = []float64{0.01, 0.25, 0.5, 0.75, 0.99}

// Report contains everything rendered for one run
type Report struct {
	Title       string              `json:"title"`
	Version     string              `json:"version"`
	GeneratedAt time.Time           `json:"generated_at"`
	Streams     []*StreamReport     `json:"streams"`
	Summary     *monitoring.Summary `json:"summary,omitempty"`
}

// StreamReport is one stream's result with its distribution views
type StreamReport struct {
	Result    *analysis.Result `json:"result"`
	Quantiles []QuantileValue  `json:"quantiles,omitempty"`
	Histogram []Bar            `json:"histogram,omitempty"`
}

// QuantileValue is one answered quantile
type QuantileValue struct {
	Quantile float64 `json:"quantile"`
	Value    string  `json:"value"`
}

// Bar is one histogram bucket scaled against the largest bucket
type Bar struct {
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
	Count   int64   `json:"count"`
	Percent float64 `json:"percent"`
}

// NewReport builds a report, buckets is the number of histogram bars per stream
func NewReport(title, version string, results []*analysis.Result, summary *monitoring.Summary, buckets int) (*Report, error) {
	report := &Report{
		Title:       title,
		Version:     version,
		GeneratedAt: time.Now().UTC(),
		Summary:     summary,
	}
	for _, r := range results {
		stream := &StreamReport{Result: r}
		for _, q := range reportQuantiles {
			v, err := r.ValueAtQuantile(q)
			if err != nil {
				if skippable(err) {
					break
				}
				return nil, fmt.Errorf("stream %q: %w", r.StreamName, err)
			}
			stream.Quantiles = append(stream.Quantiles, QuantileValue{Quantile: q, Value: v})
		}
		if buckets > 0 {
			hist, err := r.Histogram(buckets)
			if err != nil && !skippable(err) {
				return nil, fmt.Errorf("stream %q: %w", r.StreamName, err)
			}
			var peak int64
			for _, b := range hist {
				peak = max(peak, b.Count)
			}
			for _, b := range hist {
				bar := Bar{Low: b.Low, High: b.High, Count: b.Count}
				if peak > 0 {
					bar.Percent = 100 * float64(b.Count) / float64(peak)
				}
				stream.Histogram = append(stream.Histogram, bar)
			}
		}
		report.Streams = append(report.Streams, stream)
	}
	return report, nil
}

// skippable reports whether a distribution query simply has no answer for the stream
func skippable(err error) bool {
	return errors.Is(err, core.ErrStatisticsDisabled) || errors.Is(err, analysis.ErrNoDistribution)
}

// Render writes the report in the given format
func (r *Report) Render(w io.Writer, format Format) error {
	switch format {
	case FormatText:
		return r.WriteText(w)
	case FormatJSON:
		return r.WriteJSON(w)
	case FormatHTML:
		return r.WriteHTML(w)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// WriteText writes an aligned table with one row per stream
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STREAM\tTYPE\tSEMANTIC\tSAMPLES\tNULLS\tCONFIDENCE\tCARDINALITY\tMIN\tMAX\tREGEXP")
	for _, s := range r.Streams {
		res := s.Result
		cardinality := fmt.Sprint(res.Cardinality)
		if res.Cardinality < 0 {
			cardinality = "overflow"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.4f\t%s\t%s\t%s\t%s\n",
			orDash(res.StreamName), res.Type, orDash(res.SemanticType), res.SampleCount, res.NullCount,
			res.Confidence, cardinality, orDash(res.Min), orDash(res.Max), res.Regexp)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// WriteJSON writes the report as indented JSON
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteHTML writes the report as a standalone HTML page
func (r *Report) WriteHTML(w io.Writer) error {
	if err := reportTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.2f%%", f*100) },
	"num": func(f float64) string { return fmt.Sprintf("%.4g", f) },
}).Parse(reportHTML))

// Generator writes report files into a directory
type Generator struct {
	outputDir string
	logger    logrus.FieldLogger
}

// NewGenerator creates a new report generator
func NewGenerator(outputDir string, logger logrus.FieldLogger) *Generator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Generator{outputDir: outputDir, logger: logger}
}

// Generate writes index.html, report.json and report.txt and returns their paths
func (g *Generator) Generate(report *Report) ([]string, error) {
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := []struct {
		name   string
		format Format
	}{
		{"index.html", FormatHTML},
		{"report.json", FormatJSON},
		{"report.txt", FormatText},
	}
	var paths []string
	for _, f := range files {
		path := filepath.Join(g.outputDir, f.name)
		if err := writeFile(path, report, f.format); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	g.logger.WithFields(logrus.Fields{
		"dir":     g.outputDir,
		"streams": len(report.Streams),
	}).Info("Report generated")
	return paths, nil
}

func writeFile(path string, report *Report, format Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := report.Render(file, format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

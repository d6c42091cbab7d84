/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: templates.go
Description: HTML template for Akaylee Profiler reports. One card per stream with its
classification, counts, quantiles and a histogram drawn with plain CSS bars.
*/

package reporting

// reportHTML is the page template for a Report
const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - Akaylee Profiler Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        body {
            font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            min-height: 100vh;
            color: #333;
        }

        .container { max-width: 1400px; margin: 0 auto; padding: 20px; }

        .header, .stat-card, .stream {
            background: rgba(255, 255, 255, 0.95);
            border-radius: 15px;
            box-shadow: 0 8px 32px rgba(0, 0, 0, 0.1);
        }

        .header { padding: 30px; margin-bottom: 30px; text-align: center; }
        .header h1 { color: #4a5568; font-size: 2.5rem; margin-bottom: 10px; font-weight: 700; }
        .header p { color: #718096; font-size: 1.1rem; }

        .stats-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 20px;
            margin-bottom: 30px;
        }

        .stat-card { padding: 25px; }
        .stat-card .value { font-size: 2.2rem; font-weight: 700; color: #2d3748; }
        .stat-card .label { color: #718096; font-size: 0.9rem; text-transform: uppercase; letter-spacing: 0.5px; }

        .stream { padding: 25px; margin-bottom: 25px; }
        .stream h2 { color: #4a5568; margin-bottom: 5px; }
        .stream .type { color: #667eea; font-weight: 600; margin-bottom: 15px; }
        .stream code { background: #f7fafc; padding: 2px 6px; border-radius: 4px; }

        table { border-collapse: collapse; margin: 10px 0 15px; }
        td, th { padding: 4px 14px 4px 0; text-align: left; }
        th { color: #718096; font-weight: 500; }

        .histogram { display: flex; align-items: flex-end; height: 120px; gap: 2px; }
        .bar { flex: 1; background: linear-gradient(180deg, #667eea 0%, #764ba2 100%); border-radius: 3px 3px 0 0; min-height: 1px; }

        .outlier { color: #e53e3e; }
        .footer { text-align: center; color: rgba(255, 255, 255, 0.8); margin-top: 20px; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h1>{{.Title}}</h1>
        <p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}{{if .Version}} &middot; v{{.Version}}{{end}}</p>
    </div>

    {{with .Summary}}
    <div class="stats-grid">
        <div class="stat-card"><div class="value">{{.Streams}}</div><div class="label">Streams</div></div>
        <div class="stat-card"><div class="value">{{.Samples}}</div><div class="label">Samples</div></div>
        <div class="stat-card"><div class="value">{{.Backouts}}</div><div class="label">Backouts</div></div>
        <div class="stat-card"><div class="value">{{pct .MeanConfidence}}</div><div class="label">Mean Confidence</div></div>
    </div>
    {{end}}

    {{range .Streams}}{{with .Result}}
    <div class="stream">
        <h2>{{if .StreamName}}{{.StreamName}}{{else}}(unnamed){{end}}</h2>
        <div class="type">{{.Type}}{{if .SemanticType}} &middot; {{.SemanticType}}{{end}} &middot; <code>{{.Regexp}}</code></div>
        <table>
            <tr><th>Samples</th><td>{{.SampleCount}}</td><th>Matches</th><td>{{.MatchCount}}</td><th>Confidence</th><td>{{pct .Confidence}}</td></tr>
            <tr><th>Nulls</th><td>{{.NullCount}}</td><th>Blanks</th><td>{{.BlankCount}}</td><th>Cardinality</th><td>{{if lt .Cardinality 0}}overflow{{else}}{{.Cardinality}}{{end}}</td></tr>
            <tr><th>Min</th><td>{{.Min}}</td><th>Max</th><td>{{.Max}}</td><th>Uniqueness</th><td>{{num .Uniqueness}}</td></tr>
            <tr><th>Mean</th><td>{{num .Mean}}</td><th>Std Dev</th><td>{{num .StdDev}}</td><th>Key Confidence</th><td>{{num .KeyConfidence}}</td></tr>
        </table>
        {{if .Outliers}}<p class="outlier">Outliers: {{range $i, $o := .Outliers}}{{if $i}}, {{end}}{{$o.Key}} ({{$o.Count}}){{end}}</p>{{end}}
    </div>
    {{end}}
    {{if .Quantiles}}
    <div class="stream">
        <table>
            <tr>{{range .Quantiles}}<th>p{{num .Quantile}}</th>{{end}}</tr>
            <tr>{{range .Quantiles}}<td>{{.Value}}</td>{{end}}</tr>
        </table>
        {{if .Histogram}}
        <div class="histogram">
            {{range .Histogram}}<div class="bar" style="height: {{printf "%.1f" .Percent}}%" title="[{{num .Low}}, {{num .High}}): {{.Count}}"></div>{{end}}
        </div>
        {{end}}
    </div>
    {{end}}
    {{end}}

    <div class="footer">Akaylee Profiler</div>
</div>
</body>
</html>
`

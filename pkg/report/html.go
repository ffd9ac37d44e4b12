package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/devicelab-dev/unified-runner/pkg/core"
)

// HTMLConfig contains configuration for HTML report generation.
type HTMLConfig struct {
	OutputPath  string // Path to write the HTML file
	EmbedAssets bool   // Embed screenshots as base64 (makes file larger but portable)
	Title       string // Report title (default: "Test Report")
}

// GenerateHTML writes a self-contained HTML report for run.
func GenerateHTML(run *core.RunResult, cfg HTMLConfig) error {
	if cfg.Title == "" {
		cfg.Title = "Test Report"
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = HTMLFile
	}

	data := buildHTMLData(run, cfg)

	html, err := renderHTML(data)
	if err != nil {
		return errors.Wrap(err, "render html")
	}
	if err := os.WriteFile(cfg.OutputPath, []byte(html), 0644); err != nil {
		return errors.Wrap(err, "write html")
	}
	return nil
}

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title         string
	GeneratedAt   string
	Run           *core.RunResult
	Rows          []OutcomeRow
	TotalDuration string
	PassRate      float64
}

// OutcomeRow is one test formatted for the results table.
type OutcomeRow struct {
	Result      string
	StatusClass string
	Test        string
	Description string
	Duration    string
	Reason      string
	Screenshot  string // data URI or path
}

func buildHTMLData(run *core.RunResult, cfg HTMLConfig) HTMLData {
	rows := make([]OutcomeRow, len(run.Outcomes))
	for i, o := range run.Outcomes {
		row := OutcomeRow{
			Result:      resultLabel(o.Status),
			StatusClass: string(o.Status),
			Test:        o.Name,
			Description: o.Description,
			Duration:    o.DurationString(),
		}
		if o.Status != core.StatusPassed {
			row.Reason = strings.TrimSpace(o.Reason)
		}
		if o.Screenshot != "" {
			if cfg.EmbedAssets {
				row.Screenshot = loadAsBase64(o.Screenshot)
			} else {
				row.Screenshot = o.Screenshot
			}
		}
		rows[i] = row
	}

	var passRate float64
	if run.Total > 0 {
		passRate = float64(run.Passed) / float64(run.Total) * 100
	}

	return HTMLData{
		Title:         cfg.Title,
		GeneratedAt:   time.Now().Format("2006-01-02 15:04:05"),
		Run:           run,
		Rows:          rows,
		TotalDuration: fmt.Sprintf("%.2f seconds", run.Duration.Seconds()),
		PassRate:      passRate,
	}
}

func resultLabel(s core.Status) string {
	switch s {
	case core.StatusPassed:
		return "Passed"
	case core.StatusFailed:
		return "Failed"
	case core.StatusSkipped:
		return "Skipped"
	default:
		return string(s)
	}
}

func loadAsBase64(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(filepath.Ext(path))
	mimeType := "image/png"
	if ext == ".jpg" || ext == ".jpeg" {
		mimeType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

func renderHTML(data HTMLData) (string, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		// html/template rejects data: URIs in src unless marked safe
		"imgsrc": func(s string) template.URL { return template.URL(s) },
	}).Parse(htmlTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f9fafb;
            --text-primary: #000000;
            --text-muted: rgb(107, 114, 128);
            --border-color: #e5e7eb;
            --passed: #22c55e;
            --failed: #ef4444;
            --failed-bg: rgba(239, 68, 68, 0.08);
            --skipped: #eab308;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.5;
        }
        .header {
            background: var(--bg-secondary);
            border-bottom: 1px solid var(--border-color);
            padding: 16px 24px;
        }
        .header h1 { font-size: 18px; font-weight: 600; }
        .meta { color: var(--text-muted); font-size: 13px; margin-top: 4px; }
        .meta span { margin-right: 16px; }
        .legend { display: flex; gap: 16px; margin-top: 12px; font-size: 13px; }
        .dot { display: inline-block; width: 10px; height: 10px; border-radius: 50%; margin-right: 6px; }
        .dot.passed { background: var(--passed); }
        .dot.failed { background: var(--failed); }
        .dot.skipped { background: var(--skipped); }
        table { width: 100%; border-collapse: collapse; font-size: 13px; }
        th, td { text-align: left; padding: 8px 24px; border-bottom: 1px solid var(--border-color); vertical-align: top; }
        th { background: var(--bg-secondary); font-weight: 600; }
        tr.failed { background: var(--failed-bg); }
        td.result.passed { color: var(--passed); }
        td.result.failed { color: var(--failed); }
        td.result.skipped { color: var(--skipped); }
        pre.reason { white-space: pre-wrap; font-size: 12px; margin-top: 6px; color: var(--text-muted); }
        img.screenshot { max-width: 320px; margin-top: 6px; border: 1px solid var(--border-color); }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Title}}</h1>
        <div class="meta">
            <span>Environment: {{.Run.Environment}}</span>
            <span>Test type: {{.Run.TestType}}</span>
            <span>Run: {{.Run.RunID}}</span>
            <span>Duration: {{.TotalDuration}}</span>
            <span>Generated: {{.GeneratedAt}}</span>
        </div>
        <div class="legend">
            <span><span class="dot passed"></span>{{.Run.Passed}} passed</span>
            <span><span class="dot failed"></span>{{.Run.Failed}} failed</span>
            <span><span class="dot skipped"></span>{{.Run.Skipped}} skipped</span>
            <span>{{printf "%.1f" .PassRate}}% pass rate</span>
        </div>
    </div>
    <table>
        <thead>
            <tr><th>Result</th><th>Test</th><th>Description</th><th>Duration</th></tr>
        </thead>
        <tbody>
            {{range .Rows}}
            <tr class="{{.StatusClass}}">
                <td class="result {{.StatusClass}}">{{.Result}}</td>
                <td>{{.Test}}
                    {{if .Reason}}<pre class="reason">{{.Reason}}</pre>{{end}}
                    {{if .Screenshot}}<div><img class="screenshot" alt="Screenshot" src="{{imgsrc .Screenshot}}"></div>{{end}}
                </td>
                <td>{{.Description}}</td>
                <td>{{.Duration}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>
</body>
</html>
`

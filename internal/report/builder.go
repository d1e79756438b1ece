// Package report renders recorded keep-alive checks as an HTML page.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/store"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

// Builder creates history reports from recorded checks
type Builder struct {
	host     string
	template *template.Template
}

// New creates a new report builder for host
func New(host string) (*Builder, error) {
	tmpl, err := template.New("report").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Builder{
		host:     host,
		template: tmpl,
	}, nil
}

// Report is a rendered history report
type Report struct {
	Title     string
	HTMLBody  string
	PlainBody string
	CreatedAt time.Time
}

// ReportData is the template data structure
type ReportData struct {
	Title  string
	Date   string
	Checks []CheckData
	Stats  StatsData
}

// CheckData is one check row in the report
type CheckData struct {
	StartedAt string
	Run       string
	Seq       int
	Status    string
	Outcome   string
	Duration  string
	Reason    string
	Failed    bool
}

// StatsData counts checks by outcome
type StatsData struct {
	Total       int
	Succeeded   int
	ActionTaken int
	Failed      int
}

// Build renders cycles, newest first, as of now.
func (b *Builder) Build(cycles []store.Cycle, now time.Time) (*Report, error) {
	if len(cycles) == 0 {
		return nil, fmt.Errorf("no checks to include in report")
	}

	data := ReportData{
		Title:  fmt.Sprintf("Keep-alive history for %s", b.host),
		Date:   now.Format("Monday, January 2 15:04 MST"),
		Checks: make([]CheckData, len(cycles)),
		Stats:  StatsData{Total: len(cycles)},
	}

	for i, c := range cycles {
		switch types.Outcome(c.Outcome) {
		case types.OutcomeSuccess:
			data.Stats.Succeeded++
		case types.OutcomeActionTaken:
			data.Stats.ActionTaken++
		case types.OutcomeFailed:
			data.Stats.Failed++
		}
		data.Checks[i] = CheckData{
			StartedAt: c.StartedAt.In(now.Location()).Format(time.DateTime),
			Run:       shortID(c.RunID),
			Seq:       c.Seq,
			Status:    c.Status,
			Outcome:   c.Outcome,
			Duration:  c.Duration.Round(time.Second).String(),
			Reason:    truncate(c.Reason, 200),
			Failed:    types.Outcome(c.Outcome) == types.OutcomeFailed,
		}
	}

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Report{
		Title:     data.Title,
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		CreatedAt: now,
	}, nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func buildPlainText(data ReportData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n%s\n", data.Title, data.Date)
	fmt.Fprintf(&buf, "%d checks: %d ok, %d started the server, %d failed\n\n",
		data.Stats.Total, data.Stats.Succeeded, data.Stats.ActionTaken, data.Stats.Failed)

	for _, c := range data.Checks {
		fmt.Fprintf(&buf, "%s  #%d  %-7s  %s", c.StartedAt, c.Seq, c.Status, c.Outcome)
		if c.Reason != "" {
			fmt.Fprintf(&buf, ": %s", c.Reason)
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 900px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #2b6cb0; margin-bottom: 5px; }
        .date { color: #666; margin-bottom: 20px; }
        .stats span { margin-right: 15px; }
        table { width: 100%; border-collapse: collapse; margin-top: 15px; font-size: 14px; }
        th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #eee; }
        tr.failed td { color: #c53030; }
        .reason { color: #666; font-size: 12px; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}}</div>
        <div class="stats">
            <span>{{.Stats.Succeeded}} ok</span>
            <span>{{.Stats.ActionTaken}} started</span>
            <span>{{.Stats.Failed}} failed</span>
        </div>

        <table>
            <tr><th>Started</th><th>Run</th><th>Check</th><th>Status</th><th>Outcome</th><th>Duration</th></tr>
            {{range .Checks}}
            <tr{{if .Failed}} class="failed"{{end}}>
                <td>{{.StartedAt}}</td><td>{{.Run}}</td><td>{{.Seq}}</td><td>{{.Status}}</td><td>{{.Outcome}}</td><td>{{.Duration}}</td>
            </tr>
            {{if .Reason}}<tr><td colspan="6" class="reason">{{.Reason}}</td></tr>{{end}}
            {{end}}
        </table>

        <div class="footer">
            {{.Stats.Total}} checks · Generated by falix-keepalive
        </div>
    </div>
</body>
</html>`

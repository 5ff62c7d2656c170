package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"

	"github.com/codewithboateng/drulift/internal/ir"
	"github.com/codewithboateng/drulift/internal/rules"
	"github.com/codewithboateng/drulift/internal/summary"
)

func WriteHTML(runID, outDir string, run *ir.Run) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(outDir, runID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	s := summary.Summarize(run)

	// Head + styles
	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", html.EscapeString(runID))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2,h3{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace}</style>")
	fmt.Fprint(f, "</head><body>")

	// Title + summary
	fmt.Fprintf(f, "<h1>drulift report – <span class='mono'>%s</span></h1>", html.EscapeString(runID))
	if run.Source != "" {
		fmt.Fprintf(f, "<p class='dim'>Source: <span class='mono'>%s</span></p>", html.EscapeString(run.Source))
	}
	fmt.Fprintf(f, "<p>Files: %d &nbsp; Classes: %d &nbsp; Plugin managers: %d &nbsp; Findings: %d</p>",
		s.Files, s.Classes, s.PluginManagers, s.Findings)

	fmt.Fprint(f, "<p class='dim'>")
	if n := len(run.Context.DisabledRules); n > 0 {
		fmt.Fprintf(f, "Disabled rules: %d &nbsp; ", n)
	}
	if run.Context.Baseline != "" {
		fmt.Fprintf(f, "Baseline: %s (%d ignored) &nbsp; ", html.EscapeString(run.Context.Baseline), s.BaselineIgnored)
	}
	if s.Waived > 0 {
		fmt.Fprintf(f, "Waived: %d", s.Waived)
	}
	fmt.Fprint(f, "</p>")

	// Per rule
	if len(s.ByRule) > 0 {
		fmt.Fprint(f, "<h2>By Rule</h2><table><tr><th>Rule</th><th>Summary</th><th>Findings</th></tr>")
		for _, rc := range s.ByRule {
			sum := ""
			if r, ok := rules.Get(rc.RuleID); ok {
				sum = r.Summary
			}
			fmt.Fprintf(f, "<tr><td class='mono'>%s</td><td>%s</td><td>%d</td></tr>",
				html.EscapeString(rc.RuleID), html.EscapeString(sum), rc.Count)
		}
		fmt.Fprint(f, "</table>")
	}

	// Findings grouped per class
	if len(run.Findings) == 0 {
		fmt.Fprint(f, "<h2>Findings</h2><p class='dim'>No findings.</p>")
		fmt.Fprint(f, "</body></html>")
		return path, nil
	}
	type group struct {
		file, class string
		items       []ir.Finding
	}
	groups := map[string]*group{}
	var order []string
	for _, fd := range run.Findings {
		k := fd.File + "\x00" + fd.Class
		g, ok := groups[k]
		if !ok {
			g = &group{file: fd.File, class: fd.Class}
			groups[k] = g
			order = append(order, k)
		}
		g.items = append(g.items, fd)
	}
	sort.Strings(order)

	fmt.Fprint(f, "<h2>Findings</h2>")
	for _, k := range order {
		g := groups[k]
		fmt.Fprintf(f, "<h3 class='mono'>%s</h3><p class='dim mono'>%s</p>", html.EscapeString(g.class), html.EscapeString(g.file))
		fmt.Fprint(f, "<table><tr><th>Line</th><th>Method</th><th>Rule</th><th>Severity</th><th>Message</th></tr>")
		for _, fd := range g.items {
			fmt.Fprintf(f, "<tr><td>%d</td><td class='mono'>%s</td><td class='mono'>%s</td><td>%s</td><td>%s</td></tr>",
				fd.Line,
				html.EscapeString(fd.Method),
				html.EscapeString(fd.RuleID),
				html.EscapeString(fd.Severity),
				html.EscapeString(fd.Message),
			)
		}
		fmt.Fprint(f, "</table>")
	}

	fmt.Fprint(f, "</body></html>")
	return path, nil
}

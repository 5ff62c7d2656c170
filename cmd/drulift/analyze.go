package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/codewithboateng/drulift/internal/baseline"
	"github.com/codewithboateng/drulift/internal/ir"
	"github.com/codewithboateng/drulift/internal/metrics"
	"github.com/codewithboateng/drulift/internal/parser"
	"github.com/codewithboateng/drulift/internal/reporting"
	"github.com/codewithboateng/drulift/internal/rules"
	"github.com/codewithboateng/drulift/internal/storage"
	"github.com/codewithboateng/drulift/internal/summary"
)

type analyzeFlags struct {
	path           string
	outDir         string
	baseline       string
	watch          bool
	failOnFindings bool
	noDB           bool
	metricsAddr    string
}

func analyzeCmd(g *globals) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Analyze PHP sources and store a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if f.path != "" {
					return usageErr("analyze: give the path either as argument or --path")
				}
				f.path = args[0]
			}
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), g, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.path, "path", "", "Directory or file to analyze (default: analysis.sources[0])")
	fl.StringVar(&f.outDir, "out", "", "Output directory for reports")
	fl.StringVar(&f.baseline, "baseline", "", "Baseline file of findings to ignore")
	fl.BoolVar(&f.watch, "watch", false, "Re-run the analysis when sources change")
	fl.BoolVar(&f.failOnFindings, "fail-on-findings", false, "Exit with status 3 when findings remain")
	fl.BoolVar(&f.noDB, "no-db", false, "Do not persist the run")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve /metrics on this address while --watch runs")
	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, g *globals, f analyzeFlags) error {
	cfg, logger, err := g.loadConfig()
	if err != nil {
		return err
	}
	if f.path == "" && len(cfg.Analysis.Sources) > 0 {
		f.path = cfg.Analysis.Sources[0]
	}
	if f.outDir == "" {
		f.outDir = cfg.Reporting.OutDir
	}
	if f.baseline == "" {
		f.baseline = cfg.Baseline.Path
	}
	if f.path == "" {
		return usageErr("analyze: a path (or analysis.sources in config) is required")
	}
	if f.watch && f.failOnFindings {
		return usageErr("analyze: --watch and --fail-on-findings cannot be combined")
	}
	if f.metricsAddr != "" && !f.watch {
		return usageErr("analyze: --metrics-addr requires --watch")
	}

	applyRuleSettings(cfg)
	p, err := newParser(cfg)
	if err != nil {
		return err
	}

	var db *storage.DB
	if !f.noDB {
		if db, err = openDB(cfg); err != nil {
			return err
		}
		defer db.Close()
	}

	a := &analyzer{
		parser:   p,
		db:       db,
		logger:   logger,
		outDir:   f.outDir,
		baseline: f.baseline,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.metricsAddr != "" {
		_, shutdown, err := serveMetrics(f.metricsAddr, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	res, err := a.run(ctx, f.path)
	if err != nil {
		return err
	}
	printResult(out, res)

	if f.watch {
		return a.watch(ctx, out, f.path, cfg.Watch.Debounce)
	}
	if f.failOnFindings && len(res.run.Findings) > 0 {
		return &exitError{code: exitFindings}
	}
	return nil
}

// analyzer is the parse → evaluate → filter → persist → report pipeline.
// The parser is kept between watch iterations so unchanged files are not
// lowered again.
type analyzer struct {
	parser   *parser.Parser
	db       *storage.DB
	logger   *slog.Logger
	outDir   string
	baseline string
}

type analyzeResult struct {
	run       *ir.Run
	summary   summary.Summary
	jsonPath  string
	htmlPath  string
	unmatched []baseline.Unmatched
}

func (a *analyzer) run(ctx context.Context, path string) (res *analyzeResult, err error) {
	defer func() { metrics.RecordRun(err) }()

	start := time.Now()
	run, diags, err := a.parser.Parse(ctx, path)
	metrics.ObservePhase("parse", start)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	for _, w := range diags.Warnings {
		a.logger.Warn("parse warning", "warning", w)
	}

	run.ID = "run-" + uuid.NewString()
	run.StartedAt = time.Now().UTC()
	settings := rules.CurrentSettings()
	for id, off := range settings.Disabled {
		if off {
			run.Context.DisabledRules = append(run.Context.DisabledRules, id)
		}
	}
	sort.Strings(run.Context.DisabledRules)
	run.Context.PluginManagerBases = settings.PluginManagerBases

	start = time.Now()
	findings, err := rules.Evaluate(ctx, &run)
	metrics.ObservePhase("evaluate", start)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	if a.db != nil {
		ws, err := a.db.ListWaivers(true)
		if err != nil {
			return nil, fmt.Errorf("load waivers: %w", err)
		}
		findings, run.Context.Waived = rules.ApplyWaivers(findings, ws)
	}

	res = &analyzeResult{}
	if a.baseline != "" {
		b, err := baseline.Load(a.baseline)
		if err != nil {
			return nil, err
		}
		findings, run.Context.BaselineIgnored, res.unmatched = b.Apply(findings)
		run.Context.Baseline = a.baseline
		for _, u := range res.unmatched {
			a.logger.Warn("baseline entry did not match as expected",
				"rule", u.Entry.Rule, "message", u.Entry.Message, "path", u.Entry.Path,
				"expected", u.Entry.Count, "occurred", u.Occurred)
		}
	}
	run.Findings = findings
	res.run = &run
	res.summary = summary.Summarize(&run)

	if a.db != nil {
		start = time.Now()
		if err := a.db.SaveRun(&run); err != nil {
			return nil, fmt.Errorf("db save run: %w", err)
		}
		metrics.ObservePhase("persist", start)
	}

	if res.jsonPath, err = reporting.WriteJSON(run.ID, a.outDir, &run); err != nil {
		return nil, fmt.Errorf("write json report: %w", err)
	}
	if res.htmlPath, err = reporting.WriteHTML(run.ID, a.outDir, &run); err != nil {
		return nil, fmt.Errorf("write html report: %w", err)
	}

	byRule := map[string]int{}
	for _, rc := range res.summary.ByRule {
		byRule[rc.RuleID] = rc.Count
	}
	metrics.RecordFindings(byRule)
	metrics.RecordInventory(res.summary.Classes, res.summary.PluginManagers)

	a.logger.Info("analyze complete",
		"run", run.ID,
		"files", res.summary.Files,
		"plugin_managers", res.summary.PluginManagers,
		"findings", res.summary.Findings,
		"waived", run.Context.Waived,
		"baseline_ignored", run.Context.BaselineIgnored,
		"json", res.jsonPath,
		"html", res.htmlPath,
	)
	return res, nil
}

// watch re-runs the whole pipeline whenever a batch of relevant changes
// arrives. Failed iterations are logged and do not stop the loop.
func (a *analyzer) watch(ctx context.Context, out io.Writer, path string, debounce time.Duration) error {
	root := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		root = filepath.Dir(path)
	}
	w, err := parser.NewWatcher(parser.WatcherConfig{
		Root:     root,
		Debounce: debounce,
		Match:    a.parser.Matches,
		Logger:   a.logger,
	})
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer w.Close()
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-w.Changes():
			if !ok {
				return nil
			}
			a.logger.Info("sources changed, re-analyzing", "files", len(batch))
			res, err := a.run(ctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				a.logger.Error("analysis failed", "error", err)
				continue
			}
			printResult(out, res)
		}
	}
}

// serveMetrics exposes the collectors of this process, so a long-running
// watch can be scraped directly.
func serveMetrics(addr string, logger *slog.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("metrics listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	bound := ln.Addr().String()
	logger.Info("metrics listening", "addr", bound)
	return bound, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func printResult(out io.Writer, res *analyzeResult) {
	s := res.summary
	fmt.Fprintf(out, "Analyze OK\n  Run: %s\n  Files: %d  Classes: %d  Plugin managers: %d\n  Findings: %d",
		res.run.ID, s.Files, s.Classes, s.PluginManagers, s.Findings)
	if s.Waived > 0 || s.BaselineIgnored > 0 {
		fmt.Fprintf(out, " (waived %d, baseline %d)", s.Waived, s.BaselineIgnored)
	}
	fmt.Fprintf(out, "\n  JSON: %s\n  HTML: %s\n", res.jsonPath, res.htmlPath)
	for _, f := range res.run.Findings {
		fmt.Fprintf(out, "  %s:%d %s::%s %s\n", f.File, f.Line, f.Class, f.Method, f.Message)
	}
}

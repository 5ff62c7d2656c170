package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/codewithboateng/drulift/internal/api"
	"github.com/codewithboateng/drulift/internal/baseline"
	"github.com/codewithboateng/drulift/internal/ir"
	"github.com/codewithboateng/drulift/internal/reporting"
	"github.com/codewithboateng/drulift/internal/rules"
	"github.com/codewithboateng/drulift/internal/security"
	"github.com/codewithboateng/drulift/internal/storage"
)

func reportCmd(g *globals) *cobra.Command {
	var runID, outDir string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render reports for a stored run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.Reporting.OutDir
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := loadRunOrLatest(db, runID)
			if err != nil {
				return err
			}
			jsonPath, err := reporting.WriteJSON(run.ID, outDir, &run)
			if err != nil {
				return fmt.Errorf("write json report: %w", err)
			}
			htmlPath, err := reporting.WriteHTML(run.ID, outDir, &run)
			if err != nil {
				return fmt.Errorf("write html report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report OK\n  Run: %s\n  JSON: %s\n  HTML: %s\n", run.ID, jsonPath, htmlPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run ID (default: latest run)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory")
	return cmd
}

func loadRunOrLatest(db *storage.DB, id string) (ir.Run, error) {
	if id == "" {
		return db.LoadLatestRun()
	}
	return db.LoadRun(id)
}

func diffCmd(g *globals) *cobra.Command {
	var base, head, outDir string
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the findings of two stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if base == "" || head == "" {
				return usageErr("diff: --base and --head are required")
			}
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.Reporting.OutDir
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			for _, id := range []string{base, head} {
				ok, err := db.HasRun(id)
				if err != nil {
					return err
				}
				if !ok {
					return usageErr("diff: unknown run %q", id)
				}
			}
			b, err := db.LoadRun(base)
			if err != nil {
				return err
			}
			h, err := db.LoadRun(head)
			if err != nil {
				return err
			}
			path, err := reporting.WriteDiffJSON(b.ID, h.ID, outDir, &b, &h)
			if err != nil {
				return fmt.Errorf("write diff: %w", err)
			}
			d := reporting.Diff(b.ID, h.ID, &b, &h)
			fmt.Fprintf(cmd.OutOrStdout(), "Diff OK\n  Base: %s\n  Head: %s\n  New: %d  Removed: %d  Changed: %d\n  JSON: %s\n",
				b.ID, h.ID, d.Summary.NewCount, d.Summary.RemovedCount, d.Summary.ChangedCount, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "Base run ID")
	cmd.Flags().StringVar(&head, "head", "", "Head run ID")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory")
	return cmd
}

func serveCmd(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			s := &api.Server{
				DB:              db,
				UserStore:       db,
				Logger:          logger,
				AllowedOrigins:  cfg.Server.AllowedOrigins,
				SessionDuration: cfg.Server.SessionTTL,
			}
			if err := s.SeedMetrics(); err != nil {
				logger.Warn("metrics seeding failed", "error", err)
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           s.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			errCh := make(chan error, 1)
			go func() {
				logger.Info("api listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("serve: %w", err)
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.Info("api shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	return cmd
}

func rulesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List enabled rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			applyRuleSettings(cfg)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSUMMARY")
			for _, r := range rules.List() {
				fmt.Fprintf(tw, "%s\t%s\n", r.ID, r.Summary)
			}
			return tw.Flush()
		},
	}
}

func baselineCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage baseline files",
	}
	var runID, out string
	gen := &cobra.Command{
		Use:   "generate",
		Short: "Write a baseline that ignores every finding of a stored run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.Baseline.Path
			}
			if out == "" {
				return usageErr("baseline generate: --out (or baseline.path in config) is required")
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := loadRunOrLatest(db, runID)
			if err != nil {
				return err
			}
			f := baseline.Generate(run.Findings)
			if err := baseline.Write(out, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Baseline OK\n  Run: %s\n  Entries: %d\n  File: %s\n", run.ID, len(f.Ignore), out)
			return nil
		},
	}
	gen.Flags().StringVar(&runID, "run", "", "Run ID (default: latest run)")
	gen.Flags().StringVar(&out, "out", "", "Baseline file to write")
	cmd.AddCommand(gen)
	return cmd
}

func userCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}
	var role string
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user; the password is read from DRULIFT_PASSWORD or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role = strings.ToLower(strings.TrimSpace(role))
			if role != storage.RoleAdmin && role != storage.RoleViewer {
				return usageErr("user add: role must be %q or %q", storage.RoleAdmin, storage.RoleViewer)
			}
			pw := os.Getenv("DRULIFT_PASSWORD")
			if pw == "" {
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				pw = strings.TrimRight(line, "\r\n")
				if pw == "" {
					return usageErr("user add: no password given")
				}
			}
			hash, err := security.HashPassword(pw)
			if err != nil {
				return usageErr("user add: %w", err)
			}
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			id, err := db.CreateUser(args[0], hash, role)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			_ = db.LogAudit("cli", "user:create", args[0], map[string]any{"id": id, "role": role})
			fmt.Fprintf(cmd.OutOrStdout(), "User OK\n  ID: %d\n  Username: %s\n  Role: %s\n", id, args[0], role)
			return nil
		},
	}
	add.Flags().StringVar(&role, "role", storage.RoleViewer, "Role: admin or viewer")
	cmd.AddCommand(add)
	return cmd
}

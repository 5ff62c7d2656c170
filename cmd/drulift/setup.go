package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/codewithboateng/drulift/internal/parser"
	"github.com/codewithboateng/drulift/internal/rules"
	"github.com/codewithboateng/drulift/internal/shared"
	"github.com/codewithboateng/drulift/internal/storage"
)

// loadConfig applies precedence flags > env > config file > defaults and
// installs the logger.
func (g *globals) loadConfig() (shared.Config, *slog.Logger, error) {
	cfg, err := shared.LoadConfig(g.configPath)
	if err != nil {
		return cfg, nil, usageErr("config: %w", err)
	}
	if g.dbDriver != "" {
		cfg.Database.Driver = g.dbDriver
	}
	if g.dbDSN != "" {
		cfg.Database.DSN = g.dbDSN
	}
	if g.logFormat != "" {
		cfg.Logging.Format = g.logFormat
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
	return cfg, logger, nil
}

func openDB(cfg shared.Config) (*storage.DB, error) {
	db, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.CreateSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db schema: %w", err)
	}
	return db, nil
}

func applyRuleSettings(cfg shared.Config) {
	disabled := map[string]bool{}
	for _, id := range cfg.Rules.Disabled {
		disabled[strings.ToUpper(strings.TrimSpace(id))] = true
	}
	rules.SetSettings(rules.Settings{
		Disabled:           disabled,
		PluginManagerBases: cfg.Rules.PluginManagerBases,
		Workers:            cfg.Analysis.Workers,
	})
}

func newParser(cfg shared.Config) (*parser.Parser, error) {
	opts := parser.DefaultOptions()
	if len(cfg.Analysis.Include) > 0 {
		opts.Include = cfg.Analysis.Include
	}
	if len(cfg.Analysis.Exclude) > 0 {
		opts.Exclude = cfg.Analysis.Exclude
	}
	if cfg.Analysis.ParseCacheSize > 0 {
		opts.CacheSize = cfg.Analysis.ParseCacheSize
	}
	p, err := parser.New(opts)
	if err != nil {
		return nil, usageErr("analysis patterns: %w", err)
	}
	return p, nil
}

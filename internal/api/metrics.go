package api

import (
	"errors"
	"fmt"

	"github.com/codewithboateng/drulift/internal/metrics"
	"github.com/codewithboateng/drulift/internal/storage"
	"github.com/codewithboateng/drulift/internal/summary"
)

const seedPage = 200

// SeedMetrics loads the stored run history into the collectors served at
// /metrics. Runs are produced by separate analyze processes, so without this
// a scrape of the API would only ever see runtime collectors. Call it once.
func (s *Server) SeedMetrics() error {
	runs := 0
	byRule := map[string]int{}
	for offset := 0; ; offset += seedPage {
		rows, err := s.DB.ListRuns(seedPage, offset)
		if err != nil {
			return fmt.Errorf("seed metrics: list runs: %w", err)
		}
		for _, r := range rows {
			runs++
			if r.Findings == 0 {
				continue
			}
			fs, err := s.DB.ListFindings(r.ID, "")
			if err != nil {
				return fmt.Errorf("seed metrics: findings of %s: %w", r.ID, err)
			}
			for _, f := range fs {
				byRule[f.RuleID]++
			}
		}
		if len(rows) < seedPage {
			break
		}
	}
	metrics.RecordHistory(runs, byRule)

	latest, err := s.DB.LoadLatestRun()
	if errors.Is(err, storage.ErrRunNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed metrics: latest run: %w", err)
	}
	sum := summary.Summarize(&latest)
	metrics.RecordInventory(sum.Classes, sum.PluginManagers)
	s.logger().Info("metrics seeded from stored runs", "runs", runs)
	return nil
}

package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codewithboateng/drulift/internal/ir"
	"github.com/codewithboateng/drulift/internal/summary"
)

// jsonReport is the on-disk shape: the run itself plus computed totals.
type jsonReport struct {
	*ir.Run
	Summary summary.Summary `json:"summary"`
}

func WriteJSON(runID, outDir string, run *ir.Run) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(outDir, runID+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{Run: run, Summary: summary.Summarize(run)}); err != nil {
		return "", err
	}
	return path, nil
}

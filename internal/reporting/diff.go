package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codewithboateng/drulift/internal/ir"
)

type DiffPayload struct {
	BaseID  string        `json:"base_id"`
	HeadID  string        `json:"head_id"`
	Summary DiffSummary   `json:"summary"`
	New     []DiffFinding `json:"new"`
	Removed []DiffFinding `json:"removed"`
	Changed []DiffChanged `json:"changed"`
}

type DiffSummary struct {
	NewCount     int `json:"new"`
	RemovedCount int `json:"removed"`
	ChangedCount int `json:"changed"`
}

type DiffFinding struct {
	RuleID   string `json:"rule_id"`
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Class    string `json:"class,omitempty"`
	Method   string `json:"method,omitempty"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message"`
}

type DiffChanged struct {
	Key     string      `json:"key"`
	Base    DiffFinding `json:"base"`
	Head    DiffFinding `json:"head"`
	Changed []string    `json:"fields_changed"`
}

// Diff compares two runs. Findings are identified by rule, file, class,
// method and message, so a finding that only moved lines is "changed".
// Identical keys within one run are paired by occurrence.
func Diff(baseID, headID string, base, head *ir.Run) DiffPayload {
	bm := index(base.Findings)
	hm := index(head.Findings)

	var added, removed []DiffFinding
	var changed []DiffChanged

	for k, hs := range hm {
		bs := bm[k]
		for i, hf := range hs {
			if i >= len(bs) {
				added = append(added, asDiff(hf))
				continue
			}
			bf := bs[i]
			var fields []string
			if bf.Line != hf.Line {
				fields = append(fields, "line")
			}
			if norm(bf.Severity) != norm(hf.Severity) {
				fields = append(fields, "severity")
			}
			if len(fields) > 0 {
				changed = append(changed, DiffChanged{Key: k, Base: asDiff(bf), Head: asDiff(hf), Changed: fields})
			}
		}
	}
	for k, bs := range bm {
		for i := len(hm[k]); i < len(bs); i++ {
			removed = append(removed, asDiff(bs[i]))
		}
	}

	sortDiff(added)
	sortDiff(removed)
	sort.Slice(changed, func(i, j int) bool { return changed[i].Key < changed[j].Key })

	return DiffPayload{
		BaseID: baseID, HeadID: headID,
		Summary: DiffSummary{
			NewCount:     len(added),
			RemovedCount: len(removed),
			ChangedCount: len(changed),
		},
		New:     added,
		Removed: removed,
		Changed: changed,
	}
}

func WriteDiffJSON(baseID, headID, outDir string, base, head *ir.Run) (string, error) {
	path := filepath.Join(outDir, "diff_"+baseID+"__"+headID+".json")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(Diff(baseID, headID, base, head), "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, b, 0o644)
}

func index(fs []ir.Finding) map[string][]ir.Finding {
	m := make(map[string][]ir.Finding, len(fs))
	for _, f := range fs {
		k := keyOf(f)
		m[k] = append(m[k], f)
	}
	return m
}

func sortDiff(fs []DiffFinding) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].File != fs[j].File {
			return fs[i].File < fs[j].File
		}
		if fs[i].Line != fs[j].Line {
			return fs[i].Line < fs[j].Line
		}
		if fs[i].RuleID != fs[j].RuleID {
			return fs[i].RuleID < fs[j].RuleID
		}
		return fs[i].Message < fs[j].Message
	})
}

func keyOf(f ir.Finding) string {
	sb := strings.Builder{}
	sb.WriteString(norm(f.RuleID))
	sb.WriteByte('|')
	sb.WriteString(strings.TrimSpace(f.File))
	sb.WriteByte('|')
	// class names are case-insensitive, method names are kept as written
	sb.WriteString(strings.ToLower(strings.TrimLeft(f.Class, `\`)))
	sb.WriteByte('|')
	sb.WriteString(f.Method)
	sb.WriteByte('|')
	sb.WriteString(strings.TrimSpace(f.Message))
	return sb.String()
}

func asDiff(f ir.Finding) DiffFinding {
	return DiffFinding{
		RuleID:   f.RuleID,
		File:     f.File,
		Line:     f.Line,
		Class:    f.Class,
		Method:   f.Method,
		Severity: f.Severity,
		Message:  f.Message,
	}
}

func norm(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

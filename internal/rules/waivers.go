package rules

import (
	"strings"

	"github.com/codewithboateng/drulift/internal/ir"
	"github.com/codewithboateng/drulift/internal/storage"
)

// ApplyWaivers filters out findings that match any active waiver.
// Returns (kept, waivedCount)
func ApplyWaivers(in []ir.Finding, waivers []storage.Waiver) ([]ir.Finding, int) {
	if len(waivers) == 0 || len(in) == 0 {
		return in, 0
	}
	var out []ir.Finding
	waived := 0
nextFinding:
	for _, f := range in {
		for _, w := range waivers {
			if !eqCI(f.RuleID, w.RuleID) {
				continue
			}
			if w.Class != "" && !eqClass(f.Class, w.Class) {
				continue
			}
			if w.Method != "" && !eqCI(f.Method, w.Method) {
				continue
			}
			if w.PatternSub != "" && !strings.Contains(f.Message, w.PatternSub) && !strings.Contains(f.File, w.PatternSub) {
				continue
			}
			// matched → waive it
			waived++
			continue nextFinding
		}
		out = append(out, f)
	}
	return out, waived
}

func eqCI(a, b string) bool { return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) }

func eqClass(a, b string) bool { return normalizeClassName(a) == normalizeClassName(b) }

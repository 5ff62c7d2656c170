package rules

import (
	"context"
	"fmt"
	"hash/crc32"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/codewithboateng/drulift/internal/ir"
)

var (
	registry  []Rule
	ruleIndex = map[string]int{} // UPPER(ruleID) -> index
)

func Register(r Rule) {
	registry = append(registry, r)
	ruleIndex[strings.ToUpper(strings.TrimSpace(r.ID))] = len(registry) - 1
}

func List() []Rule {
	disabled := CurrentSettings().Disabled
	out := make([]Rule, 0, len(registry))
	for _, r := range registry {
		if disabled[strings.ToUpper(r.ID)] {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a rule by ID if registered (used by the HTML report to link docs).
func Get(id string) (Rule, bool) {
	idx, ok := ruleIndex[strings.ToUpper(strings.TrimSpace(id))]
	if !ok || idx < 0 || idx >= len(registry) {
		return Rule{}, false
	}
	return registry[idx], true
}

// target is one method declaration together with its enclosing class.
type target struct {
	file   *ir.File
	class  *ir.Class
	method *ir.Method
}

// Evaluate runs every enabled rule over every method in the run. Methods are
// processed concurrently; the result order only depends on the input.
func Evaluate(ctx context.Context, run *ir.Run) ([]ir.Finding, error) {
	rs := List()

	var targets []target
	for i := range run.Files {
		f := &run.Files[i]
		for j := range f.Classes {
			c := &f.Classes[j]
			for k := range c.Methods {
				targets = append(targets, target{file: f, class: c, method: &c.Methods[k]})
			}
		}
	}

	results := make([][]ir.Finding, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(CurrentSettings().Workers)
	for i := range targets {
		t := targets[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fs, err := evalTarget(rs, t)
			if err != nil {
				return fmt.Errorf("%s %s::%s: %w", t.file.Path, t.class.Name, t.method.Name, err)
			}
			results[i] = fs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []ir.Finding
	seen := make(map[string]struct{}) // finding IDs seen in this run
	seq := 0
	put := func(id string) bool {
		if _, ok := seen[id]; ok {
			return false
		}
		seen[id] = struct{}{}
		return true
	}
	for _, fs := range results {
		for k := range fs {
			// Guarantee unique ID within the run
			if !put(fs[k].ID) {
				for {
					seq++
					candidate := fmt.Sprintf("%s-%06d", fs[k].RuleID, seq)
					if put(candidate) {
						fs[k].ID = candidate
						break
					}
				}
			}
		}
		all = append(all, fs...)
	}

	// Stable order for reproducible outputs; messages of one method keep
	// their emission order.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].File != all[j].File {
			return all[i].File < all[j].File
		}
		if all[i].Line != all[j].Line {
			return all[i].Line < all[j].Line
		}
		return all[i].RuleID < all[j].RuleID
	})
	return all, nil
}

func evalTarget(rs []Rule, t target) ([]ir.Finding, error) {
	scope := classScope{class: t.class}
	var out []ir.Finding
	for _, rule := range rs {
		msgs, err := rule.Process(t.method, scope)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		for idx, msg := range msgs {
			out = append(out, ir.Finding{
				ID:       makeID(rule.ID, t.file.Path, t.class.Name, t.method.Name, msg, idx),
				File:     t.file.Path,
				Line:     t.method.Line,
				Class:    t.class.Name,
				Method:   t.method.Name,
				RuleID:   rule.ID,
				Severity: ir.SeverityWarning,
				Message:  msg,
				Evidence: t.class.Name + "::" + t.method.Name,
			})
		}
	}
	return out, nil
}

func makeID(ruleID, file, class, method string, msg string, idx int) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%d", ruleID, file, class, method, msg, idx)
	sum := crc32.ChecksumIEEE([]byte(data))
	return fmt.Sprintf("%s-%08x", ruleID, sum)
}

// Package summary aggregates run totals for reports and command output.
package summary

import (
	"sort"

	"github.com/codewithboateng/drulift/internal/ir"
	"github.com/codewithboateng/drulift/internal/rules"
)

type RuleCount struct {
	RuleID string `json:"rule_id"`
	Count  int    `json:"count"`
}

type Summary struct {
	Files           int         `json:"files"`
	Classes         int         `json:"classes"`
	Interfaces      int         `json:"interfaces"`
	Traits          int         `json:"traits"`
	PluginManagers  int         `json:"plugin_managers"`
	Constructors    int         `json:"constructors"`
	Findings        int         `json:"findings"`
	FilesWithIssues int         `json:"files_with_issues"`
	ByRule          []RuleCount `json:"by_rule,omitempty"`
	BaselineIgnored int         `json:"baseline_ignored,omitempty"`
	Waived          int         `json:"waived,omitempty"`
}

// Summarize counts declarations and findings of a run. Plugin managers are
// classified with the current rule settings.
func Summarize(run *ir.Run) Summary {
	s := Summary{
		Files:           len(run.Files),
		Findings:        len(run.Findings),
		BaselineIgnored: run.Context.BaselineIgnored,
		Waived:          run.Context.Waived,
	}
	for i := range run.Files {
		for j := range run.Files[i].Classes {
			c := &run.Files[i].Classes[j]
			switch c.Kind {
			case ir.KindInterface:
				s.Interfaces++
				continue
			case ir.KindTrait:
				s.Traits++
				continue
			}
			s.Classes++
			if !rules.IsPluginManager(c.Descriptor()) {
				continue
			}
			s.PluginManagers++
			for _, m := range c.Methods {
				if m.Name == "__construct" {
					s.Constructors++
				}
			}
		}
	}

	byRule := map[string]int{}
	files := map[string]struct{}{}
	for _, f := range run.Findings {
		byRule[f.RuleID]++
		files[f.File] = struct{}{}
	}
	s.FilesWithIssues = len(files)
	for id, n := range byRule {
		s.ByRule = append(s.ByRule, RuleCount{RuleID: id, Count: n})
	}
	sort.Slice(s.ByRule, func(i, j int) bool {
		if s.ByRule[i].Count != s.ByRule[j].Count {
			return s.ByRule[i].Count > s.ByRule[j].Count
		}
		return s.ByRule[i].RuleID < s.ByRule[j].RuleID
	})
	return s
}

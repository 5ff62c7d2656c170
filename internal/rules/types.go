package rules

import "github.com/codewithboateng/drulift/internal/ir"

// ProcessFunc inspects one method declaration in its resolved scope and
// returns diagnostic messages in emission order.
type ProcessFunc func(m *ir.Method, scope Scope) ([]string, error)

// Rule represents a single analysis rule executed over a method declaration.
type Rule struct {
	ID      string
	Summary string
	Docs    string
	Process ProcessFunc
}

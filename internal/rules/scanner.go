package rules

import "github.com/codewithboateng/drulift/internal/ir"

const configurationCallName = "setCacheBackend"

// FindConfigurationCall returns the first top-level setCacheBackend call of a
// method body. Nested blocks are not inspected and scanning stops at the
// first match.
func FindConfigurationCall(stmts []ir.Stmt) (*ir.MethodCall, bool) {
	for _, st := range stmts {
		var x ir.Expr
		switch s := st.(type) {
		case *ir.ExprStmt:
			x = s.X
		case *ir.OtherStmt:
			continue
		default:
			panic(unknownVariant(st))
		}
		if call, ok := x.(*ir.MethodCall); ok && call.Name == configurationCallName {
			return call, true
		}
	}
	return nil, false
}

package rules

import "github.com/codewithboateng/drulift/internal/ir"

func str(s string) *ir.StringLit { return &ir.StringLit{Value: s} }

func arr(items ...ir.Expr) *ir.ArrayLit { return &ir.ArrayLit{Items: items} }

func opaque(kind string) *ir.OpaqueExpr { return &ir.OpaqueExpr{Kind: kind} }

func thisCall(name string, args ...ir.Expr) *ir.ExprStmt {
	return &ir.ExprStmt{X: &ir.MethodCall{Receiver: opaque("variable_name"), Name: name, Args: args}}
}

func setCacheBackend(args ...ir.Expr) *ir.ExprStmt {
	return thisCall("setCacheBackend", append([]ir.Expr{opaque("variable_name")}, args...)...)
}

func constructor(stmts ...ir.Stmt) ir.Method {
	return ir.Method{Name: "__construct", Line: 10, HasBody: true, Body: stmts}
}

func pluginManagerClass(methods ...ir.Method) ir.Class {
	return ir.Class{
		Name:       `Drupal\my_module\MyPluginManager`,
		Kind:       ir.KindClass,
		Extends:    `Drupal\Core\Plugin\DefaultPluginManager`,
		Ancestors:  []string{`Drupal\Core\Plugin\DefaultPluginManager`},
		Interfaces: []string{},
		Line:       5,
		Methods:    methods,
	}
}

// fakeScope lets tests model engine states a parsed class can't produce.
type fakeScope struct {
	inClass bool
	inTrait bool
	desc    *ir.ClassDescriptor
}

func (s fakeScope) IsInClass() bool                      { return s.inClass }
func (s fakeScope) IsInTrait() bool                      { return s.inTrait }
func (s fakeScope) ClassDescriptor() *ir.ClassDescriptor { return s.desc }

package ir

// Stmt is a top-level statement of a method body. The set of variants is
// closed: only types in this package implement it.
type Stmt interface {
	stmtNode()
}

// Expr is an expression node. The set of variants is closed: only types in
// this package implement it.
type Expr interface {
	exprNode()
}

// ExprStmt is a bare expression used as a statement.
type ExprStmt struct {
	X    Expr
	Line int
}

// OtherStmt stands for any statement the analyzer does not look into
// (conditionals, loops, returns, ...).
type OtherStmt struct {
	Kind string
	Line int
}

func (*ExprStmt) stmtNode()  {}
func (*OtherStmt) stmtNode() {}

// StringLit is a compile-time constant string.
type StringLit struct {
	Value string
}

// ArrayLit is a literal collection initializer. Keys are dropped; Items
// holds the element values in source order.
type ArrayLit struct {
	Items []Expr
}

// MethodCall is an instance call with a statically known member name.
type MethodCall struct {
	Receiver Expr
	Name     string
	Args     []Expr
	Line     int
}

// OpaqueExpr is any expression shape the analyzer cannot reason about:
// variables, concatenation, constants, static calls, closures.
type OpaqueExpr struct {
	Kind string
	Text string
}

func (*StringLit) exprNode()  {}
func (*ArrayLit) exprNode()   {}
func (*MethodCall) exprNode() {}
func (*OpaqueExpr) exprNode() {}

// Arg returns the i-th positional argument, or nil when absent.
func (c *MethodCall) Arg(i int) Expr {
	if c == nil || i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

package rules

import (
	"errors"
	"fmt"

	"github.com/codewithboateng/drulift/internal/ir"
)

// ErrShouldNotHappen reports a broken contract between the host engine and
// a rule. It is never a finding about user code.
var ErrShouldNotHappen = errors.New("rules: engine invariant violated")

func shouldNotHappen(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrShouldNotHappen, fmt.Sprintf(format, args...))
}

// Scope is what the host engine knows about where a method is declared.
type Scope interface {
	IsInClass() bool
	IsInTrait() bool
	// ClassDescriptor returns the enclosing class, or nil when unresolved.
	ClassDescriptor() *ir.ClassDescriptor
}

// classScope is the Scope of a method declared in a parsed class-like body.
type classScope struct {
	class *ir.Class
}

func (s classScope) IsInClass() bool { return s.class != nil }

func (s classScope) IsInTrait() bool { return s.class != nil && s.class.Kind == ir.KindTrait }

func (s classScope) ClassDescriptor() *ir.ClassDescriptor {
	if s.class == nil {
		return nil
	}
	return s.class.Descriptor()
}

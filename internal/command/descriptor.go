// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"strings"
	"unicode"

	"github.com/apbuild/apb/internal/environment"
)

type (
	// Element is a buildable project element.
	Element interface {
		Name() string
		// Type returns the behavior chain the element's commands come from.
		Type() *Type
		// Related returns the elements a recursive command is forwarded to.
		Related() []Element
	}

	// Action is the body of a build target.
	Action func(ctx context.Context, el Element, env *environment.Environment) error

	// Descriptor declares one build target.
	Descriptor struct {
		// Ident is the identifier the target name derives from ("compileTests"
		// becomes "compile-tests") unless Name is set.
		Ident       string
		Name        string
		Description string
		// Recursive targets are also forwarded to the element's related elements.
		Recursive bool
		// Depends names targets that run first; unknown names are ignored.
		Depends []string
		// Before names a target that gets this one as an extra dependency.
		Before string
		Action Action
	}

	// Behavior is one link of a Type's chain.
	Behavior struct {
		Name string
		// Default names the element's default target.
		Default string
		Targets []Descriptor
	}

	// Type is a behavior chain ordered from most specific to most general.
	// It is compared by identity: the command graph cache is keyed by *Type.
	Type struct {
		name  string
		chain []*Behavior
	}
)

// NewType creates a Type from behaviors ordered most specific first.
func NewType(name string, chain ...*Behavior) *Type {
	return &Type{name: name, chain: append([]*Behavior(nil), chain...)}
}

// Extend returns a new Type with b in front of t's chain.
func (t *Type) Extend(name string, b *Behavior) *Type {
	return NewType(name, append([]*Behavior{b}, t.chain...)...)
}

func (t *Type) Name() string { return t.name }

// Chain returns the behaviors, most specific first.
func (t *Type) Chain() []*Behavior {
	return append([]*Behavior(nil), t.chain...)
}

// TargetName is the name under which the descriptor's target is registered.
func (d Descriptor) TargetName() string {
	if d.Name != "" {
		return d.Name
	}
	return IDFromIdent(d.Ident)
}

// IDFromIdent converts a camelCase identifier to a lower-case, dash-separated
// name: "runMinimalTests" becomes "run-minimal-tests" and "generateHTMLReport"
// becomes "generate-html-report".
func IDFromIdent(ident string) string {
	runes := []rune(ident)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

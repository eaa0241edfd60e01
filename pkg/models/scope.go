package models

import (
	"strconv"
	"strings"
)

// ScopeStep identifies one forEach iteration step: the parent check that
// fanned out, and the index of the item within that parent's output.
type ScopeStep struct {
	CheckID string
	Index   int
}

// Scope is an ordered path of forEach iteration steps identifying where in
// a dynamic fan-out a value was produced or is being consumed. The empty
// scope is the root; scopes form a prefix-closed tree.
type Scope []ScopeStep

// Root is the empty scope.
func Root() Scope { return nil }

// Extend returns a new scope with one more step appended. The receiver is
// never mutated.
func (s Scope) Extend(checkID string, index int) Scope {
	out := make(Scope, len(s)+1)
	copy(out, s)
	out[len(s)] = ScopeStep{CheckID: checkID, Index: index}
	return out
}

// IsPrefixOf reports whether s is a prefix of other (s == other counts).
func (s Scope) IsPrefixOf(other Scope) bool {
	if len(s) > len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Len returns the number of steps in the scope.
func (s Scope) Len() int { return len(s) }

// Key returns a deterministic string encoding suitable for map keys.
func (s Scope) Key() string {
	if len(s) == 0 {
		return ""
	}
	var b strings.Builder
	for i, step := range s {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(step.CheckID)
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(step.Index))
	}
	return b.String()
}

// Equal reports whether two scopes have identical steps.
func (s Scope) Equal(other Scope) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

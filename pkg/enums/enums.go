// Package enums provides case-insensitive normalization of string inputs
// against a fixed set of canonical enum values. Every status/outcome field in
// the API goes through one shared Set instead of per-field switch statements.
package enums

import (
	"strings"

	"github.com/dcs/dcs/pkg/apperror"
)

// Set is a named collection of canonical (upper-case) enum values.
type Set struct {
	name   string
	values []string
	index  map[string]string
}

// NewSet builds a Set. The field name is used in validation error messages.
func NewSet(name string, values ...string) Set {
	idx := make(map[string]string, len(values))
	for _, v := range values {
		idx[strings.ToUpper(v)] = v
	}
	return Set{name: name, values: values, index: idx}
}

// Name returns the field name the set validates.
func (s Set) Name() string { return s.name }

// Values returns the canonical values in declaration order.
func (s Set) Values() []string { return s.values }

// Contains reports whether v is already a canonical value (case-insensitive).
func (s Set) Contains(v string) bool {
	_, ok := s.index[strings.ToUpper(strings.TrimSpace(v))]
	return ok
}

// Normalize maps a case-insensitive input to its canonical value, or fails
// with a ValidationError listing the valid set.
func (s Set) Normalize(v string) (string, error) {
	canonical, ok := s.index[strings.ToUpper(strings.TrimSpace(v))]
	if !ok {
		return "", apperror.Validation("invalid %s %q, use one of: %s",
			s.name, v, strings.Join(s.values, " | "))
	}
	return canonical, nil
}

// NormalizeOptional is Normalize for optional fields: empty input yields the
// provided default without error.
func (s Set) NormalizeOptional(v, def string) (string, error) {
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	return s.Normalize(v)
}

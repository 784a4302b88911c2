// Package vars implements DECLARE/SET variable scope and
// the DML row-cap safety constant.
package vars

import (
	"strings"

	"github.com/joshsmithxrm/ppds-sdk/queryerr"
)

// DefaultDmlRowCap is the DML row cap used when the caller hasn't set
// an explicit cap; 0 means a DML statement may touch any number of rows.
const DefaultDmlRowCap = 0

// Scope holds the DECLARE'd variables for a single compile/execute
// cycle. Names are case-insensitive and always stored without their
// leading '@'.
type Scope struct {
	values map[string]interface{}
}

// NewScope returns an empty variable scope.
func NewScope() *Scope {
	return &Scope{values: make(map[string]interface{})}
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimPrefix(name, "@"))
}

// Declare registers a new variable with an optional initial value. A
// name must begin with '@' before normalization is applied by callers;
// Scope itself is agnostic and just normalizes away a leading '@' if
// present.
func (s *Scope) Declare(name string, initialValue interface{}) {
	s.values[normalize(name)] = initialValue
}

// Set updates an existing variable. Raises ExecutionFailed if name was
// never declared.
func (s *Scope) Set(name string, value interface{}) error {
	key := normalize(name)
	if _, ok := s.values[key]; !ok {
		return queryerr.ErrExecutionFailed.New("variable @" + key + " is not declared")
	}
	s.values[key] = value
	return nil
}

// Get reads a variable's current value. Raises ExecutionFailed if name
// was never declared.
func (s *Scope) Get(name string) (interface{}, error) {
	key := normalize(name)
	v, ok := s.values[key]
	if !ok {
		return nil, queryerr.ErrExecutionFailed.New("variable @" + key + " is not declared")
	}
	return v, nil
}

// Has reports whether name is declared.
func (s *Scope) Has(name string) bool {
	_, ok := s.values[normalize(name)]
	return ok
}

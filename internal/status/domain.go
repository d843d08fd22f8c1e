package status

import (
	"errors"
	"fmt"
)

// Domain is a named category of mutually exclusive status values, identified
// by a stable entity type key.
type Domain struct {
	EntityType  string `json:"entity_type"`
	Description string `json:"description"`
}

// Value is one status inside a domain. Key is the immutable machine
// identifier; DisplayName is the mutable label shown to users.
type Value struct {
	ID          int64  `json:"id"`
	EntityType  string `json:"entity_type"`
	Key         string `json:"status_key"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
	SortOrder   int32  `json:"sort_order"`
	IsInitial   bool   `json:"is_initial"`
	IsTerminal  bool   `json:"is_terminal"`
}

var (
	// ErrNotFound indicates the requested domain or value does not exist.
	ErrNotFound = errors.New("status: not found")
	// ErrDuplicate indicates a key or display name collision within a domain.
	ErrDuplicate = errors.New("status: duplicate value")
	// ErrInitialExists indicates the domain already has an initial value.
	ErrInitialExists = errors.New("status: domain already has an initial value")
)

// DomainViolationError reports a status reference pointing outside the
// column's expected domain. It aborts the enclosing mutation.
type DomainViolationError struct {
	Table    string
	Column   string
	Expected string
	Actual   string
	ValueID  int64
	NotFound bool
}

func (e *DomainViolationError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("status: %s.%s references status %d which does not exist (expected domain %q)",
			e.Table, e.Column, e.ValueID, e.Expected)
	}
	return fmt.Sprintf("status: %s.%s references status %d from domain %q, expected domain %q",
		e.Table, e.Column, e.ValueID, e.Actual, e.Expected)
}

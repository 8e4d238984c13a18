// Package halos links chunked particle arrays from cosmological simulations
// to the halo and subhalo membership implied by a structure-finder catalog.
// From per-group particle counts it builds an immutable offset index, then
// derives lazy membership fields, per-halo restricted views, and per-group
// reductions without materializing data until a caller forces evaluation.
package halos

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInconsistentCatalog is returned when catalog particle counts are
	// malformed or disagree with the snapshot they were loaded alongside.
	ErrInconsistentCatalog = errors.New("inconsistent catalog")

	// ErrGroupIDRange is returned when a group or subhalo id is negative or
	// past the end of the catalog.
	ErrGroupIDRange = errors.New("group id out of range")

	// ErrMembershipRange is returned when a container's particle axis does
	// not line up with the offset table of its species.
	ErrMembershipRange = errors.New("particle range outside group offsets")

	// ErrFieldMismatch is returned when fields supplied to one grouped job
	// disagree in length or chunking.
	ErrFieldMismatch = errors.New("field length or chunking mismatch")

	// ErrUnknownSpecies is returned when an operation names a species the
	// index was not built for.
	ErrUnknownSpecies = errors.New("unknown species")

	// ErrUnknownReduction is returned for an unrecognized reduction name.
	ErrUnknownReduction = errors.New("unknown reduction")
)

// GroupFuncError wraps an error raised by a user-supplied aggregation
// function, annotated with the group it was processing and that group's
// particle range.
type GroupFuncError struct {
	Group  int64
	Lo, Hi int64
	Err    error
}

func (e *GroupFuncError) Error() string {
	return fmt.Sprintf("aggregating group %d (particles [%d, %d)): %v", e.Group, e.Lo, e.Hi, e.Err)
}

func (e *GroupFuncError) Unwrap() error { return e.Err }

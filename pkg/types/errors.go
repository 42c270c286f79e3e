// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Configuration errors. They are never retried and surface before any
// network call is made.
var (
	ErrUnknownCategory  = errors.New("unknown category")
	ErrUnknownState     = errors.New("unknown state")
	ErrUnknownCounty    = errors.New("unknown county")
	ErrUnknownVariable  = errors.New("variable code not in catalog")
	ErrUnknownTableType = errors.New("variable code has no known table type")
	ErrMultipleStates   = errors.New("selection spans more than one state")
	ErrEmptySelection   = errors.New("empty selection")
)

// ErrUpstream marks a failed census API call: network error, non-2xx status,
// rejected credentials or an unparseable body.
var ErrUpstream = errors.New("census API failure")

// ErrShapeMismatch marks fragments that cannot be assembled into a table,
// such as an empty or missing geography.
var ErrShapeMismatch = errors.New("result shape mismatch")

// IsConfigError reports whether err is one of the configuration errors.
func IsConfigError(err error) bool {
	for _, target := range []error{
		ErrUnknownCategory, ErrUnknownState, ErrUnknownCounty,
		ErrUnknownVariable, ErrUnknownTableType, ErrMultipleStates,
		ErrEmptySelection,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

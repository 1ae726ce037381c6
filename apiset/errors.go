// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package apiset implements §4.G: parsing and resolving the three
// on-disk ApiSet namespace schemas (V2, V4, V6) that map a virtual
// `api-ms-*`/`ext-ms-*` contract name to a concrete host DLL.
package apiset

import "errors"

var (
	// ErrTruncated is returned when a namespace blob is too short to hold
	// the structure a read is about to decode.
	ErrTruncated = errors.New("apiset: namespace blob truncated")

	// ErrUnsupportedVersion is returned for a Version field outside {2,4,6}.
	ErrUnsupportedVersion = errors.New("apiset: unsupported namespace version")

	// ErrMalformed names a namespace entry whose offset or count points
	// outside the blob. The schema parsers report that case as
	// ErrTruncated and do not return ErrMalformed.
	ErrMalformed = errors.New("apiset: malformed namespace entry")
)

// Status is the outcome of Resolve, distinguishing the two non-success
// results named in §4.G from an actual error.
type Status int

const (
	// StatusResolved means Resolve's returned host name is meaningful.
	StatusResolved Status = iota

	// StatusNotPresent means no contract matched the lookup key.
	StatusNotPresent

	// StatusNotHosted means the contract matched but its selected value
	// entry is empty (§3 ApiSetNamespace invariant 3).
	StatusNotHosted
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "RESOLVED"
	case StatusNotPresent:
		return "NOT_PRESENT"
	case StatusNotHosted:
		return "NOT_HOSTED"
	default:
		return "UNKNOWN"
	}
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package server wires the wire/, apiset/ and knowndlls/ packages
// together with the root pe engine behind a thin, line-framed TCP front
// end (§6). The dispatcher loop that actually drives this package is
// intentionally minimal: spec.md §1 puts "the line-framed TCP command
// dispatcher that drives the engine" out of scope, so Serve here is a
// straightforward accept-and-read loop rather than a tuned production
// server.
package server

import (
	"sync"

	"github.com/saferwall/wdep/apiset"
	"github.com/saferwall/wdep/knowndlls"
)

// Support is the process-global "support context" of §9: the ApiSet map
// pointer and KnownDlls lists, constructed once and handed to every
// session by reference. Everything is immutable after construction
// except ApiSet, which `apisetmapsrc` may replace between requests
// under Support's own mutex (§5: "mutations are permitted only by the
// apisetmapsrc command, and only before or between requests").
type Support struct {
	mu            sync.Mutex
	apiSet        *apiset.Namespace
	defaultApiSet *apiset.Namespace
	KnownDlls     *knowndlls.Lists
}

// NewSupport constructs the support context. defaultApiSet may be nil
// when no process-default ApiSet map is available yet; it is retained
// separately so `apisetmapsrc` with no file argument can revert to it.
func NewSupport(knownDlls *knowndlls.Lists, defaultApiSet *apiset.Namespace) *Support {
	if knownDlls == nil {
		knownDlls = &knowndlls.Lists{}
	}
	return &Support{apiSet: defaultApiSet, defaultApiSet: defaultApiSet, KnownDlls: knownDlls}
}

// ApiSet returns the current ApiSet namespace, or nil if none is loaded.
func (s *Support) ApiSet() *apiset.Namespace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiSet
}

// SetApiSet atomically replaces the ApiSet namespace, implementing the
// `apisetmapsrc` command's interior mutation (§9).
func (s *Support) SetApiSet(ns *apiset.Namespace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiSet = ns
}

// RevertApiSet restores the process-default namespace captured at
// construction, matching `apisetmapsrc` with an empty payload (§6).
func (s *Support) RevertApiSet() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiSet = s.defaultApiSet
}

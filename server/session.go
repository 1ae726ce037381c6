// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package server

import (
	"time"

	"github.com/saferwall/wdep"
	"github.com/saferwall/wdep/internal/log"
)

// Session holds the per-connection state of §5: at most one OpenedImage,
// mutated only by `open`/`close`, plus the accumulated call-stats
// counters `callstats` reports. A driver (out of scope) owns one Session
// per client connection and is responsible for serializing calls to
// Handle, matching the engine's synchronous, single-threaded-per-session
// model.
type Session struct {
	support *Support
	logger  *log.Helper

	img      *pe.OpenedImage
	useStats bool

	totalBytesSent uint64
	totalSendCalls uint64
	totalTimeSpent time.Duration
}

// NewSession creates a session bound to the process-wide support
// context.
func NewSession(support *Support, logger *log.Helper) *Session {
	return &Session{support: support, logger: logger}
}

// Close releases the session's OpenedImage, if any, matching `close`
// (§6) and connection teardown (§5).
func (s *Session) Close() error {
	if s.img == nil {
		return nil
	}
	err := s.img.Close()
	s.img = nil
	s.useStats = false
	return err
}

// recordSend accumulates the per-image send counters §3 describes,
// when the session opened with use_stats.
func (s *Session) recordSend(n int, elapsed time.Duration) {
	if !s.useStats {
		return
	}
	s.totalBytesSent += uint64(n)
	s.totalSendCalls++
	s.totalTimeSpent += elapsed
}

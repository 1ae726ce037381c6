// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package wire implements §6's external interface: the status-line
// table, the command-prefix matcher, and JSON escaping helpers. The
// line-framed TCP dispatcher loop that drives these types is out of
// scope (spec.md §1) and lives, thinly, in package server.
package wire

import "fmt"

// ProtocolVersion prefixes every status line (§6).
const ProtocolVersion = "WDEP/1.0"

// Status is one of the eleven wire status codes (§6).
type Status int

const (
	StatusOK                     Status = 200
	StatusUnknownFormat          Status = 208
	StatusInvalidParameters      Status = 400
	StatusCannotReadFile         Status = 403
	StatusFileNotFound           Status = 404
	StatusCommandUnknown         Status = 405
	StatusInvalidHeaders         Status = 415
	StatusCannotAllocate         Status = 500
	StatusContextNotAllocated    Status = 501
	StatusImageBufferNotAllocated Status = 502
	StatusException              Status = 600
)

// reasonPhrase holds the canonical text for each status, matching the
// literal scenarios in spec.md §8 (S5's 404, S6's 415) rather than the
// terser summaries in the §6 table.
var reasonPhrase = map[Status]string{
	StatusOK:                      "OK",
	StatusUnknownFormat:           "Unknown data format",
	StatusInvalidParameters:       "Invalid parameters",
	StatusCannotReadFile:          "Can not read file headers",
	StatusFileNotFound:            "File not found or can not be accessed",
	StatusCommandUnknown:          "Command unknown",
	StatusInvalidHeaders:          "Invalid file headers or signatures",
	StatusCannotAllocate:          "Can not allocate resources",
	StatusContextNotAllocated:     "Context not allocated",
	StatusImageBufferNotAllocated: "Image buffer not allocated",
	StatusException:               "Exception",
}

// String returns the reason phrase for s, or "Unknown status" for an
// unrecognized code.
func (s Status) String() string {
	if r, ok := reasonPhrase[s]; ok {
		return r
	}
	return "Unknown status"
}

// Line formats the CRLF-terminated status line for s, optionally with an
// extra suffix (the platform exception code for StatusException, for
// instance). Pass "" for no suffix.
func (s Status) Line(suffix string) string {
	if suffix == "" {
		return fmt.Sprintf("%s %d %s\r\n", ProtocolVersion, int(s), s.String())
	}
	return fmt.Sprintf("%s %d %s %s\r\n", ProtocolVersion, int(s), s.String(), suffix)
}

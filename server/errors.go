// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package server

import (
	"errors"

	"github.com/saferwall/wdep"
	"github.com/saferwall/wdep/wire"
)

// ErrMalformedArgs names a request payload that doesn't match its
// command's expected shape. The argument parsers in args.go signal that
// case with a false result and do not return this error.
var ErrMalformedArgs = errors.New("server: malformed command arguments")

// statusForOpenError implements §7's open-error -> status-line mapping:
// 404 not found/unreadable, 403 read error, 415 invalid headers, 500/502
// resource exhaustion.
func statusForOpenError(err error) wire.Status {
	switch {
	case errors.Is(err, pe.ErrFileNotFound):
		return wire.StatusFileNotFound
	case errors.Is(err, pe.ErrFileUnreadable):
		return wire.StatusCannotReadFile
	case errors.Is(err, pe.ErrInvalidPESize),
		errors.Is(err, pe.ErrDOSMagicNotFound),
		errors.Is(err, pe.ErrInvalidElfanewValue),
		errors.Is(err, pe.ErrImageNtSignatureNotFound),
		errors.Is(err, pe.ErrImageOS2SignatureFound),
		errors.Is(err, pe.ErrImageOS2LESignatureFound),
		errors.Is(err, pe.ErrImageVXDSignatureFound),
		errors.Is(err, pe.ErrImageTESignatureFound),
		errors.Is(err, pe.ErrImageNtOptionalHeaderMagicNotFound),
		errors.Is(err, pe.ErrImageBaseNotAligned),
		errors.Is(err, pe.ErrInvalidSectionFileAlignment),
		errors.Is(err, pe.ErrInvalidSectionLayout):
		return wire.StatusInvalidHeaders
	case errors.Is(err, pe.ErrBufferReserveFailed):
		return wire.StatusImageBufferNotAllocated
	case errors.Is(err, pe.ErrScratchExhausted):
		return wire.StatusCannotAllocate
	default:
		return wire.StatusCannotAllocate
	}
}

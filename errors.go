// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "errors"

// Errors returned while opening and validating an image.
var (
	// ErrInvalidPESize is returned when the file is smaller than the
	// smallest possible PE image.
	ErrInvalidPESize = errors.New("not a PE file, smaller than tiny PE")

	// ErrDOSMagicNotFound is returned when the DOS header magic is wrong.
	ErrDOSMagicNotFound = errors.New("DOS header magic not found")

	// ErrInvalidElfanewValue is returned when e_lfanew is zero, negative,
	// or points past the end of the file.
	ErrInvalidElfanewValue = errors.New("invalid e_lfanew value")

	// ErrImageNtSignatureNotFound is returned when the PE\0\0 signature is
	// missing at e_lfanew.
	ErrImageNtSignatureNotFound = errors.New("PE signature not found")

	// ErrImageOS2SignatureFound is returned for a decoy NE image.
	ErrImageOS2SignatureFound = errors.New("not a valid PE signature, probably an NE file")

	// ErrImageOS2LESignatureFound is returned for a decoy LE image.
	ErrImageOS2LESignatureFound = errors.New("not a valid PE signature, probably an LE file")

	// ErrImageVXDSignatureFound is returned for a decoy LX image.
	ErrImageVXDSignatureFound = errors.New("not a valid PE signature, probably an LX file")

	// ErrImageTESignatureFound is returned for a decoy TE image.
	ErrImageTESignatureFound = errors.New("not a valid PE signature, probably a TE file")

	// ErrImageNtOptionalHeaderMagicNotFound is returned when the optional
	// header magic is neither PE32 nor PE32+.
	ErrImageNtOptionalHeaderMagicNotFound = errors.New("optional header magic not found")

	// ErrImageBaseNotAligned is returned when ImageBase is not 64K-aligned.
	ErrImageBaseNotAligned = errors.New("corrupt PE file, image base not aligned to 64K")

	// ErrInvalidSectionFileAlignment is returned when SectionAlignment or
	// FileAlignment is zero.
	ErrInvalidSectionFileAlignment = errors.New("section or file alignment is zero")

	// ErrInvalidSectionLayout is returned when the section table fails the
	// strictly-ascending, no-gap-no-overlap invariant.
	ErrInvalidSectionLayout = errors.New("section virtual addresses are not contiguous and ascending")

	// ErrOutsideBoundary is returned when a read falls outside the image
	// buffer.
	ErrOutsideBoundary = errors.New("reading data outside image boundary")

	// ErrBufferReserveFailed names a failure to allocate the virtual
	// buffer of an opened image (wire status 502). OpenImage allocates
	// that buffer as a plain Go slice and does not return this error.
	ErrBufferReserveFailed = errors.New("could not reserve image buffer")

	// ErrUnsupportedRelocationType is returned when a relocation block
	// contains a type outside {ABSOLUTE, HIGHLOW, DIR64}.
	ErrUnsupportedRelocationType = errors.New("unsupported base relocation type")

	// ErrInvalidBaseRelocVA is returned when the relocation directory, or
	// the target a relocation entry patches, lies outside the image.
	ErrInvalidBaseRelocVA = errors.New("base relocation VirtualAddress is outside the image")

	// ErrInvalidBaseRelocSizeOfBlock is returned when a relocation block's
	// SizeOfBlock is too large or malformed.
	ErrInvalidBaseRelocSizeOfBlock = errors.New("invalid base relocation SizeOfBlock")

	// ErrTooManyRelocEntries is returned when a relocation directory
	// declares more entries than the configured cap.
	ErrTooManyRelocEntries = errors.New("relocation directory exceeds the configured entry cap")

	// ErrFileNotFound maps to wire status 404.
	ErrFileNotFound = errors.New("file not found or can not be accessed")

	// ErrFileUnreadable maps to wire status 403.
	ErrFileUnreadable = errors.New("can not read file headers")

	// ErrNoOpenedImage names a per-request command issued before a
	// session has an open image. The server handlers answer that case
	// with a 502 status line directly and do not return this error.
	ErrNoOpenedImage = errors.New("image buffer not allocated")

	// ErrScratchExhausted names a failed scratch allocation for a
	// response (wire status 500). No function in this module returns it;
	// statusForOpenError maps it for completeness.
	ErrScratchExhausted = errors.New("can not allocate resources")
)

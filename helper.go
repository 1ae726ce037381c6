// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"bytes"
	"encoding/binary"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Valid implements the range predicate from §4.A: true iff n fits inside
// the image and p does not fall before the image's load base or run past
// its end. Unsigned arithmetic, ordering checked before the subtraction
// to avoid wraparound.
func Valid(p, n, base, size uint32) bool {
	if n > size {
		return false
	}
	if p < base {
		return false
	}
	return p-base <= size-n
}

// valid checks that a [rva, rva+n) span fits inside the opened image's
// virtual buffer, which always starts at RVA 0.
func (img *OpenedImage) valid(rva, n uint32) bool {
	return Valid(rva, n, 0, img.size)
}

// validStruct is the §4.A VALID_STRUCT specialization for a fixed-size
// structure read through binary.Read.
func (img *OpenedImage) validStruct(rva uint32, sizeofT uint32) bool {
	return img.valid(rva, sizeofT)
}

// ReadUint64 reads a little-endian uint64 at rva, bounds-checked.
func (img *OpenedImage) ReadUint64(rva uint32) (uint64, error) {
	if !img.valid(rva, 8) {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint64(img.buf[rva:]), nil
}

// ReadUint32 reads a little-endian uint32 at rva, bounds-checked.
func (img *OpenedImage) ReadUint32(rva uint32) (uint32, error) {
	if !img.valid(rva, 4) {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint32(img.buf[rva:]), nil
}

// ReadUint16 reads a little-endian uint16 at rva, bounds-checked.
func (img *OpenedImage) ReadUint16(rva uint32) (uint16, error) {
	if !img.valid(rva, 2) {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint16(img.buf[rva:]), nil
}

// ReadUint8 reads a byte at rva, bounds-checked.
func (img *OpenedImage) ReadUint8(rva uint32) (uint8, error) {
	if !img.valid(rva, 1) {
		return 0, ErrOutsideBoundary
	}
	return img.buf[rva], nil
}

// ReadBytes returns a bounds-checked byte slice view at [rva, rva+n).
func (img *OpenedImage) ReadBytes(rva, n uint32) ([]byte, error) {
	if !img.valid(rva, n) {
		return nil, ErrOutsideBoundary
	}
	return img.buf[rva : rva+n], nil
}

// structUnpack little-endian-decodes a fixed-size struct at rva after
// validating the span against the image bounds.
func (img *OpenedImage) structUnpack(iface interface{}, rva, size uint32) error {
	if !img.valid(rva, size) {
		return ErrOutsideBoundary
	}
	return binary.Read(bytes.NewReader(img.buf[rva:rva+size]), binary.LittleEndian, iface)
}

// asciiStringAt reads a NUL-terminated ASCII string starting at rva,
// never reading past maxLen bytes or the image boundary.
func (img *OpenedImage) asciiStringAt(rva, maxLen uint32) string {
	if rva == 0 || rva >= img.size {
		return ""
	}
	end := rva + maxLen
	if end > img.size {
		end = img.size
	}
	i := rva
	for i < end && img.buf[i] != 0 {
		i++
	}
	return string(img.buf[rva:i])
}

// unicodeStringAt reads a NUL-terminated UTF-16LE string starting at rva.
func (img *OpenedImage) unicodeStringAt(rva, maxBytes uint32) string {
	if rva == 0 || rva >= img.size {
		return ""
	}
	end := rva + maxBytes
	if end > img.size {
		end = img.size
	}
	n := end - rva
	// trim to the first zero code unit
	for i := uint32(0); i+1 < n; i += 2 {
		if img.buf[rva+i] == 0 && img.buf[rva+i+1] == 0 {
			n = i
			break
		}
	}
	s, err := DecodeUTF16String(img.buf[rva : rva+n])
	if err != nil {
		return ""
	}
	return s
}

// DecodeUTF16String decodes a UTF-16LE byte slice (with or without a
// trailing NUL pair) into a Go string.
func DecodeUTF16String(b []byte) (string, error) {
	n := bytes.Index(b, []byte{0, 0})
	if n == 0 {
		return "", nil
	}
	if n < 0 {
		n = len(b)
	}
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := decoder.Bytes(b[:n])
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// stringInSlice reports whether a exists in list.
func stringInSlice(a string, list []string) bool {
	for _, b := range list {
		if b == a {
			return true
		}
	}
	return false
}

// IsValidFunctionName reports whether an imported name only uses the
// characters expected in mangled C/C++ function names.
func IsValidFunctionName(name string) bool {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_?@$()<>"
	for _, c := range name {
		if !strings.ContainsRune(charset, c) {
			return false
		}
	}
	return len(name) > 0
}

// IsPrintable reports whether s only contains printable ASCII and common
// whitespace.
func IsPrintable(s string) bool {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"0123456789!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~ \t\n\r\v\f"
	for _, c := range s {
		if !strings.ContainsRune(charset, c) {
			return false
		}
	}
	return true
}

// alignUp rounds va up to the next multiple of align (align must be a
// power of two). align == 0 is treated as "no alignment".
func alignUp(va, align uint32) uint32 {
	if align == 0 {
		return va
	}
	return (va + align - 1) &^ (align - 1)
}

// min32 returns the smaller of a and b.
func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// max32 returns the larger of a and b.
func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

// optionalHeaderChecksumOffset returns the file offset of the CheckSum
// field inside the Optional Header, derived from the fixed field layout
// of ImageOptionalHeader32/64 rather than the parsed struct, since the
// checksum must be recomputed before the rest of the image is trusted.
func optionalHeaderChecksumOffset(dos ImageDOSHeader, nt ntHeaderLayout) uint32 {
	fileHeaderSize := uint32(binary.Size(ImageFileHeader{}))
	optHeaderOffset := dos.AddressOfNewEXEHeader + 4 + fileHeaderSize
	// CheckSum sits at offset 64 in both layouts: PE32's extra BaseOfData
	// DWORD makes up for its 4-byte-narrower ImageBase.
	return optHeaderOffset + 64
}

// computeChecksum re-derives the Optional Header checksum with the
// classic one's-complement-with-end-around-carry fold (§4.B step 4):
// fold 16-bit words of the whole file, subtract the two halves of the
// stored checksum (with end-around borrow, since they were folded in
// too), then add the file length.
func computeChecksum(raw []byte, checksumOffset uint32) (rawChecksum, newChecksum uint32) {
	if int(checksumOffset)+4 <= len(raw) {
		rawChecksum = binary.LittleEndian.Uint32(raw[checksumOffset:])
	}

	var sum uint32
	n := len(raw)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(binary.LittleEndian.Uint16(raw[i:]))
		if sum > 0xFFFF {
			sum = (sum & 0xFFFF) + 1
		}
	}
	if n%2 == 1 {
		sum += uint32(raw[n-1])
		if sum > 0xFFFF {
			sum = (sum & 0xFFFF) + 1
		}
	}

	sum = subtractHalfWithBorrow(sum, rawChecksum&0xFFFF)
	sum = subtractHalfWithBorrow(sum, rawChecksum>>16)
	sum += uint32(n)

	return rawChecksum, sum
}

// subtractHalfWithBorrow subtracts half from sum using one's-complement
// end-around borrow: when the subtraction would go negative, the borrow
// wraps back in rather than producing a two's-complement negative.
func subtractHalfWithBorrow(sum, half uint32) uint32 {
	diff := int64(sum) - int64(half)
	if diff < 0 {
		diff += 0xFFFF
	}
	return uint32(diff) & 0xFFFFFFFF
}

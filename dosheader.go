// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"bytes"
	"encoding/binary"
)

// ImageDOSHeader represents the DOS stub of a PE.
type ImageDOSHeader struct {
	Magic                    uint16    `json:"magic"`
	BytesOnLastPageOfFile    uint16    `json:"bytes_on_last_page_of_file"`
	PagesInFile              uint16    `json:"pages_in_file"`
	Relocations              uint16    `json:"relocations"`
	SizeOfHeader             uint16    `json:"size_of_header"`
	MinExtraParagraphsNeeded uint16    `json:"min_extra_paragraphs_needed"`
	MaxExtraParagraphsNeeded uint16    `json:"max_extra_paragraphs_needed"`
	InitialSS                uint16    `json:"initial_ss"`
	InitialSP                uint16    `json:"initial_sp"`
	Checksum                 uint16    `json:"checksum"`
	InitialIP                uint16    `json:"initial_ip"`
	InitialCS                uint16    `json:"initial_cs"`
	AddressOfRelocationTable uint16    `json:"address_of_relocation_table"`
	OverlayNumber            uint16    `json:"overlay_number"`
	ReservedWords1           [4]uint16 `json:"reserved_words_1"`
	OEMIdentifier            uint16    `json:"oem_identifier"`
	OEMInformation           uint16    `json:"oem_information"`
	ReservedWords2           [10]uint16 `json:"reserved_words_2"`
	AddressOfNewEXEHeader    uint32    `json:"address_of_new_exe_header"`
}

// parseDOSHeader reads and validates the MS-DOS stub header at the start
// of the raw file. size is the raw file's length (the DOS header is read
// before the image buffer exists).
func parseDOSHeader(raw []byte) (ImageDOSHeader, error) {
	var hdr ImageDOSHeader
	size := uint32(binary.Size(hdr))
	if uint32(len(raw)) < size {
		return hdr, ErrInvalidPESize
	}

	if err := binary.Read(bytes.NewReader(raw[:size]), binary.LittleEndian, &hdr); err != nil {
		return hdr, err
	}

	if hdr.Magic != ImageDOSSignature && hdr.Magic != ImageDOSZMSignature {
		return hdr, ErrDOSMagicNotFound
	}

	// e_lfanew must be at least 4 (so the PE signature doesn't overlap the
	// DOS signature) and must not point past the end of the file.
	if hdr.AddressOfNewEXEHeader < 4 || hdr.AddressOfNewEXEHeader >= uint32(len(raw)) {
		return hdr, ErrInvalidElfanewValue
	}

	return hdr, nil
}

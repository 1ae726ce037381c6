// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// Section characteristics flags (Characteristics field of
// ImageSectionHeader). Only a handful are named, for reference; the
// loader does not inspect them (the dotnet/fixed flags come from the
// data directories), and every flag round-trips through the raw JSON
// field untouched.
const (
	ImageScnCntCode               = 0x00000020
	ImageScnCntInitializedData    = 0x00000040
	ImageScnCntUninitializedData  = 0x00000080
	ImageScnMemDiscardable        = 0x02000000
	ImageScnMemExecute            = 0x20000000
	ImageScnMemRead               = 0x40000000
	ImageScnMemWrite              = 0x80000000
)

// ImageSectionHeader is part of the section table; the section table is an
// array of these, one per section, immediately following the optional
// header. Each entry is exactly 40 bytes with no padding.
type ImageSectionHeader struct {
	Name                 [8]uint8 `json:"name"`
	VirtualSize          uint32   `json:"virtual_size"`
	VirtualAddress       uint32   `json:"virtual_address"`
	SizeOfRawData        uint32   `json:"size_of_raw_data"`
	PointerToRawData     uint32   `json:"pointer_to_raw_data"`
	PointerToRelocations uint32   `json:"pointer_to_relocations"`
	PointerToLineNumbers uint32   `json:"pointer_to_line_numbers"`
	NumberOfRelocations  uint16   `json:"number_of_relocations"`
	NumberOfLineNumbers  uint16   `json:"number_of_line_numbers"`
	Characteristics      uint32   `json:"characteristics"`
}

// Section is one section header plus the bookkeeping the loader needs
// while flattening the section into the virtual buffer.
type Section struct {
	Header ImageSectionHeader `json:"header"`
}

// String returns the section name, stripped of trailing NUL padding.
func (s Section) String() string {
	return strings.TrimRight(string(s.Header.Name[:]), "\x00")
}

// parseSectionTable reads the raw file's section headers starting right
// after the optional header, per §4.B step 5.
func parseSectionTable(raw []byte, nt ntHeaderLayout) ([]Section, uint32, error) {
	hdrSize := uint32(binary.Size(ImageSectionHeader{}))
	offset := nt.sectionHdrStart

	sections := make([]Section, 0, nt.numSections)
	for i := uint16(0); i < nt.numSections; i++ {
		if uint64(offset)+uint64(hdrSize) > uint64(len(raw)) {
			return nil, 0, ErrOutsideBoundary
		}
		var sh ImageSectionHeader
		if err := binary.Read(bytes.NewReader(raw[offset:offset+hdrSize]), binary.LittleEndian, &sh); err != nil {
			return nil, 0, err
		}
		sections = append(sections, Section{Header: sh})
		offset += hdrSize
	}
	return sections, offset, nil
}

// layoutSections implements §4.B step 7: walk the section table to
// derive the required virtual buffer size, enforcing the strictly
// ascending, gap-free, SectionAlignment-aligned layout invariant (§3.2).
func layoutSections(sections []Section, nt ntHeaderLayout) (uint32, error) {
	var cursor uint32
	if len(sections) == 0 {
		cursor = alignUp(max32(0, nt.sizeOfImage), PageSize)
	} else {
		cursor = sections[0].Header.VirtualAddress
	}

	for _, s := range sections {
		h := s.Header
		if h.VirtualAddress%nt.sectionAlign != 0 || h.VirtualAddress != cursor {
			return 0, ErrInvalidSectionLayout
		}
		if h.VirtualSize == 0 && h.SizeOfRawData == 0 {
			return 0, ErrInvalidSectionLayout
		}
		cursor += alignUp(max32(h.VirtualSize, h.SizeOfRawData), nt.sectionAlign)
	}

	want := alignUp(nt.sizeOfImage, PageSize)
	if cursor != want {
		return 0, ErrInvalidSectionLayout
	}
	return want, nil
}

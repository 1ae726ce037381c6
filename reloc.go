// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

// The Type field of a relocation entry indicates what kind of relocation
// should be performed. The engine only ever applies the three types the
// Windows loader still uses for x86/x64 images (§4.B step 11); any other
// type aborts the whole pass.
const (
	ImageRelBasedAbsolute = 0
	ImageRelBasedHighLow  = 3
	ImageRelBasedDir64    = 10
)

// ImageBaseRelocation is the IMAGE_BASE_RELOCATION block header. Each
// chunk of relocation data begins with one of these, followed by
// SizeOfBlock-8 bytes of packed (type<<12 | offset) entries.
type ImageBaseRelocation struct {
	VirtualAddress uint32 `json:"virtual_address"`
	SizeOfBlock    uint32 `json:"size_of_block"`
}

// Relocation is one parsed relocation block.
type Relocation struct {
	Data    ImageBaseRelocation `json:"data"`
	Entries []RelocationEntry   `json:"entries"`
}

// RelocationEntry is a single (type, offset) pair packed inside a
// relocation block.
type RelocationEntry struct {
	Type   uint8  `json:"type"`
	Offset uint16 `json:"offset"`
}

// applyRelocations implements §4.B step 11: a validate pass followed by
// an apply pass, so a malformed block never leaves the image partially
// relocated.
func (img *OpenedImage) applyRelocations() error {
	dir := img.dataDirectory(ImageDirectoryEntryBaseReloc)
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return nil
	}

	blocks, err := img.validateRelocations(dir.VirtualAddress, dir.Size)
	if err != nil {
		return err
	}

	delta := int64(img.loadBase) - int64(img.declaredImageBase)
	for _, b := range blocks {
		for _, e := range b.Entries {
			target := b.Data.VirtualAddress + uint32(e.Offset)
			switch e.Type {
			case ImageRelBasedAbsolute:
				// padding entry, nothing to apply.
			case ImageRelBasedHighLow:
				v, err := img.ReadUint32(target)
				if err != nil {
					return err
				}
				binary.LittleEndian.PutUint32(img.buf[target:], uint32(int64(v)+delta))
			case ImageRelBasedDir64:
				v, err := img.ReadUint64(target)
				if err != nil {
					return err
				}
				binary.LittleEndian.PutUint64(img.buf[target:], uint64(int64(v)+delta))
			}
		}
	}
	return nil
}

// validateRelocations is the first pass of §4.B step 11: every block
// size must be at least the header, must not run past the directory,
// must be a multiple of 2, every entry's type must be one of the
// three permitted types, and every patched target must lie inside the
// image.
func (img *OpenedImage) validateRelocations(rva, size uint32) ([]Relocation, error) {
	hdrSize := uint32(binary.Size(ImageBaseRelocation{}))
	end := rva + size
	if end < rva || end > img.size {
		return nil, ErrInvalidBaseRelocVA
	}

	var blocks []Relocation
	count := uint32(0)
	for rva < end {
		var hdr ImageBaseRelocation
		if err := img.structUnpack(&hdr, rva, hdrSize); err != nil {
			return nil, err
		}
		if hdr.SizeOfBlock < hdrSize || hdr.SizeOfBlock%2 != 0 || rva+hdr.SizeOfBlock > end {
			return nil, ErrInvalidBaseRelocSizeOfBlock
		}

		entryBytes := hdr.SizeOfBlock - hdrSize
		entryCount := entryBytes / 2
		entries := make([]RelocationEntry, 0, entryCount)
		for i := uint32(0); i < entryCount; i++ {
			count++
			if count > img.opts.MaxRelocEntriesCount {
				return nil, ErrTooManyRelocEntries
			}
			word, err := img.ReadUint16(rva + hdrSize + i*2)
			if err != nil {
				return nil, err
			}
			typ := uint8(word >> 12)
			width := uint32(0)
			switch typ {
			case ImageRelBasedAbsolute:
			case ImageRelBasedHighLow:
				width = 4
			case ImageRelBasedDir64:
				width = 8
			default:
				return nil, ErrUnsupportedRelocationType
			}
			offset := word & 0x0FFF
			if width != 0 && !img.valid(hdr.VirtualAddress+uint32(offset), width) {
				return nil, ErrInvalidBaseRelocVA
			}
			entries = append(entries, RelocationEntry{Type: typ, Offset: offset})
		}

		blocks = append(blocks, Relocation{Data: hdr, Entries: entries})
		if hdr.SizeOfBlock == 0 {
			break
		}
		rva += hdr.SizeOfBlock
	}
	return blocks, nil
}

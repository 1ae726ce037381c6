// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

const maxResourceEntries = 0x1000

// ImageResourceDirectory is the IMAGE_RESOURCE_DIRECTORY header; the
// resource tree is a table of these, one per level (type, name,
// language), each followed by its directory entries.
type ImageResourceDirectory struct {
	Characteristics      uint32 `json:"characteristics"`
	TimeDateStamp        uint32 `json:"time_date_stamp"`
	MajorVersion         uint16 `json:"major_version"`
	MinorVersion         uint16 `json:"minor_version"`
	NumberOfNamedEntries uint16 `json:"number_of_named_entries"`
	NumberOfIDEntries    uint16 `json:"number_of_id_entries"`
}

// ImageResourceDirectoryEntry identifies either a type, a name, or a
// language ID, and points to either a subdirectory or a leaf data entry.
type ImageResourceDirectoryEntry struct {
	Name         uint32 `json:"name"`
	OffsetToData uint32 `json:"offset_to_data"`
}

// ImageResourceDataEntry describes one unit of raw resource data.
type ImageResourceDataEntry struct {
	OffsetToData uint32 `json:"offset_to_data"`
	Size         uint32 `json:"size"`
	CodePage     uint32 `json:"code_page"`
	Reserved     uint32 `json:"reserved"`
}

// resourceLeaf is a (typeID, nameID, langID) -> data-entry match found
// while walking the tree, the minimum the manifest and version walkers
// (§4.C, §4.F) need.
type resourceLeaf struct {
	typeID uint32
	nameID uint32
	langID uint32
	data   ImageResourceDataEntry
}

// findResources walks the three-level resource tree (type/name/lang)
// rooted at rva and returns every leaf, the way a disk directory walk
// would. A malformed directory that loops back on itself is cut short
// rather than followed forever.
func (img *OpenedImage) findResources(rva uint32) []resourceLeaf {
	var out []resourceLeaf
	visited := map[uint32]bool{}
	img.walkResourceLevel(rva, rva, 0, 0, 0, visited, &out)
	return out
}

func (img *OpenedImage) walkResourceLevel(base, rva uint32, level int, typeID, nameID uint32, visited map[uint32]bool, out *[]resourceLeaf) {
	if visited[rva] {
		return
	}
	visited[rva] = true

	dirSize := uint32(binary.Size(ImageResourceDirectory{}))
	var dir ImageResourceDirectory
	if err := img.structUnpack(&dir, rva, dirSize); err != nil {
		return
	}

	count := uint32(dir.NumberOfNamedEntries) + uint32(dir.NumberOfIDEntries)
	if count > maxResourceEntries {
		return
	}

	entrySize := uint32(binary.Size(ImageResourceDirectoryEntry{}))
	entryRVA := rva + dirSize
	for i := uint32(0); i < count; i++ {
		var e ImageResourceDirectoryEntry
		if err := img.structUnpack(&e, entryRVA, entrySize); err != nil {
			break
		}
		entryRVA += entrySize

		id := e.Name
		if id&0x80000000 != 0 {
			id = id &^ 0x80000000 // name-string entries are keyed by offset, not relevant to type/version lookup
		}

		switch level {
		case 0:
			typeID = id
		case 1:
			nameID = id
		}

		offset := e.OffsetToData &^ 0x80000000
		if e.OffsetToData&0x80000000 != 0 {
			img.walkResourceLevel(base, base+offset, level+1, typeID, nameID, visited, out)
			continue
		}

		dataEntrySize := uint32(binary.Size(ImageResourceDataEntry{}))
		var de ImageResourceDataEntry
		if err := img.structUnpack(&de, base+offset, dataEntrySize); err != nil {
			continue
		}
		*out = append(*out, resourceLeaf{typeID: typeID, nameID: nameID, langID: id, data: de})
	}
}

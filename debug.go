// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

// Debug directory entry types the engine distinguishes; the rest pass
// through untyped since §4.C only surfaces the type number and, for
// EX_DLLCHARACTERISTICS, the extra DWORD it points to.
const (
	ImageDebugTypeExDllCharacteristics = 20
)

// ImageDebugDirectory is one IMAGE_DEBUG_DIRECTORY record. The debug
// directory is an array of these; their location and size come from the
// Debug data directory entry.
type ImageDebugDirectory struct {
	Characteristics  uint32 `json:"characteristics"`
	TimeDateStamp    uint32 `json:"time_date_stamp"`
	MajorVersion     uint16 `json:"major_version"`
	MinorVersion     uint16 `json:"minor_version"`
	Type             uint32 `json:"type"`
	SizeOfData       uint32 `json:"size_of_data"`
	AddressOfRawData uint32 `json:"address_of_raw_data"`
	PointerToRawData uint32 `json:"pointer_to_raw_data"`
}

// parseDebugDirectory implements the `DebugDirectory` array and the
// `dllcharex` field from §4.C: one bounds-checked entry per
// IMAGE_DEBUG_DIRECTORY record, plus the DWORD read from the first
// EX_DLLCHARACTERISTICS record's AddressOfRawData (validated to lie in
// [0, SizeOfImage-4) before the read, as the spec requires).
func (img *OpenedImage) parseDebugDirectory(rva, size uint32) (entries []ImageDebugDirectory, dllCharEx uint32, err error) {
	entrySize := uint32(binary.Size(ImageDebugDirectory{}))
	if entrySize == 0 || !img.valid(rva, size) {
		return nil, 0, nil
	}
	count := size / entrySize

	for i := uint32(0); i < count; i++ {
		var d ImageDebugDirectory
		if err := img.structUnpack(&d, rva+i*entrySize, entrySize); err != nil {
			break
		}
		entries = append(entries, d)

		if d.Type == ImageDebugTypeExDllCharacteristics && dllCharEx == 0 {
			if d.AddressOfRawData < img.size-4 {
				if v, err := img.ReadUint32(d.AddressOfRawData); err == nil {
					dllCharEx = v
				}
			}
		}
	}
	return entries, dllCharEx, nil
}

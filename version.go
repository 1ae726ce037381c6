// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

// RTVersion is the resource type ID of the version-information resource.
const RTVersion = 16

// vsFileInfoSignature marks the start of a VS_FIXEDFILEINFO block.
const vsFileInfoSignature uint32 = 0xFEEF04BD

// vsVersionInfoStringLen is the byte length of "VS_VERSION_INFO" encoded
// UTF-16LE with its trailing NUL, the string every VS_VERSIONINFO
// resource starts with.
const vsVersionInfoStringLen = 32 // 16 UTF-16 code units incl. NUL

// VsFixedFileInfo is language- and code-page-independent file version
// information (VS_FIXEDFILEINFO).
type VsFixedFileInfo struct {
	Signature        uint32 `json:"signature"`
	StructVersion    uint32 `json:"struct_version"`
	FileVersionMS    uint32 `json:"file_version_ms"`
	FileVersionLS    uint32 `json:"file_version_ls"`
	ProductVersionMS uint32 `json:"product_version_ms"`
	ProductVersionLS uint32 `json:"product_version_ls"`
	FileFlagsMask    uint32 `json:"file_flags_mask"`
	FileFlags        uint32 `json:"file_flags"`
	FileOS           uint32 `json:"file_os"`
	FileType         uint32 `json:"file_type"`
	FileSubtype      uint32 `json:"file_subtype"`
	FileDateMS       uint32 `json:"file_date_ms"`
	FileDateLS       uint32 `json:"file_date_ls"`
}

// findVersionInfo locates the first VS_FIXEDFILEINFO record inside the
// resource tree rooted at rva (§4.C `Version`): a type-16 resource whose
// data begins with a VS_VERSIONINFO header immediately followed, after
// the "VS_VERSION_INFO" string and 4-byte padding, by the fixed-info
// block.
func (img *OpenedImage) findVersionInfo(rva uint32) (VsFixedFileInfo, bool) {
	for _, leaf := range img.findResources(rva) {
		if leaf.typeID != RTVersion {
			continue
		}
		info, ok := img.parseFixedFileInfo(leaf.data.OffsetToData)
		if ok {
			return info, true
		}
	}
	return VsFixedFileInfo{}, false
}

func (img *OpenedImage) parseFixedFileInfo(dataRVA uint32) (VsFixedFileInfo, bool) {
	const headerLen = 6
	pos := dataRVA + headerLen + vsVersionInfoStringLen
	pos = dataRVA + alignUp(pos-dataRVA, 4)

	sig, err := img.ReadUint32(pos)
	if err != nil || sig != vsFileInfoSignature {
		return VsFixedFileInfo{}, false
	}

	var info VsFixedFileInfo
	size := uint32(binary.Size(info))
	if err := img.structUnpack(&info, pos, size); err != nil {
		return VsFixedFileInfo{}, false
	}
	return info, true
}

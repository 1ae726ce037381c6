// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// HeadersResponse is the §4.C `headers` command body.
type HeadersResponse struct {
	ImageFileHeader    ImageFileHeader     `json:"ImageFileHeader"`
	ImageOptionalHeader interface{}        `json:"ImageOptionalHeader"`
	DebugDirectory     []ImageDebugDirectory `json:"DebugDirectory"`
	Version            *VsFixedFileInfo    `json:"Version,omitempty"`
	DllCharEx          uint32              `json:"dllcharex"`
	Manifest           string              `json:"manifest,omitempty"`
}

// DataDirectoriesResponse is the `datadirs` command body: the fixed
// 16-slot (capped at 256) array, emitted without further context.
type DataDirectoriesResponse struct {
	DataDirectories []DataDirectory `json:"datadirs"`
}

const maxDataDirectories = 256

// Headers assembles the §4.C response for the currently opened image.
func (img *OpenedImage) Headers() HeadersResponse {
	resp := HeadersResponse{
		ImageFileHeader: img.NtHeader.FileHeader,
	}
	if img.is64 {
		resp.ImageOptionalHeader = img.NtHeader.OptionalHeader.(ImageOptionalHeader64)
	} else {
		resp.ImageOptionalHeader = img.NtHeader.OptionalHeader.(ImageOptionalHeader32)
	}

	debugDir := img.dataDirectory(ImageDirectoryEntryDebug)
	if debugDir.VirtualAddress != 0 {
		entries, dllCharEx, _ := img.parseDebugDirectory(debugDir.VirtualAddress, debugDir.Size)
		resp.DebugDirectory = entries
		resp.DllCharEx = dllCharEx
	}

	rsrcDir := img.dataDirectory(ImageDirectoryEntryResource)
	if rsrcDir.VirtualAddress != 0 {
		if v, ok := img.findVersionInfo(rsrcDir.VirtualAddress); ok {
			resp.Version = &v
		}
		if img.wantsManifest() {
			if m, ok := img.findManifest(rsrcDir.VirtualAddress); ok {
				resp.Manifest = m
			}
		}
	}

	return resp
}

// wantsManifest implements the §4.C gating rule: the manifest is only
// emitted for a non-native executable that is neither a DLL nor built
// for the native subsystem.
func (img *OpenedImage) wantsManifest() bool {
	const imageFileDLL = 0x2000
	const imageSubsystemNative = 1

	if uint32(img.NtHeader.FileHeader.Characteristics)&imageFileDLL != 0 {
		return false
	}
	var subsystem uint16
	if img.is64 {
		subsystem = uint16(img.NtHeader.OptionalHeader.(ImageOptionalHeader64).Subsystem)
	} else {
		subsystem = uint16(img.NtHeader.OptionalHeader.(ImageOptionalHeader32).Subsystem)
	}
	return subsystem != imageSubsystemNative
}

// DataDirectories assembles the `datadirs` response: the raw 16-slot
// table of the optional header. NumberOfRvaAndSizes is not consulted,
// so all 16 slots are always emitted; the 256-entry cap never binds.
func (img *OpenedImage) DataDirectories() DataDirectoriesResponse {
	var all [16]DataDirectory
	if img.is64 {
		all = img.NtHeader.OptionalHeader.(ImageOptionalHeader64).DataDirectory
	} else {
		all = img.NtHeader.OptionalHeader.(ImageOptionalHeader32).DataDirectory
	}
	out := make([]DataDirectory, 0, len(all))
	for i, d := range all {
		if i >= maxDataDirectories {
			break
		}
		out = append(out, d)
	}
	return DataDirectoriesResponse{DataDirectories: out}
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

const (
	maxImportNameLength = 0x200

	// missingOrdinalHint is the synthetic hint/ordinal value (0xFFFFFFFF)
	// emitted per §4.E/§4.D whenever a name could not be resolved.
	missingOrdinalHint = uint32(0xFFFFFFFF)

	// delayAttrRvaBased is bit 0 of an IMAGE_DELAYLOAD_DESCRIPTOR's
	// Attributes field; when clear, every RVA-shaped field in the
	// descriptor is instead an absolute address biased by ImageBase.
	delayAttrRvaBased = uint32(0x1)
)

// ImageImportDescriptor describes one library's standard import entry:
// the RVA of its lookup table (ILT), its bound-address table (IAT), and
// the DLL name.
type ImageImportDescriptor struct {
	OriginalFirstThunk uint32 `json:"original_first_thunk"`
	TimeDateStamp      uint32 `json:"time_date_stamp"`
	ForwarderChain     uint32 `json:"forwarder_chain"`
	Name               uint32 `json:"name"`
	FirstThunk         uint32 `json:"first_thunk"`
}

// ImageDelayImportDescriptor describes one library's delay-load import
// entry (IMAGE_DELAYLOAD_DESCRIPTOR). Attributes.RvaBased (bit 0)
// decides whether every other field below is an RVA or an absolute
// address biased by the declared ImageBase.
type ImageDelayImportDescriptor struct {
	Attributes                 uint32 `json:"attributes"`
	DllNameRVA                 uint32 `json:"dll_name_rva"`
	ModuleHandleRVA             uint32 `json:"module_handle_rva"`
	ImportAddressTableRVA       uint32 `json:"import_address_table_rva"`
	ImportNameTableRVA          uint32 `json:"import_name_table_rva"`
	BoundImportAddressTableRVA  uint32 `json:"bound_import_address_table_rva"`
	UnloadInformationTableRVA   uint32 `json:"unload_information_table_rva"`
	TimeDateStamp               uint32 `json:"time_date_stamp"`
}

// ImportFunction is one resolved thunk entry of the `imports` response.
type ImportFunction struct {
	Ordinal uint32 `json:"ordinal"`
	Hint    uint32 `json:"hint"`
	Name    string `json:"name"`
	Bound   uint64 `json:"bound"`
}

// Import is one library's import list, standard or delay-load.
type Import struct {
	Name      string           `json:"name"`
	Functions []ImportFunction `json:"functions"`
}

// ImportsResponse is the §4.E `imports` command body. Exception is a
// bitmask: 1 = the standard-import walk faulted, 2 = the delay-import
// walk faulted; each faulted walk still reports whatever the other one
// produced.
type ImportsResponse struct {
	Exception          uint32  `json:"exception"`
	ExceptionCodeStd   uint32  `json:"exception_code_std"`
	ExceptionCodeDelay uint32  `json:"exception_code_delay"`
	Libraries          []Import `json:"libraries"`
	LibrariesDelay     []Import `json:"libraries_delay"`
}

// Imports implements §4.E: the standard and delay-load import
// directories are each walked under their own fault trap (§5/§7), so a
// fault in one leaves the other's results intact.
func (img *OpenedImage) Imports() ImportsResponse {
	var resp ImportsResponse

	withFaultTrap(func() {
		dir := img.dataDirectory(ImageDirectoryEntryImport)
		if dir.VirtualAddress != 0 {
			resp.Libraries = img.walkStandardImports(dir.VirtualAddress)
		}
	}, func(code uint32) {
		resp.Exception |= 1
		resp.ExceptionCodeStd = code
	})

	withFaultTrap(func() {
		dir := img.dataDirectory(ImageDirectoryEntryDelayImport)
		if dir.VirtualAddress != 0 {
			resp.LibrariesDelay = img.walkDelayImports(dir.VirtualAddress)
		}
	}, func(code uint32) {
		resp.Exception |= 2
		resp.ExceptionCodeDelay = code
	})

	return resp
}

// walkStandardImports walks the null-terminated IMAGE_IMPORT_DESCRIPTOR
// array starting at rva, capped at MaxImportLibraries entries so a
// non-terminated array can't loop forever.
func (img *OpenedImage) walkStandardImports(rva uint32) []Import {
	var out []Import
	descSize := uint32(binary.Size(ImageImportDescriptor{}))

	for i := 0; i < MaxImportLibraries; i++ {
		var desc ImageImportDescriptor
		if err := img.structUnpack(&desc, rva, descSize); err != nil {
			break
		}
		if desc == (ImageImportDescriptor{}) {
			break
		}
		rva += descSize

		// §4.E: a bound image may have elided its ILT; fall back to the
		// IAT when OriginalFirstThunk doesn't land inside the image.
		ilt := desc.OriginalFirstThunk
		if ilt < img.sizeOfHeaders || ilt > img.size {
			ilt = desc.FirstThunk
		}

		functions := img.walkThunks(ilt, desc.FirstThunk, desc.TimeDateStamp != 0, false, 0)
		name := img.asciiStringAt(desc.Name, MaxStringLength)
		out = append(out, Import{Name: name, Functions: functions})
	}
	return out
}

// walkDelayImports walks the null-terminated IMAGE_DELAYLOAD_DESCRIPTOR
// array starting at rva.
func (img *OpenedImage) walkDelayImports(rva uint32) []Import {
	var out []Import
	descSize := uint32(binary.Size(ImageDelayImportDescriptor{}))

	for i := 0; i < MaxImportLibraries; i++ {
		var desc ImageDelayImportDescriptor
		if err := img.structUnpack(&desc, rva, descSize); err != nil {
			break
		}
		if desc == (ImageDelayImportDescriptor{}) {
			break
		}
		rva += descSize

		rvaBased := desc.Attributes&delayAttrRvaBased != 0

		dllNameRVA := desc.DllNameRVA
		ilt := desc.ImportNameTableRVA
		iat := desc.ImportAddressTableRVA
		if !rvaBased {
			dllNameRVA = rvaFromAbsolute(dllNameRVA, img.declaredImageBase)
			ilt = rvaFromAbsolute(ilt, img.declaredImageBase)
			iat = rvaFromAbsolute(iat, img.declaredImageBase)
		}

		functions := img.walkThunks(ilt, iat, desc.TimeDateStamp != 0, !rvaBased, img.declaredImageBase)
		name := img.asciiStringAt(dllNameRVA, MaxStringLength)
		out = append(out, Import{Name: name, Functions: functions})
	}
	return out
}

// rvaFromAbsolute converts an absolute address biased by imageBase back
// into an RVA, for the Attributes.RvaBased == 0 delay-import case.
func rvaFromAbsolute(addr uint32, imageBase uint64) uint32 {
	if uint64(addr) < imageBase {
		return addr
	}
	return uint32(uint64(addr) - imageBase)
}

// walkThunks resolves a name/ordinal table (ILT) in lockstep with its
// address table (IAT), capped at MaxImportThunks entries. When
// boundAvailable, the IAT slot at the same index supplies the `bound`
// address; absoluteThunks biases each thunk value back to an RVA before
// it is dereferenced (the delay-import, Attributes.RvaBased == 0 case).
func (img *OpenedImage) walkThunks(iltRVA, iatRVA uint32, boundAvailable, absoluteThunks bool, imageBase uint64) []ImportFunction {
	if iltRVA == 0 && iatRVA == 0 {
		return nil
	}

	thunkSize := uint32(4)
	ordinalFlag := uint64(0x80000000)
	if img.is64 {
		thunkSize = 8
		ordinalFlag = 0x8000000000000000
	}

	var functions []ImportFunction
	cur := iltRVA
	iatCur := iatRVA
	for i := uint32(0); i < MaxImportThunks; i++ {
		raw, err := img.readThunk(cur, thunkSize)
		if err != nil || raw == 0 {
			break
		}

		fn := ImportFunction{Hint: missingOrdinalHint}

		if raw&ordinalFlag != 0 {
			fn.Ordinal = uint32(raw & 0xFFFF)
		} else {
			addr := uint32(raw)
			if absoluteThunks {
				addr = rvaFromAbsolute(addr, imageBase)
			}
			if hint, name, ok := img.resolveImportByName(addr); ok {
				fn.Hint = uint32(hint)
				fn.Name = name
			} else {
				fn.Name = "Error resolving function name"
				fn.Ordinal = missingOrdinalHint
				fn.Hint = missingOrdinalHint
			}
		}

		if boundAvailable {
			if bound, err := img.readThunk(iatCur, thunkSize); err == nil {
				fn.Bound = bound
			}
		}

		functions = append(functions, fn)
		cur += thunkSize
		iatCur += thunkSize
	}
	return functions
}

// readThunk reads one 32- or 64-bit thunk slot, widened to uint64.
func (img *OpenedImage) readThunk(rva, thunkSize uint32) (uint64, error) {
	if thunkSize == 8 {
		return img.ReadUint64(rva)
	}
	v, err := img.ReadUint32(rva)
	return uint64(v), err
}

// resolveImportByName validates and reads an IMAGE_IMPORT_BY_NAME
// structure {WORD Hint; CHAR Name[];} at rva.
func (img *OpenedImage) resolveImportByName(rva uint32) (uint16, string, bool) {
	if !img.valid(rva, 3) {
		return 0, "", false
	}
	hint, err := img.ReadUint16(rva)
	if err != nil {
		return 0, "", false
	}
	name := img.asciiStringAt(rva+2, maxImportNameLength)
	if name == "" {
		return 0, "", false
	}
	return hint, name, true
}

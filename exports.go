// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

// ImageExportDirectory is the IMAGE_EXPORT_DIRECTORY structure at the
// head of the export table.
type ImageExportDirectory struct {
	Characteristics       uint32 `json:"characteristics"`
	TimeDateStamp         uint32 `json:"time_date_stamp"`
	MajorVersion          uint16 `json:"major_version"`
	MinorVersion          uint16 `json:"minor_version"`
	Name                  uint32 `json:"name"`
	Base                  uint32 `json:"base"`
	NumberOfFunctions     uint32 `json:"number_of_functions"`
	NumberOfNames         uint32 `json:"number_of_names"`
	AddressOfFunctions    uint32 `json:"address_of_functions"`
	AddressOfNames        uint32 `json:"address_of_names"`
	AddressOfNameOrdinals uint32 `json:"address_of_name_ordinals"`
}

// ExportFunction is one entry of the export table, by ordinal or by
// name, possibly a forwarder.
type ExportFunction struct {
	Ordinal     uint32 `json:"ordinal"`
	Hint        uint32 `json:"hint"`
	Name        string `json:"name"`
	FunctionRVA uint32 `json:"function_rva"`
	Forward     string `json:"forward"`
}

// Export is the §4.D `exports` response body for one library.
type Export struct {
	Timestamp uint32           `json:"timestamp"`
	Entries   int              `json:"entries"`
	Base      uint32           `json:"base"`
	Functions []ExportFunction `json:"functions"`
	Library   string           `json:"library"`
}

// ExportsResponse wraps the single-library export body as the wire
// format names it.
type ExportsResponse struct {
	Library Export `json:"library"`
}

const missingHint = 0xFFFFFFFF

// Exports implements §4.D under the §5/§7 fault trap: a fault anywhere
// in the walk abandons the export list but still returns a response the
// wire layer can emit.
func (img *OpenedImage) Exports() (ExportsResponse, uint32) {
	var resp ExportsResponse
	var exceptionCode uint32

	withFaultTrap(func() {
		dir := img.dataDirectory(ImageDirectoryEntryExport)
		if dir.VirtualAddress == 0 {
			return
		}
		export, err := img.parseExportDirectory(dir.VirtualAddress, dir.Size)
		if err != nil {
			return
		}
		resp.Library = export
	}, func(code uint32) {
		exceptionCode = code
	})

	return resp, exceptionCode
}

// parseExportDirectory implements §4.D.
func (img *OpenedImage) parseExportDirectory(rva, size uint32) (Export, error) {
	var dir ImageExportDirectory
	dirSize := uint32(binary.Size(dir))
	if err := img.structUnpack(&dir, rva, dirSize); err != nil {
		return Export{}, err
	}

	libName := img.asciiStringAt(dir.Name, MaxStringLength)

	out := Export{
		Timestamp: dir.TimeDateStamp,
		Base:      dir.Base,
		Library:   libName,
	}

	numFuncs := dir.NumberOfFunctions
	if numFuncs > MaxExportFunctions {
		numFuncs = MaxExportFunctions
	}
	out.Entries = int(numFuncs)

	// The name-ordinal array is probed with a single range check before
	// the inner loop; a failed probe means every export is emitted
	// without a name.
	namesAvailable := dir.NumberOfNames > 0 &&
		img.valid(dir.AddressOfNames, dir.NumberOfNames*4) &&
		img.valid(dir.AddressOfNameOrdinals, dir.NumberOfNames*2)

	// exportStart/exportEnd bound the "value falls inside the export
	// directory's own extent" forwarder test.
	exportStart := rva
	exportEnd := rva + size

	for i := uint32(0); i < numFuncs; i++ {
		funcRVA, err := img.ReadUint32(dir.AddressOfFunctions + i*4)
		if err != nil {
			break
		}
		if funcRVA == 0 {
			continue
		}

		fn := ExportFunction{
			Ordinal:     dir.Base + i,
			Hint:        missingHint,
			FunctionRVA: funcRVA,
		}

		if namesAvailable {
			if name, hint, ok := img.lookupExportName(dir, i); ok {
				fn.Name = name
				fn.Hint = hint
			}
		}

		if funcRVA >= exportStart && funcRVA < exportEnd {
			fn.Forward = img.asciiStringAt(funcRVA, MaxStringLength)
		}

		out.Functions = append(out.Functions, fn)
	}

	return out, nil
}

// lookupExportName searches the name-ordinal array for the entry whose
// ordinal equals funcIndex, returning the matching name and its position
// in the name array (the "hint").
func (img *OpenedImage) lookupExportName(dir ImageExportDirectory, funcIndex uint32) (string, uint32, bool) {
	for h := uint32(0); h < dir.NumberOfNames; h++ {
		ord, err := img.ReadUint16(dir.AddressOfNameOrdinals + h*2)
		if err != nil {
			return "", 0, false
		}
		if uint32(ord) != funcIndex {
			continue
		}
		nameRVA, err := img.ReadUint32(dir.AddressOfNames + h*4)
		if err != nil {
			return "", 0, false
		}
		return img.asciiStringAt(nameRVA, MaxStringLength), h, true
	}
	return "", 0, false
}

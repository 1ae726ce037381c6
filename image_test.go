// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// buildMinimalPE assembles a section-free PE32 (or PE32+) buffer just
// large enough to satisfy OpenImage's validation chain: a DOS header, an
// NT header with zero sections, and no data directories populated. This
// exercises the open/flatten path (§4.B) without needing a real-world
// sample binary.
func buildMinimalPE(t *testing.T, is64 bool) []byte {
	t.Helper()

	const (
		lfanew       = 64
		sizeOfImage  = PageSize
		sectionAlign = 0x1000
		fileAlign    = 0x200
		imageBase32  = 0x00400000
		imageBase64  = 0x0000000140000000
	)

	buf := make([]byte, sizeOfImage)
	w := bytes.NewBuffer(buf[:0])

	dos := ImageDOSHeader{Magic: ImageDOSSignature, AddressOfNewEXEHeader: lfanew}
	if err := binary.Write(w, binary.LittleEndian, &dos); err != nil {
		t.Fatalf("write dos header: %v", err)
	}
	for w.Len() < lfanew {
		w.WriteByte(0)
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(ImageNTSignature)); err != nil {
		t.Fatalf("write nt signature: %v", err)
	}

	optMagic := uint16(ImageNtOptionalHeader32Magic)
	if is64 {
		optMagic = ImageNtOptionalHeader64Magic
	}
	fh := ImageFileHeader{
		Machine:              ImageFileHeaderMachineType(ImageFileMachineI386),
		NumberOfSections:     0,
		SizeOfOptionalHeader: 0,
		Characteristics:      ImageFileHeaderCharacteristicsType(ImageFileExecutableImage),
	}
	if is64 {
		fh.Machine = ImageFileHeaderMachineType(ImageFileMachineAMD64)
	}
	if err := binary.Write(w, binary.LittleEndian, &fh); err != nil {
		t.Fatalf("write file header: %v", err)
	}

	if is64 {
		oh := ImageOptionalHeader64{
			Magic:               optMagic,
			ImageBase:           imageBase64,
			SectionAlignment:    sectionAlign,
			FileAlignment:       fileAlign,
			SizeOfImage:         sizeOfImage,
			SizeOfHeaders:       fileAlign,
			NumberOfRvaAndSizes: 16,
		}
		if err := binary.Write(w, binary.LittleEndian, &oh); err != nil {
			t.Fatalf("write optional header64: %v", err)
		}
	} else {
		oh := ImageOptionalHeader32{
			Magic:               optMagic,
			ImageBase:           imageBase32,
			SectionAlignment:    sectionAlign,
			FileAlignment:       fileAlign,
			SizeOfImage:         sizeOfImage,
			SizeOfHeaders:       fileAlign,
			NumberOfRvaAndSizes: 16,
		}
		if err := binary.Write(w, binary.LittleEndian, &oh); err != nil {
			t.Fatalf("write optional header32: %v", err)
		}
	}

	out := make([]byte, sizeOfImage)
	copy(out, w.Bytes())
	return out
}

func TestOpenImageFromBytesMinimalPE32(t *testing.T) {
	raw := buildMinimalPE(t, false)

	img, err := OpenImageFromBytes(raw, nil)
	if err != nil {
		t.Fatalf("OpenImageFromBytes: %v", err)
	}
	defer img.Close()

	if img.Is64() {
		t.Error("expected PE32, got PE32+")
	}
	if !img.Fixed() {
		t.Error("expected Fixed() true with no base relocation directory")
	}
	if img.DotNet() {
		t.Error("expected DotNet() false with no CLR directory")
	}
}

func TestOpenImageFromBytesMinimalPE32Plus(t *testing.T) {
	raw := buildMinimalPE(t, true)

	img, err := OpenImageFromBytes(raw, nil)
	if err != nil {
		t.Fatalf("OpenImageFromBytes: %v", err)
	}
	defer img.Close()

	if !img.Is64() {
		t.Error("expected PE32+, got PE32")
	}
}

func TestOpenImageFromBytesHeadersAndDataDirectories(t *testing.T) {
	raw := buildMinimalPE(t, false)
	img, err := OpenImageFromBytes(raw, nil)
	if err != nil {
		t.Fatalf("OpenImageFromBytes: %v", err)
	}
	defer img.Close()

	if img.NtHeader.Signature != ImageNTSignature {
		t.Errorf("headers: got signature %#x, want %#x", img.NtHeader.Signature, ImageNTSignature)
	}
	h := img.Headers()
	if uint32(h.ImageFileHeader.Characteristics)&ImageFileExecutableImage == 0 {
		t.Error("expected ImageFileExecutableImage characteristic to round-trip")
	}

	dd := img.DataDirectories()
	if len(dd.DataDirectories) != 16 {
		t.Errorf("expected 16 data directory slots, got %d", len(dd.DataDirectories))
	}
	for i, d := range dd.DataDirectories {
		if d.VirtualAddress != 0 || d.Size != 0 {
			t.Errorf("directory %d: expected zero entry, got %+v", i, d)
		}
	}
}

func TestOpenImageFromBytesEmptyImportsAndExports(t *testing.T) {
	raw := buildMinimalPE(t, false)
	img, err := OpenImageFromBytes(raw, nil)
	if err != nil {
		t.Fatalf("OpenImageFromBytes: %v", err)
	}
	defer img.Close()

	imports := img.Imports()
	if imports.Exception != 0 {
		t.Errorf("expected no exception, got %#x", imports.Exception)
	}
	if len(imports.Libraries) != 0 || len(imports.LibrariesDelay) != 0 {
		t.Error("expected no import libraries for a directory-free image")
	}

	exports, exceptionCode := img.Exports()
	if exceptionCode != 0 {
		t.Errorf("expected no exception, got %#x", exceptionCode)
	}
	if exports.Library.Library != "" {
		t.Error("expected no export library for a directory-free image")
	}
}

func TestOpenImageFromBytesRejectsBadDOSMagic(t *testing.T) {
	raw := buildMinimalPE(t, false)
	raw[0] = 'X'
	raw[1] = 'Y'

	_, err := OpenImageFromBytes(raw, nil)
	if !errors.Is(err, ErrDOSMagicNotFound) {
		t.Fatalf("expected ErrDOSMagicNotFound, got %v", err)
	}
}

func TestOpenImageFromBytesRejectsTruncated(t *testing.T) {
	_, err := OpenImageFromBytes(make([]byte, 10), nil)
	if !errors.Is(err, ErrInvalidPESize) {
		t.Fatalf("expected ErrInvalidPESize, got %v", err)
	}
}

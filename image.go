// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"encoding/binary"
	"os"
	"time"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/saferwall/wdep/internal/log"
)

// PageSize is the allocation granularity the engine rounds the virtual
// buffer up to, matching the Windows page size.
const PageSize = 0x1000

// Bitness-dependent floors for the scanned load-base search (§4.B step 8).
const (
	scanFloor32 = 0x00400000
	scanFloor64 = 0x01000000
	scanCeiling = 0x40000000
)

// Options configures OpenImage. The zero value parses headers and data
// directories without applying relocations, with a 64KiB allocation
// granularity, matching the server's default session.
type Options struct {
	// ProcessRelocs applies base relocations after flattening the image,
	// when the image carries a base-relocation directory and is not
	// marked fixed.
	ProcessRelocs bool

	// CustomBase is used as the load base verbatim instead of the value
	// chooseLoadBase would pick. Zero means "choose". No memory is
	// reserved at either address.
	CustomBase uint64

	// AllocationGranularity defaults to 0x10000 (64KiB), the Windows
	// granularity, when zero. chooseLoadBase does not read it: no
	// address scan in granularity steps takes place.
	AllocationGranularity uint32

	// MaxRelocEntriesCount caps the relocation entries parsed across the
	// whole base-relocation directory.
	MaxRelocEntriesCount uint32

	// Logger receives diagnostic output; nil installs a filtered stdout
	// logger at error level, matching the teacher's default.
	Logger log.Logger
}

func (o *Options) withDefaults() *Options {
	out := *o
	if out.AllocationGranularity == 0 {
		out.AllocationGranularity = 0x10000
	}
	if out.MaxRelocEntriesCount == 0 {
		out.MaxRelocEntriesCount = MaxDefaultRelocEntriesCount
	}
	return &out
}

// FileInfo carries the host-filesystem metadata surfaced by the `open`
// response (§4.B), independent of anything parsed from the PE structures.
type FileInfo struct {
	FileAttributes   uint32 `json:"FileAttributes"`
	CreationTimeLow  uint32 `json:"CreationTimeLow"`
	CreationTimeHigh uint32 `json:"CreationTimeHigh"`
	LastWriteLow     uint32 `json:"LastWriteTimeLow"`
	LastWriteHigh    uint32 `json:"LastWriteTimeHigh"`
	FileSizeHigh     uint32 `json:"FileSizeHigh"`
	FileSizeLow      uint32 `json:"FileSizeLow"`
}

// OpenSummary is the §4.B `open` response body.
type OpenSummary struct {
	FileInfo
	RealChecksum uint32 `json:"RealChecksum"`
	ImageFixed   bool   `json:"ImageFixed"`
	ImageDotNet  bool   `json:"ImageDotNet"`
}

// Stats accumulates the per-image send counters from §3.
type Stats struct {
	BytesSent uint64
	SendCalls uint64
	TimeSpent time.Duration
}

// OpenedImage is the central entity of §3: a flattened, RVA-addressable
// view of a PE file's headers and sections, plus the bookkeeping the
// per-request walkers need.
type OpenedImage struct {
	buf  []byte // virtual buffer, size == pageAlign(SizeOfImage)
	size uint32

	loadBase  uint64
	is64      bool
	fixed     bool
	dotnet    bool
	relocated bool

	filename  string
	directory string

	DOSHeader ImageDOSHeader
	NtHeader  ImageNtHeader
	Sections  []Section

	declaredImageBase uint64
	sizeOfHeaders     uint32
	sectionAlignment  uint32
	fileAlignment     uint32

	rawChecksum     uint32
	realChecksum    uint32
	fileInfo        FileInfo

	UseStats bool
	Stats    Stats

	opts   *Options
	logger *log.Helper
}

// Size returns the size of the virtual buffer in bytes.
func (img *OpenedImage) Size() uint32 { return img.size }

// Is64 reports whether the image is PE32+.
func (img *OpenedImage) Is64() bool { return img.is64 }

// Fixed reports whether the image has no (usable) base-relocation directory.
func (img *OpenedImage) Fixed() bool { return img.fixed }

// DotNet reports whether the image carries a populated COM descriptor
// directory.
func (img *OpenedImage) DotNet() bool { return img.dotnet }

// LoadBase is the virtual address the buffer was placed at.
func (img *OpenedImage) LoadBase() uint64 { return img.loadBase }

// FileInfo returns the host-filesystem metadata captured at open time.
func (img *OpenedImage) FileInfo() FileInfo { return img.fileInfo }

// RealChecksum returns the checksum recomputed over the file (§4.B step 4).
func (img *OpenedImage) RealChecksum() uint32 { return img.realChecksum }

// DeclaredImageBase is the ImageBase field from the optional header, used
// to bias RVA-less delay-import descriptors and to compute the relocation
// delta.
func (img *OpenedImage) DeclaredImageBase() uint64 { return img.declaredImageBase }

// dataDirectory returns the VirtualAddress/Size pair for entry, or the
// zero value when the image declares fewer directories than entry+1.
func (img *OpenedImage) dataDirectory(entry ImageDirectoryEntry) DataDirectory {
	if img.is64 {
		oh := img.NtHeader.OptionalHeader.(ImageOptionalHeader64)
		if int(entry) < len(oh.DataDirectory) {
			return oh.DataDirectory[entry]
		}
	} else {
		oh := img.NtHeader.OptionalHeader.(ImageOptionalHeader32)
		if int(entry) < len(oh.DataDirectory) {
			return oh.DataDirectory[entry]
		}
	}
	return DataDirectory{}
}

// OpenImage implements §4.B: open, validate, and map-and-flatten a PE
// file into an RVA-addressable virtual buffer at a chosen load base.
func OpenImage(path string, opts *Options) (*OpenedImage, error) {
	if opts == nil {
		opts = &Options{}
	}
	opts = opts.withDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = log.NewStdLogger(os.Stdout)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, ErrFileUnreadable
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, ErrFileUnreadable
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, ErrFileUnreadable
	}
	defer data.Unmap()
	raw := []byte(data)

	return openImageFromRaw(raw, fileInfoFromStat(st), path, logger, opts)
}

// OpenImageFromBytes implements §4.B against an in-memory buffer instead
// of a file path, for the fuzz harness (§8) and for tests that exercise
// hand-built PE buffers without touching the filesystem.
func OpenImageFromBytes(raw []byte, opts *Options) (*OpenedImage, error) {
	if opts == nil {
		opts = &Options{}
	}
	opts = opts.withDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = log.NewStdLogger(os.Stdout)
	}

	return openImageFromRaw(raw, FileInfo{}, "", logger, opts)
}

// openImageFromRaw implements §4.B steps 1-11 against an already-read
// byte slice, shared by OpenImage (file-backed) and OpenImageFromBytes
// (in-memory, for fuzzing and tests).
func openImageFromRaw(raw []byte, fi FileInfo, path string, rawLogger log.Logger, opts *Options) (*OpenedImage, error) {
	lg := log.NewHelper(log.NewFilter(rawLogger, log.FilterLevel(log.LevelError)))

	if len(raw) < TinyPESize {
		return nil, ErrInvalidPESize
	}

	dos, err := parseDOSHeader(raw)
	if err != nil {
		return nil, err
	}

	nt, err := parseNTHeader(raw, dos.AddressOfNewEXEHeader)
	if err != nil {
		return nil, err
	}

	// Step 4: recompute the header checksum over the whole file.
	rawChecksum, newChecksum := computeChecksum(raw, optionalHeaderChecksumOffset(dos, nt))

	// Step 5/7: walk the section table, validating layout and deriving
	// the required virtual size.
	sections, _, err := parseSectionTable(raw, nt)
	if err != nil {
		return nil, err
	}
	requiredSize, err := layoutSections(sections, nt)
	if err != nil {
		return nil, err
	}

	// Step 8: choose a load base and reserve the buffer.
	loadBase := chooseLoadBase(opts, nt.is64, nt.imageBase)

	buf := make([]byte, requiredSize)

	// Step 9: copy headers, then each section.
	headerSize := alignUp(max32(dos.AddressOfNewEXEHeader, nt.sizeOfHeaders), PageSize)
	if headerSize > uint32(len(raw)) {
		headerSize = uint32(len(raw))
	}
	if headerSize > requiredSize {
		headerSize = requiredSize
	}
	copy(buf[:headerSize], raw[:headerSize])

	for _, s := range sections {
		if s.Header.PointerToRawData == 0 {
			continue
		}
		fileOff := s.Header.PointerToRawData - (s.Header.PointerToRawData % nt.fileAlign)
		readSize := alignUp(min32(s.Header.VirtualSize, s.Header.SizeOfRawData), nt.fileAlign)
		if readSize == 0 {
			continue
		}
		if fileOff >= uint32(len(raw)) {
			continue
		}
		if fileOff+readSize > uint32(len(raw)) {
			readSize = uint32(len(raw)) - fileOff
		}
		dst := s.Header.VirtualAddress
		if dst+readSize > uint32(len(buf)) {
			readSize = uint32(len(buf)) - dst
		}
		copy(buf[dst:dst+readSize], raw[fileOff:fileOff+readSize])
	}

	img := &OpenedImage{
		buf:               buf,
		size:              uint32(len(buf)),
		loadBase:          loadBase,
		is64:              nt.is64,
		filename:          path,
		DOSHeader:         dos,
		NtHeader:          nt.header,
		Sections:          sections,
		declaredImageBase: nt.imageBase,
		sizeOfHeaders:     nt.sizeOfHeaders,
		sectionAlignment:  nt.sectionAlign,
		fileAlignment:     nt.fileAlign,
		rawChecksum:       rawChecksum,
		realChecksum:      newChecksum,
		opts:              opts,
		logger:            lg,
	}

	img.fileInfo = fi

	// Step 10: detect `fixed` and `dotnet`.
	relocDir := img.dataDirectory(ImageDirectoryEntryBaseReloc)
	img.fixed = relocDir.VirtualAddress == 0 || relocDir.Size < uint32(binary.Size(ImageBaseRelocation{}))

	clrDir := img.dataDirectory(ImageDirectoryEntryCLR)
	img.dotnet = clrDir.VirtualAddress != 0 && clrDir.Size != 0

	// Step 11: process relocations, best-effort.
	if opts.ProcessRelocs && !img.fixed {
		if err := img.applyRelocations(); err != nil {
			lg.Warnf("base relocation pass failed for %s: %v", path, err)
		} else {
			img.relocated = true
		}
	}

	return img, nil
}

// Close releases whatever resources the opened image holds. The virtual
// buffer is a plain Go slice, so there is nothing left to release beyond
// letting the garbage collector reclaim it; Close exists so callers have
// a single, symmetric lifecycle hook regardless of backing store.
func (img *OpenedImage) Close() error { return nil }

func fileInfoFromStat(st os.FileInfo) FileInfo {
	size := uint64(st.Size())
	mtime := st.ModTime()
	return FileInfo{
		FileAttributes:   attributesFromMode(st),
		CreationTimeLow:  uint32(mtime.UnixNano() & 0xFFFFFFFF),
		CreationTimeHigh: uint32(mtime.UnixNano() >> 32),
		LastWriteLow:     uint32(mtime.UnixNano() & 0xFFFFFFFF),
		LastWriteHigh:    uint32(mtime.UnixNano() >> 32),
		FileSizeLow:      uint32(size & 0xFFFFFFFF),
		FileSizeHigh:     uint32(size >> 32),
	}
}

func attributesFromMode(st os.FileInfo) uint32 {
	const fileAttributeNormal = 0x80
	const fileAttributeReadonly = 0x1
	if st.Mode()&0o222 == 0 {
		return fileAttributeReadonly
	}
	return fileAttributeNormal
}

// chooseLoadBase implements §4.B step 8. A real Windows loader reserves
// the buffer at the chosen address; this engine only needs the numeric
// value for bias arithmetic (delay-import RVA-vs-absolute translation,
// relocation deltas), so no OS address space is probed: the declared
// ImageBase is kept when it lies inside the bitness-dependent search
// window, and the window floor is used otherwise.
func chooseLoadBase(opts *Options, is64 bool, declaredBase uint64) uint64 {
	if opts.CustomBase != 0 {
		return opts.CustomBase
	}
	floor := uint64(scanFloor32)
	if is64 {
		floor = scanFloor64
	}
	if declaredBase >= floor && declaredBase < scanCeiling {
		return declaredBase
	}
	return floor
}

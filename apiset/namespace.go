// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package apiset

import (
	"encoding/binary"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Version names the three incompatible on-disk ApiSet namespace schemas.
type Version uint32

const (
	VersionUnknown Version = 0
	V2             Version = 2
	V4             Version = 4
	V6             Version = 6
)

func (v Version) String() string {
	switch v {
	case V2:
		return "2"
	case V4:
		return "4"
	case V6:
		return "6"
	default:
		return "unknown"
	}
}

// valueEntry is one host-library candidate for a contract: index 0 is
// the default host, indices 1..n-1 are alternates sorted by alias for
// the parent-biased binary search.
type valueEntry struct {
	alias string // host-selection key, empty for index 0
	host  string // empty means the entry is an "empty mapping" (NOT_HOSTED)
}

// contractEntry is one namespace entry: a lookup key plus its sorted (or
// hash-located) value list.
type contractEntry struct {
	key    string // comparison/lookup key (post version-strip, prefix-stripped for V2/V4)
	hash   uint32 // populated for V6 only
	values []valueEntry
}

// Namespace is a parsed ApiSet namespace blob (§3 ApiSetNamespace): a
// tagged variant over the V2, V4 and V6 on-disk layouts, reduced to one
// common shape (contractEntry/valueEntry) that the shared resolve logic
// below (Resolve, selectHost) operates over regardless of schema.
type Namespace struct {
	version      Version
	entries      []contractEntry
	v6Multiplier uint32 // HashMultiplier, V6 only
}

// Parse decodes raw as an ApiSet namespace blob. The first DWORD of
// every schema is its version tag.
func Parse(raw []byte) (*Namespace, error) {
	if len(raw) < 4 {
		return nil, ErrTruncated
	}
	switch Version(binary.LittleEndian.Uint32(raw[0:4])) {
	case V2:
		return parseV2(raw)
	case V4:
		return parseV4(raw)
	case V6:
		return parseV6(raw)
	default:
		return nil, ErrUnsupportedVersion
	}
}

// Version reports which on-disk schema this namespace was parsed from.
func (n *Namespace) Version() Version { return n.version }

// Count returns the declared number of contract entries.
func (n *Namespace) Count() int { return len(n.entries) }

// readerAt is the shared bounds-checked byte reader every schema parser
// uses; offsets are always relative to the namespace blob's own base,
// per §3's "absolute offsets from the namespace base" (V2) / "namespace-
// relative offsets" (V4/V6) distinction, which the per-schema parser
// resolves before calling in here.
type readerAt struct {
	raw []byte
}

func (r readerAt) bytes(off, n uint32) ([]byte, error) {
	if uint64(off)+uint64(n) > uint64(len(r.raw)) {
		return nil, ErrTruncated
	}
	return r.raw[off : off+n], nil
}

func (r readerAt) u32(off uint32) (uint32, error) {
	b, err := r.bytes(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// utf16At decodes a UTF-16LE string of byteLen bytes at off. ApiSet
// namespace strings carry no terminating NUL; the caller already knows
// the exact byte length from the entry's *Length field.
func (r readerAt) utf16At(off, byteLen uint32) (string, error) {
	b, err := r.bytes(off, byteLen)
	if err != nil {
		return "", err
	}
	return decodeUTF16(b)
}

// decodeUTF16 decodes a UTF-16LE byte slice with no assumption of NUL
// termination, the same golang.org/x/text/encoding/unicode codec the
// root engine's DecodeUTF16String uses for its own wide-character
// fields.
func decodeUTF16(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := decoder.Bytes(b)
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// normalizeContract implements §4.G's shared normalization: validate the
// 4-byte-uppercased prefix, strip the trailing "-<digit>-<digit>"-style
// version suffix (in practice just the final "-N" component, since real
// namespace entries themselves retain one version component), and, for
// V2/V4, additionally strip the 4-character "api-"/"ext-" prefix.
func normalizeContract(name string, stripPrefix bool) (string, bool) {
	if len(name) < 4 {
		return "", false
	}
	prefix := strings.ToUpper(name[:4])
	if prefix != "API-" && prefix != "EXT-" {
		return "", false
	}

	stripped, ok := stripVersionSuffix(name)
	if !ok {
		return "", false
	}

	if stripPrefix {
		if len(stripped) < 4 {
			return "", false
		}
		stripped = stripped[4:]
	}
	return stripped, true
}

// stripVersionSuffix removes the trailing "-<version>" component by
// locating the rightmost '-'. Mirrors apiset.c's right-to-left scan:
// that loop aborts (no match) if it exhausts the buffer (<=1 char left)
// before finding a hyphen, which is exactly what "no hyphen found"
// detects here.
func stripVersionSuffix(name string) (string, bool) {
	if len(name) <= 1 {
		return "", false
	}
	idx := strings.LastIndexByte(name, '-')
	if idx < 0 {
		return "", false
	}
	return name[:idx], true
}

// Resolve implements §4.G end to end: normalize the contract name,
// locate its entry (binary search by key for V2/V4, by hash then
// string-compare for V6), then apply the shared host-selection rule.
func (n *Namespace) Resolve(contract, parent string) (string, Status, error) {
	stripPrefix := n.version == V2 || n.version == V4
	key, ok := normalizeContract(contract, stripPrefix)
	if !ok {
		return "", StatusNotPresent, nil
	}

	var entry *contractEntry
	if n.version == V6 {
		entry = n.findByHash(key)
	} else {
		entry = n.findByKey(key)
	}
	if entry == nil {
		return "", StatusNotPresent, nil
	}

	val := selectHost(entry.values, parent)
	if val == nil || val.host == "" {
		return "", StatusNotHosted, nil
	}
	return val.host, StatusResolved, nil
}

// findByKey binary-searches entries sorted by key, case-insensitive
// (V2/V4 path).
func (n *Namespace) findByKey(key string) *contractEntry {
	lo, hi := 0, len(n.entries)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		c := compareFold(key, n.entries[mid].key)
		switch {
		case c < 0:
			hi = mid - 1
		case c > 0:
			lo = mid + 1
		default:
			return &n.entries[mid]
		}
	}
	return nil
}

// findByHash binary-searches entries sorted by hash, then confirms the
// hit with a case-insensitive string compare (V6 path, §4.G).
func (n *Namespace) findByHash(key string) *contractEntry {
	h := hash(key, n.v6Multiplier)
	lo, hi := 0, len(n.entries)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case h < n.entries[mid].hash:
			hi = mid - 1
		case h > n.entries[mid].hash:
			lo = mid + 1
		default:
			if compareFold(key, n.entries[mid].key) == 0 {
				return &n.entries[mid]
			}
			return nil
		}
	}
	return nil
}

// selectHost implements §4.G's host-selection rule, identical across all
// three schemas once reduced to this common value-list shape:
//   - one value: return it unconditionally.
//   - a parent name is given: binary-search indices 1..n-1 by alias,
//     falling back to index 0 on a miss.
//   - otherwise: index 0.
func selectHost(values []valueEntry, parent string) *valueEntry {
	if len(values) == 0 {
		return nil
	}
	if len(values) == 1 {
		return &values[0]
	}
	if parent != "" {
		if v := searchAlias(values, parent); v != nil {
			return v
		}
	}
	return &values[0]
}

// searchAlias binary-searches values[1:] by alias, case-insensitive.
func searchAlias(values []valueEntry, parent string) *valueEntry {
	lo, hi := 1, len(values)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		c := compareFold(parent, values[mid].alias)
		switch {
		case c < 0:
			hi = mid - 1
		case c > 0:
			lo = mid + 1
		default:
			return &values[mid]
		}
	}
	return nil
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package apiset

// V6 on-disk layout (Windows 10), per §3's "hash-indexed array; each
// contract is located by a case-folded multiplicative hash, then
// confirmed by string compare":
//
//	struct ApiSetNamespaceV6 {
//	    DWORD Version; // 6
//	    DWORD Size;
//	    DWORD Flags;
//	    DWORD Count;
//	    DWORD EntryOffset;
//	    DWORD HashOffset;
//	    DWORD HashFactor; // HashMultiplier
//	};
//	struct ApiSetHashEntryV6 { DWORD Hash; DWORD Index; }; // sorted by Hash
//	struct ApiSetNamespaceEntryV6 {
//	    DWORD Flags;
//	    DWORD NameOffset, NameLength;   // namespace-relative, full name incl. version
//	    DWORD HashedLength;             // length of the region that was hashed/compared
//	    DWORD ValueOffset, ValueCount;  // namespace-relative, to ApiSetValueEntryV6[ValueCount]
//	};
//	struct ApiSetValueEntryV6 {
//	    DWORD Flags;
//	    DWORD NameOffset, NameLength;   // alias, namespace-relative
//	    DWORD ValueOffset, ValueLength; // host, namespace-relative
//	};
const (
	v6NamespaceHeaderSize = 28
	v6HashEntrySize       = 8
	v6EntrySize           = 24
	v6ValueEntrySize      = 20
)

func parseV6(raw []byte) (*Namespace, error) {
	r := readerAt{raw: raw}

	count, err := r.u32(12)
	if err != nil {
		return nil, err
	}
	entryOff, err := r.u32(16)
	if err != nil {
		return nil, err
	}
	hashOff, err := r.u32(20)
	if err != nil {
		return nil, err
	}
	multiplier, err := r.u32(24)
	if err != nil {
		return nil, err
	}

	ns := &Namespace{version: V6, entries: make([]contractEntry, 0, count), v6Multiplier: multiplier}

	// The hash table is already sorted by Hash ascending (§3 invariant
	// 1), so entries are appended in that same order and findByHash's
	// binary search is valid against them directly.
	for i := uint32(0); i < count; i++ {
		hashBase := hashOff + i*v6HashEntrySize
		h, err := r.u32(hashBase)
		if err != nil {
			return nil, err
		}
		index, err := r.u32(hashBase + 4)
		if err != nil {
			return nil, err
		}

		entryBase := entryOff + index*v6EntrySize
		nameOff, err := r.u32(entryBase + 4)
		if err != nil {
			return nil, err
		}
		hashedLen, err := r.u32(entryBase + 12)
		if err != nil {
			return nil, err
		}
		valOff, err := r.u32(entryBase + 16)
		if err != nil {
			return nil, err
		}
		valCount, err := r.u32(entryBase + 20)
		if err != nil {
			return nil, err
		}

		name, err := r.utf16At(nameOff, hashedLen)
		if err != nil {
			return nil, err
		}

		values, err := parseV6Values(r, valOff, valCount)
		if err != nil {
			return nil, err
		}

		ns.entries = append(ns.entries, contractEntry{key: name, hash: h, values: values})
	}

	return ns, nil
}

func parseV6Values(r readerAt, off, count uint32) ([]valueEntry, error) {
	values := make([]valueEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		base := off + i*v6ValueEntrySize
		aliasOff, err := r.u32(base + 4)
		if err != nil {
			return nil, err
		}
		aliasLen, err := r.u32(base + 8)
		if err != nil {
			return nil, err
		}
		valOff, err := r.u32(base + 12)
		if err != nil {
			return nil, err
		}
		valLen, err := r.u32(base + 16)
		if err != nil {
			return nil, err
		}

		var alias, host string
		if aliasLen > 0 {
			alias, err = r.utf16At(aliasOff, aliasLen)
			if err != nil {
				return nil, err
			}
		}
		if valLen > 0 {
			host, err = r.utf16At(valOff, valLen)
			if err != nil {
				return nil, err
			}
		}

		values = append(values, valueEntry{alias: alias, host: host})
	}
	return values, nil
}

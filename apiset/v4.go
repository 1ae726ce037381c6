// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package apiset

// V4 on-disk layout (Windows 8/8.1), per §3's "extra per-contract value-
// array indirection; strings referenced by namespace-relative offsets":
//
//	struct ApiSetNamespaceArrayV4 {
//	    DWORD Version; // 4
//	    DWORD Size;
//	    DWORD Flags;
//	    DWORD Count;
//	    ApiSetNamespaceEntryV4 Array[Count];
//	};
//	struct ApiSetNamespaceEntryV4 {
//	    DWORD NameOffset, NameLength;   // namespace-relative
//	    DWORD AliasOffset, AliasLength; // hashed-prefix alias, unused here
//	    DWORD DataOffset;               // namespace-relative, to ApiSetValueArrayV4
//	};
//	struct ApiSetValueArrayV4 { DWORD Count; ApiSetValueEntryV4 Array[Count]; };
//	struct ApiSetValueEntryV4 {
//	    DWORD NameOffset, NameLength;   // alias, namespace-relative
//	    DWORD ValueOffset, ValueLength; // host, namespace-relative
//	};
const (
	v4NamespaceHeaderSize  = 16
	v4EntrySize            = 20
	v4ValueArrayHeaderSize = 4
	v4ValueEntrySize       = 16
)

func parseV4(raw []byte) (*Namespace, error) {
	r := readerAt{raw: raw}

	count, err := r.u32(12)
	if err != nil {
		return nil, err
	}

	ns := &Namespace{version: V4, entries: make([]contractEntry, 0, count)}

	for i := uint32(0); i < count; i++ {
		base := v4NamespaceHeaderSize + i*v4EntrySize
		nameOff, err := r.u32(base)
		if err != nil {
			return nil, err
		}
		nameLen, err := r.u32(base + 4)
		if err != nil {
			return nil, err
		}
		dataOff, err := r.u32(base + 16)
		if err != nil {
			return nil, err
		}

		name, err := r.utf16At(nameOff, nameLen)
		if err != nil {
			return nil, err
		}

		values, err := parseV4ValueArray(r, dataOff)
		if err != nil {
			return nil, err
		}

		ns.entries = append(ns.entries, contractEntry{key: name, values: values})
	}

	return ns, nil
}

func parseV4ValueArray(r readerAt, off uint32) ([]valueEntry, error) {
	count, err := r.u32(off)
	if err != nil {
		return nil, err
	}

	values := make([]valueEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		base := off + v4ValueArrayHeaderSize + i*v4ValueEntrySize
		aliasOff, err := r.u32(base)
		if err != nil {
			return nil, err
		}
		aliasLen, err := r.u32(base + 4)
		if err != nil {
			return nil, err
		}
		valOff, err := r.u32(base + 8)
		if err != nil {
			return nil, err
		}
		valLen, err := r.u32(base + 12)
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

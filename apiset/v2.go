// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package apiset

// V2 on-disk layout (Windows 7):
//
//	struct ApiSetNamespaceV2 {
//	    DWORD Version; // 2
//	    DWORD Count;
//	    ApiSetNamespaceEntryV2 Array[Count];
//	};
//	struct ApiSetNamespaceEntryV2 {
//	    DWORD NameOffset; // absolute, from namespace base
//	    DWORD NameLength; // bytes
//	    DWORD DataOffset; // absolute, to an ApiSetValueArrayV2
//	};
//	struct ApiSetValueArrayV2 { DWORD Count; ApiSetValueEntryV2 Array[Count]; };
//	struct ApiSetValueEntryV2 {
//	    DWORD NameOffset, NameLength;   // alias, absolute
//	    DWORD ValueOffset, ValueLength; // host name, absolute
//	};
//
// Every offset in V2 is absolute from the namespace base, per §3's
// description of the schema and apiset.c's ApiSetResolveToHostV2.
const (
	v2NamespaceHeaderSize = 8
	v2EntrySize           = 12
	v2ValueArrayHeaderSize = 4
	v2ValueEntrySize      = 16
)

func parseV2(raw []byte) (*Namespace, error) {
	r := readerAt{raw: raw}

	count, err := r.u32(4)
	if err != nil {
		return nil, err
	}

	ns := &Namespace{version: V2, entries: make([]contractEntry, 0, count)}

	for i := uint32(0); i < count; i++ {
		base := v2NamespaceHeaderSize + i*v2EntrySize
		nameOff, err := r.u32(base)
		if err != nil {
			return nil, err
		}
		nameLen, err := r.u32(base + 4)
		if err != nil {
			return nil, err
		}
		dataOff, err := r.u32(base + 8)
		if err != nil {
			return nil, err
		}

		name, err := r.utf16At(nameOff, nameLen)
		if err != nil {
			return nil, err
		}

		values, err := parseV2ValueArray(r, dataOff)
		if err != nil {
			return nil, err
		}

		ns.entries = append(ns.entries, contractEntry{key: name, values: values})
	}

	return ns, nil
}

func parseV2ValueArray(r readerAt, off uint32) ([]valueEntry, error) {
	count, err := r.u32(off)
	if err != nil {
		return nil, err
	}

	values := make([]valueEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		base := off + v2ValueArrayHeaderSize + i*v2ValueEntrySize
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

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package apiset

import "testing"

// buildV2 assembles a single-contract V2 namespace blob with one value.
func buildV2(t *testing.T, key, host string) []byte {
	t.Helper()

	keyBytes := utf16Bytes(key)
	hostBytes := utf16Bytes(host)

	const headerSize = v2NamespaceHeaderSize
	entryOff := uint32(headerSize)
	valueArrayOff := entryOff + v2EntrySize
	nameOff := valueArrayOff + v2ValueArrayHeaderSize + v2ValueEntrySize
	hostOff := nameOff + uint32(len(keyBytes))

	buf := make([]byte, hostOff+uint32(len(hostBytes)))
	putU32(buf, 0, uint32(V2))
	putU32(buf, 4, 1) // Count

	putU32(buf, entryOff, nameOff)
	putU32(buf, entryOff+4, uint32(len(keyBytes)))
	putU32(buf, entryOff+8, valueArrayOff)

	putU32(buf, valueArrayOff, 1) // value Count
	putU32(buf, valueArrayOff+v2ValueArrayHeaderSize, 0)
	putU32(buf, valueArrayOff+v2ValueArrayHeaderSize+4, 0)
	putU32(buf, valueArrayOff+v2ValueArrayHeaderSize+8, hostOff)
	putU32(buf, valueArrayOff+v2ValueArrayHeaderSize+12, uint32(len(hostBytes)))

	copy(buf[nameOff:], keyBytes)
	copy(buf[hostOff:], hostBytes)
	return buf
}

func TestParseV2Resolve(t *testing.T) {
	raw := buildV2(t, "ms-win-core-com-l2-1", "combase.dll")
	ns, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ns.Version() != V2 {
		t.Fatalf("Version = %v, want V2", ns.Version())
	}

	host, status, err := ns.Resolve("api-ms-win-core-com-l2-1-1", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if status != StatusResolved || host != "combase.dll" {
		t.Fatalf("Resolve = (%q, %v), want combase.dll", host, status)
	}
}

// buildV4 assembles a single-contract V4 namespace blob with one value.
func buildV4(t *testing.T, key, host string) []byte {
	t.Helper()

	keyBytes := utf16Bytes(key)
	hostBytes := utf16Bytes(host)

	const headerSize = v4NamespaceHeaderSize
	entryOff := uint32(headerSize)
	valueArrayOff := entryOff + v4EntrySize
	nameOff := valueArrayOff + v4ValueArrayHeaderSize + v4ValueEntrySize
	hostOff := nameOff + uint32(len(keyBytes))

	buf := make([]byte, hostOff+uint32(len(hostBytes)))
	putU32(buf, 0, uint32(V4))
	putU32(buf, 12, 1) // Count

	putU32(buf, entryOff, nameOff)
	putU32(buf, entryOff+4, uint32(len(keyBytes)))
	putU32(buf, entryOff+16, valueArrayOff)

	putU32(buf, valueArrayOff, 1)
	putU32(buf, valueArrayOff+v4ValueArrayHeaderSize, 0)
	putU32(buf, valueArrayOff+v4ValueArrayHeaderSize+4, 0)
	putU32(buf, valueArrayOff+v4ValueArrayHeaderSize+8, hostOff)
	putU32(buf, valueArrayOff+v4ValueArrayHeaderSize+12, uint32(len(hostBytes)))

	copy(buf[nameOff:], keyBytes)
	copy(buf[hostOff:], hostBytes)
	return buf
}

func TestParseV4Resolve(t *testing.T) {
	raw := buildV4(t, "ms-win-core-com-l2-1", "combase.dll")
	ns, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ns.Version() != V4 {
		t.Fatalf("Version = %v, want V4", ns.Version())
	}

	host, status, err := ns.Resolve("api-ms-win-core-com-l2-1-1", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if status != StatusResolved || host != "combase.dll" {
		t.Fatalf("Resolve = (%q, %v), want combase.dll", host, status)
	}
}

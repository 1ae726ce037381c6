// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package apiset

import (
	"encoding/binary"
	"testing"
	gounicode "unicode/utf16"
)

// utf16Bytes encodes s as UTF-16LE, with no terminating NUL, matching
// the on-disk representation every *Length field in the three schemas
// measures.
func utf16Bytes(s string) []byte {
	units := gounicode.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[i*2:], u)
	}
	return out
}

func putU32(buf []byte, off uint32, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
}

// buildV6 assembles a single-contract V6 namespace blob: header, one
// hash entry, one namespace entry, and a value array of len(hosts)
// entries (index 0 default, rest sorted by alias).
func buildV6(t *testing.T, contractKey string, hostMultiplier uint32, values []valueEntry) []byte {
	t.Helper()

	const headerSize = v6NamespaceHeaderSize
	hashOff := uint32(headerSize)
	entryOff := hashOff + v6HashEntrySize
	valuesOff := entryOff + v6EntrySize

	keyBytes := utf16Bytes(contractKey)
	nameOff := valuesOff + uint32(len(values))*v6ValueEntrySize

	// lay out alias/host strings after the name.
	stringsOff := nameOff + uint32(len(keyBytes))
	var stringBlobs [][]byte
	valOffsets := make([]uint32, len(values))
	aliasOffsets := make([]uint32, len(values))
	cursor := stringsOff
	for i, v := range values {
		ab := utf16Bytes(v.alias)
		aliasOffsets[i] = cursor
		stringBlobs = append(stringBlobs, ab)
		cursor += uint32(len(ab))

		hb := utf16Bytes(v.host)
		valOffsets[i] = cursor
		stringBlobs = append(stringBlobs, hb)
		cursor += uint32(len(hb))
	}

	buf := make([]byte, cursor)
	putU32(buf, 0, uint32(V6))
	putU32(buf, 12, 1) // Count
	putU32(buf, 16, entryOff)
	putU32(buf, 20, hashOff)
	putU32(buf, 24, hostMultiplier)

	h := hash(contractKey, hostMultiplier)
	putU32(buf, hashOff, h)
	putU32(buf, hashOff+4, 0) // Index 0

	putU32(buf, entryOff+4, nameOff)
	putU32(buf, entryOff+8, uint32(len(keyBytes)))
	putU32(buf, entryOff+12, uint32(len(keyBytes)))
	putU32(buf, entryOff+16, valuesOff)
	putU32(buf, entryOff+20, uint32(len(values)))

	copy(buf[nameOff:], keyBytes)

	for i, v := range values {
		base := valuesOff + uint32(i)*v6ValueEntrySize
		ab := utf16Bytes(v.alias)
		hb := utf16Bytes(v.host)
		putU32(buf, base+4, aliasOffsets[i])
		putU32(buf, base+8, uint32(len(ab)))
		putU32(buf, base+12, valOffsets[i])
		putU32(buf, base+16, uint32(len(hb)))
	}
	for i, blob := range stringBlobs {
		_ = i
		off := stringsOff
		copy(buf[off:], blob)
		stringsOff += uint32(len(blob))
	}

	return buf
}

func TestParseV6SingleHost(t *testing.T) {
	raw := buildV6(t, "api-ms-win-core-com-l2-1", 31, []valueEntry{
		{alias: "", host: "combase.dll"},
	})

	ns, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ns.Version() != V6 {
		t.Fatalf("Version = %v, want V6", ns.Version())
	}

	host, status, err := ns.Resolve("api-ms-win-core-com-l2-1-1", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if status != StatusResolved || host != "combase.dll" {
		t.Fatalf("Resolve = (%q, %v), want (combase.dll, StatusResolved)", host, status)
	}
}

func TestParseV6NotPresent(t *testing.T) {
	raw := buildV6(t, "api-ms-win-core-com-l2-1", 31, []valueEntry{
		{alias: "", host: "combase.dll"},
	})
	ns, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	_, status, err := ns.Resolve("hui-ms-win-core-app-l1-2-3", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if status != StatusNotPresent {
		t.Fatalf("status = %v, want NOT_PRESENT", status)
	}
}

func TestParseV6NotHosted(t *testing.T) {
	raw := buildV6(t, "api-ms-win-core-empty-l1-1", 31, []valueEntry{
		{alias: "", host: ""},
	})
	ns, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	_, status, err := ns.Resolve("api-ms-win-core-empty-l1-1-0", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if status != StatusNotHosted {
		t.Fatalf("status = %v, want NOT_HOSTED", status)
	}
}

func TestParseV6ParentBias(t *testing.T) {
	raw := buildV6(t, "api-ms-win-core-rtlsupport-l1-2", 31, []valueEntry{
		{alias: "", host: "ntdll.dll"},
		{alias: "kernelbase.dll", host: "kernelbase-backed.dll"},
	})
	ns, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	host, status, err := ns.Resolve("api-ms-win-core-rtlsupport-l1-2-0", "kernelbase.dll")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if status != StatusResolved || host != "kernelbase-backed.dll" {
		t.Fatalf("Resolve(parent) = (%q, %v), want kernelbase-backed.dll", host, status)
	}

	host, status, err = ns.Resolve("api-ms-win-core-rtlsupport-l1-2-0", "unrelated.exe")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if status != StatusResolved || host != "ntdll.dll" {
		t.Fatalf("Resolve(miss) = (%q, %v), want ntdll.dll fallback", host, status)
	}
}

func TestStripVersionSuffix(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"api-ms-win-core-com-l2-1-1", "api-ms-win-core-com-l2-1", true},
		{"a", "", false},
		{"", "", false},
		{"noHyphenAtAll", "", false},
	}
	for _, c := range cases {
		got, ok := stripVersionSuffix(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("stripVersionSuffix(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package knowndlls

import "testing"

func TestBuildAndBucket(t *testing.T) {
	loader := StaticLoader{
		Entries32: []Entry{{Name: "kernel32.dll", Directory: `\KnownDlls`}},
		Entries64: []Entry{
			{Name: "kernel32.dll", Directory: `\KnownDlls`},
			{Name: "ntdll.dll", Directory: `\KnownDlls`},
		},
	}

	lists, err := Build(loader)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	b32, ok := lists.Bucket(32)
	if !ok || b32.Len() != 1 {
		t.Fatalf("Bucket(32) = (%v, %v), want 1 entry", b32, ok)
	}
	b64, ok := lists.Bucket(64)
	if !ok || b64.Len() != 2 {
		t.Fatalf("Bucket(64) len = %d, want 2", b64.Len())
	}

	if _, ok := lists.Bucket(16); ok {
		t.Fatalf("Bucket(16) should not exist")
	}

	e, ok := b64.Lookup("ntdll.dll")
	if !ok || e.Directory != `\KnownDlls` {
		t.Fatalf("Lookup(ntdll.dll) = (%+v, %v)", e, ok)
	}

	if _, ok := b64.Lookup("missing.dll"); ok {
		t.Fatalf("Lookup(missing.dll) should miss")
	}

	entries := b64.Entries()
	if len(entries) != 2 || entries[0].Name != "kernel32.dll" {
		t.Fatalf("Entries() = %+v, want enumeration order preserved", entries)
	}
}

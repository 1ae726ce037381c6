// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package knowndlls

import (
	"encoding/json"
	"io"
	"os"
)

// Loader enumerates the two KnownDlls sets. The real implementation
// would walk the host OS's `\KnownDlls`/`\KnownDlls32` object
// directories; that enumeration is out of scope per spec.md §1, so this
// package only defines the seam.
type Loader interface {
	Load() (entries32, entries64 []Entry, err error)
}

// StaticLoader is a Loader holding pre-enumerated entries, for tests and
// for any caller that already has the lists in memory.
type StaticLoader struct {
	Entries32 []Entry
	Entries64 []Entry
}

func (s StaticLoader) Load() ([]Entry, []Entry, error) {
	return s.Entries32, s.Entries64, nil
}

// jsonDoc is the on-disk shape a JSON-fed KnownDlls source uses, mirroring
// the `apisetmapsrc`-style "load an alternate map from file" plumbing
// (§6's `apisetmapsrc` command) adapted to this data set.
type jsonDoc struct {
	Entries32 []Entry `json:"entries32"`
	Entries64 []Entry `json:"entries64"`
}

// JSONLoader reads a Loader's entries from a JSON file at Path, for
// environments where the host-OS enumeration this package deliberately
// omits has been captured ahead of time into a file.
type JSONLoader struct {
	Path string
}

func (j JSONLoader) Load() ([]Entry, []Entry, error) {
	f, err := os.Open(j.Path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return decodeJSONDoc(f)
}

func decodeJSONDoc(r io.Reader) ([]Entry, []Entry, error) {
	var doc jsonDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, err
	}
	return doc.Entries32, doc.Entries64, nil
}

// EmptyLoader is the zero-entries Loader the server falls back to when
// no KnownDlls source has been configured, so Build never needs a nil
// check at the call site.
type EmptyLoader struct{}

func (EmptyLoader) Load() ([]Entry, []Entry, error) { return nil, nil, nil }

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package knowndlls models §3's KnownDllsList: two singly-linked sets of
// (filename, directory) pairs, one for the 32-bit search root and one
// for the 64-bit root, populated once at startup and immutable
// afterwards. The host-OS enumeration of the real `\KnownDlls` object
// directory is out of scope (spec.md §1); this package only owns the
// data structure and a pluggable Loader so that enumeration can be
// supplied by a test double or a JSON-fed implementation.
package knowndlls

// Entry pairs a short DLL filename with the common directory path every
// entry in a bucket shares.
type Entry struct {
	Name      string `json:"name"`
	Directory string `json:"directory"`
}

// node is one link of the singly-linked set.
type node struct {
	entry Entry
	next  *node
}

// List is one singly-linked, append-only, immutable-after-build set of
// KnownDlls entries, matching §3's "populated once at startup;
// immutable afterwards."
type List struct {
	head *node
	tail *node
	size int
}

// add appends entry to the end of the list, preserving enumeration
// order, which Build uses while it is the only writer.
func (l *List) add(e Entry) {
	n := &node{entry: e}
	if l.tail == nil {
		l.head = n
	} else {
		l.tail.next = n
	}
	l.tail = n
	l.size++
}

// Len returns the number of entries in the set.
func (l *List) Len() int { return l.size }

// Lookup walks the list for an entry whose Name matches name exactly,
// returning that entry.
func (l *List) Lookup(name string) (Entry, bool) {
	for n := l.head; n != nil; n = n.next {
		if n.entry.Name == name {
			return n.entry, true
		}
	}
	return Entry{}, false
}

// Entries materializes the set as a slice, in enumeration order, for
// the `knowndlls` wire response.
func (l *List) Entries() []Entry {
	out := make([]Entry, 0, l.size)
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.entry)
	}
	return out
}

// Lists holds both bitness-specific KnownDlls sets, the shape the
// process-global support context (§9) hands to every `knowndlls`
// request.
type Lists struct {
	List32 List
	List64 List
}

// Bucket returns the set for the requested bitness: 32 or 64, matching
// the wire command's literal `32`/`64` argument (§6).
func (l *Lists) Bucket(bitness int) (*List, bool) {
	switch bitness {
	case 32:
		return &l.List32, true
	case 64:
		return &l.List64, true
	default:
		return nil, false
	}
}

// Build populates a fresh, immutable Lists from loader. Call once at
// startup (§9's "populated once by init").
func Build(loader Loader) (*Lists, error) {
	entries32, entries64, err := loader.Load()
	if err != nil {
		return nil, err
	}

	lists := &Lists{}
	for _, e := range entries32 {
		lists.List32.add(e)
	}
	for _, e := range entries64 {
		lists.List64.add(e)
	}
	return lists, nil
}

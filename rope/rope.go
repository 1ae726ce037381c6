// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package rope implements §4.H's ResponseRope: an ordered, append-only
// sequence of wide-character fragments, finalized either by dropping
// everything (Free) or by concatenating into one contiguous string and
// dropping (Send). Grounded on
// original_source/src/WinDepends.Core/mlist.c's message_node/mlist_add/
// mlist_traverse design: a single-fragment fast path that skips the
// concatenation pass entirely, and a pre-computed total-length buffer
// for the general case so the copy pass never reallocates.
package rope

// Rope is a buffered sequence of fragments. The zero value is ready to
// use. A Rope is not safe for concurrent use; per §5 the engine is
// synchronous per session, so none is needed.
type Rope struct {
	chunks []string
	total  int
}

// New returns an empty Rope.
func New() *Rope { return &Rope{} }

// Append adds a fragment to the end of the rope, matching mlist_add's
// InsertTailList.
func (r *Rope) Append(s string) {
	r.chunks = append(r.chunks, s)
	r.total += len(s)
}

// Len reports the total byte length Send would produce, without
// consuming the rope.
func (r *Rope) Len() int { return r.total }

// Empty reports whether no fragment has been appended.
func (r *Rope) Empty() bool { return len(r.chunks) == 0 }

// Free drops every fragment without concatenating them, matching
// mlist_free. Used on the mid-stream-failure path (§4.H/§7): the
// caller discards this rope and emits a single error status line
// instead.
func (r *Rope) Free() {
	r.chunks = nil
	r.total = 0
}

// Send concatenates every fragment into one string and drops the rope,
// matching mlist_send. A single-fragment rope returns that fragment
// directly without an intermediate buffer, mirroring mlist_traverse's
// "early exit for small sends" branch. The general case pre-computes
// the total size (mlist_traverse's cchTotalSize pass) before the single
// copy pass, so the result never reallocates mid-copy.
func (r *Rope) Send() string {
	defer r.Free()

	switch len(r.chunks) {
	case 0:
		return ""
	case 1:
		return r.chunks[0]
	}

	buf := make([]byte, 0, r.total)
	for _, c := range r.chunks {
		buf = append(buf, c...)
	}
	return string(buf)
}

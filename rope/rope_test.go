// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package rope

import "testing"

func TestSendSingleFragmentFastPath(t *testing.T) {
	r := New()
	r.Append(`{"path":"combase.dll"}`)

	got := r.Send()
	want := `{"path":"combase.dll"}`
	if got != want {
		t.Fatalf("Send() = %q, want %q", got, want)
	}
	if !r.Empty() {
		t.Fatalf("rope not drained after Send")
	}
}

func TestSendConcatenatesInOrder(t *testing.T) {
	r := New()
	r.Append(`{"library":`)
	r.Append(`{"timestamp":0,`)
	r.Append(`"entries":0}}`)

	got := r.Send()
	want := `{"library":{"timestamp":0,"entries":0}}`
	if got != want {
		t.Fatalf("Send() = %q, want %q", got, want)
	}
}

func TestFreeDropsWithoutConcatenating(t *testing.T) {
	r := New()
	r.Append("partial")
	r.Append("more")
	r.Free()

	if !r.Empty() || r.Len() != 0 {
		t.Fatalf("Free did not reset rope: empty=%v len=%d", r.Empty(), r.Len())
	}
}

func TestSendEmptyRope(t *testing.T) {
	r := New()
	if got := r.Send(); got != "" {
		t.Fatalf("Send() on empty rope = %q, want empty", got)
	}
}

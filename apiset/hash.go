// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package apiset

// foldASCII lowercases a single rune in the ASCII range only, matching
// the source's locase_w: the high bits of non-ASCII code points are left
// untouched rather than folded.
func foldASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + 0x20
	}
	return r
}

// hash computes the V6 namespace hash: a multiplicative rolling hash
// over the case-folded name, using the namespace's own HashMultiplier.
// Grounded on apiset.c's ApiSetpSearchForApiSetV6 loop
// (entryHash = entryHash*HashMultiplier + locase_w(wch)).
func hash(name string, multiplier uint32) uint32 {
	var h uint32
	for _, r := range name {
		h = h*multiplier + uint32(foldASCII(r))
	}
	return h
}

// compareFold compares a and b case-insensitively, ASCII-fold only, the
// same rule §4.G requires of every binary search in this package.
func compareFold(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	for i := 0; i < len(ra) && i < len(rb); i++ {
		ca, cb := foldASCII(ra[i]), foldASCII(rb[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ra) < len(rb):
		return -1
	case len(ra) > len(rb):
		return 1
	default:
		return 0
	}
}

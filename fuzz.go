// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// Fuzz is the go-fuzz entry point (§8): it feeds arbitrary mutated
// bytes through the same map-and-flatten path a real file takes, then
// exercises every top-level response so the range predicate (§4.A) is
// the only thing standing between adversarial input and an out-of-
// buffer read.
func Fuzz(data []byte) int {
	img, err := OpenImageFromBytes(data, &Options{ProcessRelocs: true})
	if err != nil {
		return 0
	}
	_ = img.Headers()
	_ = img.DataDirectories()
	_ = img.Imports()
	_, _ = img.Exports()
	return 1
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package wire

import "encoding/json"

// EscapeJSONString quotes and escapes s per RFC 8259 (`"`, `\`, control
// characters at minimum), returning the quoted literal ready to embed
// in a hand-assembled JSON document.
func EscapeJSONString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

// Frame formats one complete response: a status line, optionally
// followed in the same message by a JSON body. body == "" emits the
// status line alone, as for error statuses and `apisetmapsrc`'s bare
// 200; `close`, `shutdown` and `exit` send no frame at all.
func Frame(status Status, suffix, body string) string {
	line := status.Line(suffix)
	if body == "" {
		return line
	}
	// The status line keeps its own CRLF; the JSON body follows it
	// directly and is terminated by a second CRLF.
	return line + body + "\r\n"
}

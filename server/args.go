// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package server

import (
	"strconv"
	"strings"

	"github.com/saferwall/wdep"
)

// tokenizeArgs splits a command's argument text on unquoted whitespace,
// keeping a double-quoted span (a file path, which may itself contain
// spaces) as one token including its quotes.
func tokenizeArgs(s string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == ' ' && !inQuotes:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// openArgs is the parsed payload of an `open` request (§6): `file
// "<path>"` plus the optional `process_relocs`, `custom_image_base
// <u32>` and `use_stats` flags.
type openArgs struct {
	path     string
	opts     pe.Options
	useStats bool
}

func parseOpenArgs(rest string) (openArgs, bool) {
	var out openArgs
	fields := tokenizeArgs(rest)

	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "file":
			if i+1 >= len(fields) {
				return openArgs{}, false
			}
			i++
			out.path = strings.Trim(fields[i], `"`)
		case "process_relocs":
			out.opts.ProcessRelocs = true
		case "use_stats":
			out.useStats = true
		case "custom_image_base":
			if i+1 >= len(fields) {
				return openArgs{}, false
			}
			i++
			v, err := strconv.ParseUint(fields[i], 0, 64)
			if err != nil {
				return openArgs{}, false
			}
			out.opts.CustomBase = v
		}
	}

	if out.path == "" {
		return openArgs{}, false
	}
	return out, true
}

// apisetMapSrcArgs parses `apisetmapsrc`'s optional `file "<path>"`
// payload; an empty rest means "revert to the process default" (§6).
func apisetMapSrcArgs(rest string) (path string, hasFile bool) {
	fields := tokenizeArgs(rest)
	for i := 0; i < len(fields); i++ {
		if fields[i] == "file" && i+1 < len(fields) {
			return strings.Trim(fields[i+1], `"`), true
		}
	}
	return "", false
}

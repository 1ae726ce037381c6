// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package wire

import "strings"

// Command names one of the 13 request verbs (§6).
type Command int

const (
	CmdUnknown Command = iota
	CmdOpen
	CmdClose
	CmdHeaders
	CmdDataDirs
	CmdImports
	CmdExports
	CmdKnownDlls
	CmdApiSetResolve
	CmdApiSetMapSrc
	CmdApiSetNsInfo
	CmdCallStats
	CmdShutdown
	CmdExit
)

func (c Command) String() string {
	for _, e := range commandTable {
		if e.cmd == c {
			return e.name
		}
	}
	return "unknown"
}

type commandEntry struct {
	name string
	cmd  Command
}

// commandTable lists every command name, sorted, matching cmd.c's
// dispatch table (grounded on cmd.h's cmd_entry_type enum and the
// {name,length,type} entries grep'd from cmd.c).
var commandTable = []commandEntry{
	{"apisetmapsrc", CmdApiSetMapSrc},
	{"apisetnsinfo", CmdApiSetNsInfo},
	{"apisetresolve", CmdApiSetResolve},
	{"callstats", CmdCallStats},
	{"close", CmdClose},
	{"datadirs", CmdDataDirs},
	{"exit", CmdExit},
	{"exports", CmdExports},
	{"headers", CmdHeaders},
	{"imports", CmdImports},
	{"knowndlls", CmdKnownDlls},
	{"open", CmdOpen},
	{"shutdown", CmdShutdown},
}

// ParseCommand splits line into its command verb and remaining argument
// text, matching the verb against commandTable by prefix with a
// trailing-character check: the candidate name must be followed by
// end-of-input or whitespace, so "open" never matches an input line
// that actually reads "opens ...".
func ParseCommand(line string) (Command, string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	for _, e := range commandTable {
		if !strings.HasPrefix(trimmed, e.name) {
			continue
		}
		rest := trimmed[len(e.name):]
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
			return e.cmd, strings.TrimLeft(rest, " \t"), true
		}
	}
	return CmdUnknown, "", false
}

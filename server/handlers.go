// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package server

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/saferwall/wdep"
	"github.com/saferwall/wdep/apiset"
	"github.com/saferwall/wdep/rope"
	"github.com/saferwall/wdep/wire"
)

// Outcome carries a Handle result back to the (out-of-scope) dispatcher
// loop: the framed bytes to write, and whether the connection or the
// whole server should subsequently be torn down.
type Outcome struct {
	Frame          string
	CloseSession   bool
	ShutdownServer bool
}

// Handle implements §6/§7 end to end for one request line: parse the
// command, dispatch to its handler under the fault-trap discipline
// every top-level parser uses, and frame exactly one response. Per
// §4.H/§7, a mid-stream failure inside a handler replaces the rope with
// a single error status line before anything reaches the wire.
func (s *Session) Handle(line string) Outcome {
	start := time.Now()

	cmd, rest, ok := wire.ParseCommand(line)
	if !ok {
		return Outcome{Frame: wire.Frame(wire.StatusCommandUnknown, "", "")}
	}

	var out Outcome
	switch cmd {
	case wire.CmdOpen:
		out = s.handleOpen(rest)
	case wire.CmdClose:
		s.Close()
		out = Outcome{Frame: ""}
	case wire.CmdHeaders:
		out = s.handleHeaders()
	case wire.CmdDataDirs:
		out = s.handleDataDirs()
	case wire.CmdImports:
		out = s.handleImports()
	case wire.CmdExports:
		out = s.handleExports()
	case wire.CmdKnownDlls:
		out = s.handleKnownDlls(rest)
	case wire.CmdApiSetResolve:
		out = s.handleApiSetResolve(rest)
	case wire.CmdApiSetMapSrc:
		out = s.handleApiSetMapSrc(rest)
	case wire.CmdApiSetNsInfo:
		out = s.handleApiSetNsInfo(rest)
	case wire.CmdCallStats:
		out = s.handleCallStats()
	case wire.CmdShutdown:
		out = Outcome{Frame: "", ShutdownServer: true}
	case wire.CmdExit:
		s.Close()
		out = Outcome{Frame: "", CloseSession: true}
	default:
		out = Outcome{Frame: wire.Frame(wire.StatusCommandUnknown, "", "")}
	}

	s.recordSend(len(out.Frame), time.Since(start))
	return out
}

// jsonBody marshals v through a rope (§4.H): a single fragment in
// practice, but going through rope.Send keeps every response path
// going through the same assembly/finalize discipline.
func jsonBody(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	r := rope.New()
	r.Append(string(b))
	return r.Send(), nil
}

func (s *Session) handleOpen(rest string) Outcome {
	args, ok := parseOpenArgs(rest)
	if !ok {
		return Outcome{Frame: wire.Frame(wire.StatusInvalidParameters, "", "")}
	}

	s.Close()

	img, err := pe.OpenImage(args.path, &args.opts)
	if err != nil {
		return Outcome{Frame: wire.Frame(statusForOpenError(err), "", "")}
	}
	s.img = img
	s.useStats = args.useStats

	summary := pe.OpenSummary{
		FileInfo:     img.FileInfo(),
		RealChecksum: img.RealChecksum(),
		ImageFixed:   img.Fixed(),
		ImageDotNet:  img.DotNet(),
	}
	body, err := jsonBody(summary)
	if err != nil {
		return Outcome{Frame: wire.Frame(wire.StatusCannotAllocate, "", "")}
	}
	return Outcome{Frame: wire.Frame(wire.StatusOK, "", body)}
}

func (s *Session) handleHeaders() Outcome {
	if s.img == nil {
		return Outcome{Frame: wire.Frame(wire.StatusImageBufferNotAllocated, "", "")}
	}
	body, err := jsonBody(s.img.Headers())
	if err != nil {
		return Outcome{Frame: wire.Frame(wire.StatusCannotAllocate, "", "")}
	}
	return Outcome{Frame: wire.Frame(wire.StatusOK, "", body)}
}

func (s *Session) handleDataDirs() Outcome {
	if s.img == nil {
		return Outcome{Frame: wire.Frame(wire.StatusImageBufferNotAllocated, "", "")}
	}
	body, err := jsonBody(s.img.DataDirectories())
	if err != nil {
		return Outcome{Frame: wire.Frame(wire.StatusCannotAllocate, "", "")}
	}
	return Outcome{Frame: wire.Frame(wire.StatusOK, "", body)}
}

func (s *Session) handleImports() Outcome {
	if s.img == nil {
		return Outcome{Frame: wire.Frame(wire.StatusImageBufferNotAllocated, "", "")}
	}
	resp := s.img.Imports()
	body, err := jsonBody(resp)
	if err != nil {
		return Outcome{Frame: wire.Frame(wire.StatusCannotAllocate, "", "")}
	}
	if resp.Exception != 0 {
		return Outcome{Frame: wire.Frame(wire.StatusException, fmt.Sprintf("0x%08X", resp.ExceptionCodeStd|resp.ExceptionCodeDelay), body)}
	}
	return Outcome{Frame: wire.Frame(wire.StatusOK, "", body)}
}

func (s *Session) handleExports() Outcome {
	if s.img == nil {
		return Outcome{Frame: wire.Frame(wire.StatusImageBufferNotAllocated, "", "")}
	}
	resp, exceptionCode := s.img.Exports()
	body, err := jsonBody(resp)
	if err != nil {
		return Outcome{Frame: wire.Frame(wire.StatusCannotAllocate, "", "")}
	}
	if exceptionCode != 0 {
		return Outcome{Frame: wire.Frame(wire.StatusException, fmt.Sprintf("0x%08X", exceptionCode), body)}
	}
	return Outcome{Frame: wire.Frame(wire.StatusOK, "", body)}
}

// knownDllsResponse is the `knowndlls` command body (§6): the common
// directory path shared by the bucket plus its entries.
type knownDllsResponse struct {
	Path    string   `json:"path"`
	Entries []string `json:"entries"`
}

func (s *Session) handleKnownDlls(rest string) Outcome {
	bitness, err := strconv.Atoi(rest)
	if err != nil {
		return Outcome{Frame: wire.Frame(wire.StatusInvalidParameters, "", "")}
	}

	bucket, ok := s.support.KnownDlls.Bucket(bitness)
	if !ok {
		return Outcome{Frame: wire.Frame(wire.StatusInvalidParameters, "", "")}
	}

	entries := bucket.Entries()
	resp := knownDllsResponse{Entries: make([]string, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = e.Name
		if resp.Path == "" {
			resp.Path = e.Directory
		}
	}

	body, err := jsonBody(resp)
	if err != nil {
		return Outcome{Frame: wire.Frame(wire.StatusCannotAllocate, "", "")}
	}
	return Outcome{Frame: wire.Frame(wire.StatusOK, "", body)}
}

// apiSetResolveResponse is the `apisetresolve` success body (§6).
type apiSetResolveResponse struct {
	Path string `json:"path"`
}

func (s *Session) handleApiSetResolve(rest string) Outcome {
	ns := s.support.ApiSet()
	if ns == nil {
		return Outcome{Frame: wire.Frame(wire.StatusContextNotAllocated, "", "")}
	}

	contract, parent := rest, ""
	if fields := tokenizeArgs(rest); len(fields) > 1 {
		contract = fields[0]
		parent = fields[1]
	}

	host, status, err := ns.Resolve(contract, parent)
	if err != nil || status != apiset.StatusResolved {
		// §9 open question: both NOT_PRESENT and NOT_HOSTED surface as
		// a generic 500 on the wire, preserving the existing 200/500
		// dichotomy rather than adding a dedicated status.
		return Outcome{Frame: wire.Frame(wire.StatusCannotAllocate, "", "")}
	}

	body, err := jsonBody(apiSetResolveResponse{Path: host})
	if err != nil {
		return Outcome{Frame: wire.Frame(wire.StatusCannotAllocate, "", "")}
	}
	return Outcome{Frame: wire.Frame(wire.StatusOK, "", body)}
}

func (s *Session) handleApiSetMapSrc(rest string) Outcome {
	path, hasFile := apisetMapSrcArgs(rest)
	if !hasFile {
		s.support.RevertApiSet()
		return Outcome{Frame: wire.Frame(wire.StatusOK, "", "")}
	}

	ns, err := loadApiSetFile(path)
	if err != nil {
		return Outcome{Frame: wire.Frame(statusForOpenError(err), "", "")}
	}
	s.support.SetApiSet(ns)
	return Outcome{Frame: wire.Frame(wire.StatusOK, "", "")}
}

// apiSetNsInfoResponse is the `apisetnsinfo` body (§6, S4).
type apiSetNsInfoResponse struct {
	Version int `json:"version"`
	Count   int `json:"count"`
}

func (s *Session) handleApiSetNsInfo(rest string) Outcome {
	ns := s.support.ApiSet()

	if path, hasFile := apisetMapSrcArgs(rest); hasFile {
		loaded, err := loadApiSetFile(path)
		if err != nil {
			return Outcome{Frame: wire.Frame(statusForOpenError(err), "", "")}
		}
		ns = loaded
	}

	if ns == nil {
		return Outcome{Frame: wire.Frame(wire.StatusContextNotAllocated, "", "")}
	}

	body, err := jsonBody(apiSetNsInfoResponse{Version: int(ns.Version()), Count: ns.Count()})
	if err != nil {
		return Outcome{Frame: wire.Frame(wire.StatusCannotAllocate, "", "")}
	}
	return Outcome{Frame: wire.Frame(wire.StatusOK, "", body)}
}

// callStatsResponse is the `callstats` body (§6).
type callStatsResponse struct {
	TotalBytesSent uint64 `json:"totalBytesSent"`
	TotalSendCalls uint64 `json:"totalSendCalls"`
	TotalTimeSpent int64  `json:"totalTimeSpent"`
}

func (s *Session) handleCallStats() Outcome {
	resp := callStatsResponse{
		TotalBytesSent: s.totalBytesSent,
		TotalSendCalls: s.totalSendCalls,
		TotalTimeSpent: s.totalTimeSpent.Microseconds(),
	}
	body, err := jsonBody(resp)
	if err != nil {
		return Outcome{Frame: wire.Frame(wire.StatusCannotAllocate, "", "")}
	}
	return Outcome{Frame: wire.Frame(wire.StatusOK, "", body)}
}

func loadApiSetFile(path string) (*apiset.Namespace, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pe.ErrFileNotFound
		}
		return nil, pe.ErrFileUnreadable
	}
	return apiset.Parse(raw)
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package wire

import "testing"

func TestParseCommandExactMatch(t *testing.T) {
	cmd, rest, ok := ParseCommand(`open file "kernel32.dll"`)
	if !ok || cmd != CmdOpen || rest != `file "kernel32.dll"` {
		t.Fatalf("ParseCommand(open ...) = (%v, %q, %v)", cmd, rest, ok)
	}
}

func TestParseCommandRejectsLongerToken(t *testing.T) {
	_, _, ok := ParseCommand("opens")
	if ok {
		t.Fatalf("ParseCommand(opens) should not match \"open\"")
	}
}

func TestParseCommandNoArgs(t *testing.T) {
	cmd, rest, ok := ParseCommand("shutdown")
	if !ok || cmd != CmdShutdown || rest != "" {
		t.Fatalf("ParseCommand(shutdown) = (%v, %q, %v)", cmd, rest, ok)
	}
}

func TestParseCommandUnknown(t *testing.T) {
	_, _, ok := ParseCommand("frobnicate")
	if ok {
		t.Fatalf("ParseCommand(frobnicate) should not match any command")
	}
}

func TestParseCommandAmbiguousApisetPrefixes(t *testing.T) {
	cmd, rest, ok := ParseCommand("apisetresolve api-ms-win-core-com-l2-1-1")
	if !ok || cmd != CmdApiSetResolve || rest != "api-ms-win-core-com-l2-1-1" {
		t.Fatalf("ParseCommand(apisetresolve ...) = (%v, %q, %v)", cmd, rest, ok)
	}

	cmd, _, ok = ParseCommand("apisetmapsrc")
	if !ok || cmd != CmdApiSetMapSrc {
		t.Fatalf("ParseCommand(apisetmapsrc) = (%v, %v)", cmd, ok)
	}
}

func TestStatusLine(t *testing.T) {
	got := StatusOK.Line("")
	want := "WDEP/1.0 200 OK\r\n"
	if got != want {
		t.Fatalf("StatusOK.Line() = %q, want %q", got, want)
	}

	got = StatusFileNotFound.Line("")
	want = "WDEP/1.0 404 File not found or can not be accessed\r\n"
	if got != want {
		t.Fatalf("StatusFileNotFound.Line() = %q, want %q", got, want)
	}
}

func TestFrameWithBody(t *testing.T) {
	got := Frame(StatusOK, "", `{"path":"combase.dll"}`)
	want := "WDEP/1.0 200 OK\r\n{\"path\":\"combase.dll\"}\r\n"
	if got != want {
		t.Fatalf("Frame() = %q, want %q", got, want)
	}
}

func TestFrameBodiless(t *testing.T) {
	got := Frame(StatusOK, "", "")
	want := "WDEP/1.0 200 OK\r\n"
	if got != want {
		t.Fatalf("Frame() bodiless = %q, want %q", got, want)
	}
}

func TestEscapeJSONString(t *testing.T) {
	got := EscapeJSONString(`C:\Windows\System32`)
	want := `"C:\\Windows\\System32"`
	if got != want {
		t.Fatalf("EscapeJSONString() = %q, want %q", got, want)
	}
}

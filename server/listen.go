// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package server

import (
	"bufio"
	"context"
	"net"
	"sync"

	"golang.org/x/text/encoding/unicode"

	"github.com/saferwall/wdep/internal/log"
)

// wideCRLF is the four-byte UTF-16LE encoding of "\r\n": a request line
// terminator (§6, "a wide-character line terminated by CR LF").
var wideCRLF = [4]byte{0x0D, 0x00, 0x0A, 0x00}

// splitWideLine is a bufio.SplitFunc that tokenizes on wideCRLF instead
// of a bare '\n', since requests arrive as UTF-16LE text.
func splitWideLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i+4 <= len(data); i += 2 {
		if data[i] == wideCRLF[0] && data[i+1] == wideCRLF[1] && data[i+2] == wideCRLF[2] && data[i+3] == wideCRLF[3] {
			return i + 4, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func decodeWide(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	s, err := utf16LE.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(s), nil
}

func encodeWide(s string) ([]byte, error) {
	return utf16LE.NewEncoder().Bytes([]byte(s))
}

// Server drives the TCP front end described in §6: accept connections,
// give each one its own Session, and feed request lines to Session.Handle.
// Per spec.md §1 the dispatcher loop is explicitly out of scope, so this
// is deliberately the simplest possible reader/writer pairing rather
// than a tuned production accept loop (no backpressure, no per-connection
// deadlines).
type Server struct {
	support *Support
	logger  *log.Helper

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer constructs a Server bound to the given support context.
func NewServer(support *Support, logger *log.Helper) *Server {
	return &Server{support: support, logger: logger}
}

// ListenAndServe binds addr (loopback-only addresses are the caller's
// responsibility to pass, per §6) and serves connections until ctx is
// canceled or a session handler returns ShutdownServer.
func (srv *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return srv.Serve(ctx, ln)
}

// Serve drives an already-bound listener, for callers (like
// cmd/wdepserver) that need to distinguish address-parse/bind/listen
// failures by exit code before handing control to the accept loop.
func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv.mu.Lock()
	srv.listener = ln
	srv.mu.Unlock()

	shutdown := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdown:
		}
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				srv.wg.Wait()
				return nil
			case <-shutdown:
				srv.wg.Wait()
				return nil
			default:
			}
			return err
		}

		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()
			if srv.serveConn(conn) {
				close(shutdown)
			}
		}()
	}
}

// serveConn drives one connection to completion, returning true if the
// session issued `shutdown` (§6: the whole server terminates).
func (srv *Server) serveConn(conn net.Conn) bool {
	defer conn.Close()

	sess := NewSession(srv.support, srv.logger)
	defer sess.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Split(splitWideLine)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line, err := decodeWide(scanner.Bytes())
		if err != nil {
			break
		}

		out := sess.Handle(line)
		if out.Frame != "" {
			encoded, err := encodeWide(out.Frame)
			if err != nil {
				break
			}
			if _, err := conn.Write(encoded); err != nil {
				break
			}
		}

		if out.ShutdownServer {
			return true
		}
		if out.CloseSession {
			return false
		}
	}
	return false
}

// Close stops accepting new connections and waits for in-flight sessions
// to finish.
func (srv *Server) Close() error {
	srv.mu.Lock()
	ln := srv.listener
	srv.mu.Unlock()
	if ln == nil {
		return nil
	}
	err := ln.Close()
	srv.wg.Wait()
	return err
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saferwall/wdep/internal/log"
	"github.com/saferwall/wdep/knowndlls"
	"github.com/saferwall/wdep/server"
)

// Exit codes per §6's CLI table.
const (
	exitOK = iota
	exitSocketStartup
	exitSocketInit
	exitAddressParse
	exitBind
	exitListen
)

var port uint16

func main() {
	rootCmd := &cobra.Command{
		Use:   "wdepserver",
		Short: "WDEP analysis server",
		Long:  "A Windows PE dependency-analysis server, speaking the WDEP/1.0 wire protocol.",
		Run:   run,
	}
	rootCmd.Flags().Uint16VarP(&port, "port", "p", 8209, "TCP port to listen on (loopback only)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitSocketStartup)
	}
}

func run(cmd *cobra.Command, args []string) {
	logger := log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stdout), log.FilterLevel(log.LevelInfo)))

	addr, err := net.ResolveTCPAddr("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		logger.Errorf("address parse failed: %v", err)
		os.Exit(exitAddressParse)
	}

	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		logger.Errorf("bind failed: %v", err)
		os.Exit(exitBind)
	}

	support := server.NewSupport(emptyKnownDlls(logger), nil)
	srv := server.NewServer(support, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Infof("wdepserver listening on 127.0.0.1:%d", port)
	if err := srv.Serve(ctx, ln); err != nil {
		logger.Errorf("server exited: %v", err)
		os.Exit(exitListen)
	}

	os.Exit(exitOK)
}

// emptyKnownDlls builds a process-default KnownDlls set. Host-OS
// enumeration of the real \KnownDlls object directory is out of scope
// (spec.md §1); the server starts with empty buckets until an operator
// feeds a populated set through a future `knowndllssrc`-style extension
// or a custom knowndlls.Loader wired in at startup.
func emptyKnownDlls(logger *log.Helper) *knowndlls.Lists {
	lists, err := knowndlls.Build(knowndlls.EmptyLoader{})
	if err != nil {
		logger.Warnf("building default knowndlls lists failed: %v", err)
		return &knowndlls.Lists{}
	}
	return lists
}

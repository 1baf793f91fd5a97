//go:build linux

// Command chatringd runs the io_uring chat broker (spec.md §6):
//
//	chatringd <host> <port>
//
// SIGINT/SIGTERM trigger a clean shutdown (exit 0); a usage or setup
// error exits 1, matching original_source/server/main.cpp's argc
// check and running-flag shutdown loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brickingsoft/chatring/internal/config"
	"github.com/brickingsoft/chatring/internal/logging"
	"github.com/brickingsoft/chatring/internal/worker"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "usage: chatringd <host> <port>")
		return 1
	}

	log := logging.New(logging.DefaultConfig())
	log.Infof("starting chatringd on %s with %d workers", cfg.Addr(), cfg.WorkerCount)

	listenFd, err := listenTCP(cfg.Host, cfg.Port)
	if err != nil {
		log.ErrorErr("listen failed", err)
		return 1
	}
	defer syscall.Close(listenFd)

	pool, err := worker.NewPool(cfg.WorkerCount, listenFd, log)
	if err != nil {
		log.ErrorErr("failed to build worker pool", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool.Run(ctx)
	log.Info("shutdown complete")
	return 0
}

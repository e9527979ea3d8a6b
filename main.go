// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"musicpainter/cmd"
	"musicpainter/internal/audio"
	"musicpainter/internal/brush"
	"musicpainter/internal/config"
	applog "musicpainter/internal/log"
	"musicpainter/pkg/build"
)

// main is the entry point for musicpainter.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Configure logging
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Load the source or open the capture device
//   - Start the painting session
//   - Run the canvas, the monitor and the signal watcher alongside it
//
// 3. Shutdown Phase (Cold Path):
//   - Stop the session on a termination signal
//   - Save the recording and the image
//   - Close transports
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds carry no ldflags and run with default build info.
	buildErr := build.Initialize()

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if cfg.Command == "" {
		return
	}

	applog.Configure(cfg.LogLevel, cfg.Debug)
	if buildErr != nil {
		applog.Debugf("Build: %v, using development build info", buildErr)
	}

	// Handle one-off commands (e.g., device listing) that don't require
	// a painting session
	if handled, err := executeCommand(cfg); handled {
		if err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ==================== SHUTDOWN PHASE (Cold Path) ====================
	// runSession returns only after the session ended, the devices were
	// released and the outputs were written.
	if err := runSession(ctx, cfg); err != nil {
		stop()
		applog.Fatalf("%v", err)
	}
}

// executeCommand handles one-off commands that don't require a painting
// session, such as listing available audio devices.
func executeCommand(cfg *config.Config) (bool, error) {
	switch cfg.Command {
	case "devices":
		return true, audio.ListDevices(os.Stdout)

	case "info":
		info, err := audio.Describe(cfg.Args[0])
		if err != nil {
			return true, err
		}
		fmt.Println(info)
		return true, nil

	case "algorithms":
		for i, name := range brush.Names() {
			marker := " "
			if i+1 == cfg.Session.Algorithm {
				marker = "*"
			}
			fmt.Printf("%s %d  %s\n", marker, i+1, name)
		}
		return true, nil
	}
	return false, nil
}

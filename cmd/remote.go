package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slimemax/keyboardsim/internal/config"
	"github.com/slimemax/keyboardsim/internal/network"
	"github.com/slimemax/keyboardsim/internal/protocol"
	"github.com/slimemax/keyboardsim/internal/runner"
)

// runRemote handles -remote and returns the process exit code
func runRemote(cfgMgr *config.Manager) int {
	token := *apiToken
	if token == "" {
		token = cfgMgr.Get().General.APIToken
	}
	client := network.NewClient(*remote, token)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *remoteStop:
		if err := client.Stop(ctx); err != nil {
			log.Printf("Remote stop failed: %v", err)
			return 1
		}
		fmt.Println("Stop requested")

	case *runScript != "":
		req := protocol.RunRequest{Script: runScript}
		if *startDelay >= 0 {
			req.StartDelayMs = startDelay
		}
		if *loopDelay >= 0 {
			req.LoopDelayMs = loopDelay
		}
		if *loops > 0 {
			req.Loops = loops
		}
		cfg, err := client.Run(ctx, req)
		if errors.Is(err, runner.ErrBusy) {
			log.Printf("Remote is busy; stop the current run first")
			return 1
		}
		if err != nil {
			log.Printf("Remote run failed: %v", err)
			return 1
		}
		fmt.Printf("Run started: %d loop(s), start delay %d ms\n", cfg.Loops, cfg.StartDelayMs)

	case *tail:
		logs, err := client.Logs(ctx, 20)
		if err != nil {
			log.Printf("Remote logs failed: %v", err)
			return 1
		}
		for _, line := range logs {
			fmt.Println(line)
		}
		client.ReconnectDelay = 2 * time.Second
		client.OnLog = func(line string) { fmt.Println(line) }
		client.OnError = func(msg string) { fmt.Fprintln(os.Stderr, "remote error:", msg) }
		if err := client.Tail(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Remote tail failed: %v", err)
			return 1
		}

	default:
		st, err := client.Status(ctx)
		if err != nil {
			log.Printf("Remote status failed: %v", err)
			return 1
		}
		out, _ := json.MarshalIndent(st, "", "  ")
		fmt.Println(string(out))
	}
	return 0
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ecotrack/go-bridge/internal/bootstrap/bridgeconfig"
	"ecotrack/go-bridge/internal/composition/bridgeserver"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to bridge.yaml (optional)")
	httpAddr := flag.String("http-addr", "", "HTTP listen address override")
	transport := flag.String("transport", "", "Mailbox transport override: go-waku | mock")
	flag.Parse()
	if *showVersion {
		fmt.Printf("bridge-daemon version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *httpAddr != "" {
		_ = os.Setenv("ECOTRACK_HTTP_ADDR", *httpAddr)
	}
	if *transport != "" {
		_ = os.Setenv("ECOTRACK_TRANSPORT", *transport)
	}

	srv, err := bridgeserver.New(bridgeconfig.LoadFromPath(*configPath))
	if err != nil {
		log.Fatalf("bridge-daemon failed to initialize: %v", err)
	}

	log.Printf("bridge-daemon starting, bridge address %s", srv.BridgeAddress())
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("bridge-daemon failed: %v", err)
	}
	log.Println("bridge-daemon stopped")
}

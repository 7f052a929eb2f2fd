package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	brigadecmd "github.com/teamforge/brigade/internal/cmd/brigade"
)

func main() {
	cfg, err := brigadecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[BRIGADE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := brigadecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}

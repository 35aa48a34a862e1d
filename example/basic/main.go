package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	fieldsync "github.com/agrovolt/fieldsync"
)

func main() {
	cfg, err := fieldsync.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	rt, err := fieldsync.NewRuntime(cfg)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("uplink exited: %v", err)
	}
}

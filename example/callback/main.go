package main

import (
	"context"
	"fmt"
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

	// Route batches to stdout instead of a real collector.
	callback := func(_ context.Context, batch []*fieldsync.Snapshot) error {
		for _, snap := range batch {
			fmt.Printf("%s signals=%v\n", snap.Timestamp, snap.Signals)
		}
		return nil
	}

	rt, err := fieldsync.NewRuntime(cfg,
		fieldsync.WithTransport(fieldsync.NewCallbackTransport("stdout", callback)),
		fieldsync.WithProbe(fieldsync.StaticProbe(true)),
	)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("uplink exited: %v", err)
	}
}

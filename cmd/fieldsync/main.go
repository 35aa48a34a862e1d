package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	fieldsync "github.com/agrovolt/fieldsync"
	"github.com/agrovolt/fieldsync/internal/adapters/source"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "status":
		err = statusCommand(os.Args[2:])
	case "sync":
		err = syncCommand(os.Args[2:])
	case "demo":
		err = demoCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("fieldsync %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to uplink configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := fieldsync.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := fieldsync.NewRuntime(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rt.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := fieldsync.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	if !cfg.CollectorConfigured() {
		fmt.Println("note: no collector destination configured, the uplink will run queue-only")
	}
	return nil
}

func statusCommand(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to uplink configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, cleanup, err := openRuntime(*cfgPath)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status := rt.Engine().Status(ctx)
	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func syncCommand(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to uplink configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, cleanup, err := openRuntime(*cfgPath)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uploaded := rt.Engine().DrainOnce(ctx)
	pending := rt.Engine().Status(ctx).PendingRecords
	fmt.Printf("uploaded %d record(s), %d still pending\n", uploaded, pending)
	return nil
}

func demoCommand(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to uplink configuration file")
	count := fs.Int("count", 0, "Number of snapshots to send (0 = run until interrupted)")
	once := fs.Bool("once", false, "Send a single snapshot and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *once {
		*count = 1
	}

	cfg, err := fieldsync.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rt, err := fieldsync.NewRuntime(cfg)
	if err != nil {
		return err
	}
	defer shutdownQuietly(rt)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := source.NewDemo(cfg.Demo)
	sent := 0
	for *count == 0 || sent < *count {
		snap := gen.Generate()
		outcome := rt.Engine().Ingest(ctx, snap)
		sent++
		fmt.Printf("[%s] snapshot %d: %s\n", snap.Timestamp, sent, outcome)

		if *count != 0 && sent >= *count {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.Demo.Interval):
		}
	}
	return nil
}

// openRuntime builds a runtime without starting the source or background
// sync, for one-shot subcommands that only need the engine.
func openRuntime(cfgPath string) (*fieldsync.Runtime, func(), error) {
	cfg, err := fieldsync.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	rt, err := fieldsync.NewRuntime(cfg)
	if err != nil {
		return nil, nil, err
	}
	return rt, func() { shutdownQuietly(rt) }, nil
}

func shutdownQuietly(rt *fieldsync.Runtime) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func printUsage() {
	fmt.Printf(`FieldSync CLI

Usage:
  fieldsync <command> [flags]

Commands:
  run        Start the uplink using the provided config
  validate   Load and validate a config file without starting the uplink
  status     Print connectivity and queue statistics
  sync       Drain queued records once and exit
  demo       Generate synthetic tractor snapshots and ingest them

Examples:
  fieldsync run -config ./data/config.yaml
  fieldsync validate -config ./data/config.yaml
  fieldsync status -config ./data/config.yaml
  fieldsync sync -config ./data/config.yaml
  fieldsync demo -config ./data/config.yaml -count 10
`)
}

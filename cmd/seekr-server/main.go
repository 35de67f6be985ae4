// seekr-server serves the seekr cluster registry API.
//
// # Installation
//
//	go install github.com/acksell/seekr/cmd/seekr-server@latest
//
// # Usage
//
//	seekr-server [--config seekr.yaml] [--db ./seekr.db] [--port 5000]
//
// Settings come from defaults, then the YAML config file, then SEEKR_*
// environment variables (a .env file in the working directory is loaded
// first), then flags. Run with --help for the full list.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/acksell/seekr/config"
	"github.com/acksell/seekr/logging"
	"github.com/acksell/seekr/server"
	"github.com/acksell/seekr/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "seekr-server: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(args, os.LookupEnv)
	if err != nil {
		return err
	}
	if cfg.ShowVersion {
		fmt.Printf("seekr-server %s\n", version.Full())
		return nil
	}

	logger, err := logging.New(os.Stderr, cfg.Log, cfg.LogFormat)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(server.ServerConfig{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting seekr-server",
		"addr", cfg.Addr(),
		"backend", cfg.Storage.Backend,
		"version", version.Info(),
	)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

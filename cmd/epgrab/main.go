// Command epgrab collects the LG U+ programme guide and writes it as XMLTV.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stwalsh4118/epgrab/internal/config"
	"github.com/stwalsh4118/epgrab/internal/logger"
	"github.com/stwalsh4118/epgrab/internal/server"
)

const shutdownTimeout = 10 * time.Second

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <run|fromdb|update-channels|serve> [-config path]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  run              Collect the guide, write XMLTV and save to the database when enabled\n")
	fmt.Fprintf(os.Stderr, "  fromdb           Write XMLTV from the database only\n")
	fmt.Fprintf(os.Stderr, "  update-channels  List channels and write the channel file\n")
	fmt.Fprintf(os.Stderr, "  serve            Start the HTTP server\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path (default: config.yaml in ., ./config or /etc/epgrab)")
	_ = fs.Parse(os.Args[2:])

	switch cmd {
	case "run", "fromdb", "update-channels", "serve":
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, cmd, cfg); err != nil {
		logger.Log.Error().Err(err).Str("command", cmd).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}

func execute(ctx context.Context, cmd string, cfg *config.Config) error {
	a, err := newApp(cfg, cmd == "fromdb" || cmd == "serve")
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "run":
		return a.runGuide(ctx)
	case "fromdb":
		return a.fromDB(ctx)
	case "update-channels":
		return a.updateChannels(ctx)
	case "serve":
		return serve(ctx, cfg, a)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func serve(ctx context.Context, cfg *config.Config, a *app) error {
	srv := server.New(cfg, a.db, a.ingest, a.redis, a.breaker, a.metrics)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("Shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/iudanet/edulearn/internal/client/api"
	"github.com/iudanet/edulearn/internal/client/auth"
	"github.com/iudanet/edulearn/internal/client/cli"
	"github.com/iudanet/edulearn/internal/client/iocli"
	"github.com/iudanet/edulearn/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("edulearn", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { cli.PrintUsage(stderr) }

	showVersion := fs.Bool("version", false, "Show version information")
	serverURL := fs.String("server", "http://localhost:8080", "Server URL")
	dbPath := fs.String("db", "edulearn-client.db", "Path to local session database")
	verbose := fs.Bool("v", false, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		printVersion(stdout)
		return 0
	}

	rest := fs.Args()
	if len(rest) == 0 {
		cli.PrintUsage(stderr)
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(api.NewClient(*serverURL), boltStorage, auth.WithLogger(logger))
	c := cli.New(iocli.New(os.Stdin, stdout), authService)

	if err := c.Run(ctx, rest[0], rest[1:]); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, auth.ErrNotLoggedIn) || errors.Is(err, auth.ErrSessionExpired) {
			return 3
		}
		return 1
	}

	return 0
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "EduLearn Client\n")
	fmt.Fprintf(w, "Version:    %s\n", Version)
	fmt.Fprintf(w, "Build Date: %s\n", BuildDate)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
}

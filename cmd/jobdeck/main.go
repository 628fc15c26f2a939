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

	"github.com/five82/jobdeck/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A .env in the working directory may carry JOBDECK_* settings.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "jobdeck: load .env: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx, os.Args[1:]); err != nil {
		if !cli.IsSilent(err) {
			fmt.Fprintf(os.Stderr, "jobdeck: %v\n", err)
		}
		return 1
	}
	return 0
}

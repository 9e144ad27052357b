package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ecofund/internal/infra"
)

func main() {
	_ = godotenv.Load()

	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "abort when migrations take longer than this")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [flags] up|down|status\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	direction := "up"
	if flag.NArg() > 0 {
		direction = strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}
	if strings.HasPrefix(dbURL, "memory://") {
		exitWithError(errors.New("the in-memory store has no schema to migrate"))
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "migrate").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := infra.Migrate(ctx, dbURL, direction, logger); err != nil {
		exitWithError(err)
	}
	logger.Info().Str("direction", direction).Msg("migrate: done")
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
	os.Exit(1)
}

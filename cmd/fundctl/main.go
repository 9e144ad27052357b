package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ecofund/internal/bootstrap"
	"ecofund/internal/infra"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "fundctl",
		Short:         "Operator tooling for EcoFund campaigns and donations",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(recomputeCmd())
	rootCmd.AddCommand(refundCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(setStripeKeyCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "fundctl:", err)
		os.Exit(1)
	}
}

// withRuntime loads configuration, wires the service and runs fn against it.
func withRuntime(ctx context.Context, fn func(context.Context, *bootstrap.Runtime, infra.Logger) error) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.InMemoryStore() {
		return errors.New("fundctl needs a postgres DATABASE_URL, the in-memory store is private to each process")
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "fundctl").Logger()

	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt, logger)
}

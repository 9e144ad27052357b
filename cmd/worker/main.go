package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ecofund/internal/bootstrap"
	"ecofund/internal/funding"
	"ecofund/internal/infra"
)

type webhookWorker struct {
	svc      *funding.Service
	logger   infra.Logger
	interval time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to initialise services")
	}
	defer rt.Close()
	if cfg.InMemoryStore() {
		logger.Warn().Msg("worker: in-memory store is private to this process, no events will arrive")
	}

	w := &webhookWorker{svc: rt.Service, logger: logger, interval: cfg.WorkerPollInterval}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// Run drains queued webhook events and then sleeps for one poll interval.
func (w *webhookWorker) Run(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.interval).Msg("worker: started")
	for {
		drained := w.drain(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if drained > 0 {
			w.logger.Debug().Int("events", drained).Msg("worker: batch done")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// drain processes events until nothing is claimable. Failed events become
// claimable again only after domain.WebhookRetryDelay.
func (w *webhookWorker) drain(ctx context.Context) int {
	const maxPerPass = 100
	n := 0
	for n < maxPerPass && ctx.Err() == nil {
		more, err := w.svc.ProcessNextWebhook(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("worker: failed to process webhook event")
			return n
		}
		if !more {
			return n
		}
		n++
	}
	return n
}

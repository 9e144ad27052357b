package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ecofund/internal/bootstrap"
	"ecofund/internal/infra"
	"ecofund/internal/infra/credentials"
)

func setStripeKeyCmd() *cobra.Command {
	var webhook bool
	cmd := &cobra.Command{
		Use:   "set-stripe-key [key]",
		Short: "Store the Stripe secret key or webhook secret in the database",
		Long: `Store a Stripe secret in integration_tokens. The API and worker use it
when STRIPE_SECRET_KEY or STRIPE_WEBHOOK_SECRET is not set. Reads the key
from stdin when no argument is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no key given")
				}
				key = line
			}
			key = strings.TrimSpace(key)

			provider := credentials.ProviderStripe
			if webhook {
				provider = credentials.ProviderStripeWebhook
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *bootstrap.Runtime, logger infra.Logger) error {
				if rt.Credentials == nil {
					return errors.New("credentials store unavailable")
				}
				if err := rt.Credentials.SetToken(ctx, provider, key); err != nil {
					return err
				}
				logger.Info().Str("provider", provider).Msg("fundctl: secret stored")
				fmt.Fprintf(cmd.OutOrStdout(), "%s secret stored (%s)\n", provider, mask(key))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&webhook, "webhook", false, "store the webhook signing secret instead of the API key")
	return cmd
}

func mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

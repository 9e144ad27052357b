package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ecofund/internal/bootstrap"
	"ecofund/internal/domain"
	"ecofund/internal/funding"
	"ecofund/internal/infra"
)

func refundCmd() *cobra.Command {
	var (
		amount int64
		reason string
	)
	cmd := &cobra.Command{
		Use:   "refund <donation-id>",
		Short: "Record a full or partial refund against a completed donation",
		Long: `Record a refund in the ledger and roll it into the campaign totals.
The refund itself must already have been issued with the payment provider.
Without --amount the whole outstanding amount is refunded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *bootstrap.Runtime, _ infra.Logger) error {
				var (
					res *funding.LifecycleResult
					err error
				)
				if amount > 0 {
					res, err = rt.Service.Refund(ctx, args[0], amount, reason)
				} else {
					res, err = rt.Service.ChangeStatus(ctx, args[0], domain.DonationStatusRefunded)
				}
				if err != nil {
					return err
				}
				printLifecycle(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&amount, "amount", 0, "refund amount in minor units (default: everything outstanding)")
	cmd.Flags().StringVar(&reason, "reason", "", "reason stored with the refund")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "status <donation-id> <pending|completed|failed|refunded>",
		Short:     "Move a donation to another status",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"pending", "completed", "failed", "refunded"},
		RunE: func(cmd *cobra.Command, args []string) error {
			to := domain.DonationStatus(strings.ToLower(strings.TrimSpace(args[1])))
			if !to.Valid() {
				return fmt.Errorf("unknown donation status %q", args[1])
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *bootstrap.Runtime, _ infra.Logger) error {
				res, err := rt.Service.ChangeStatus(ctx, args[0], to)
				if err != nil {
					return err
				}
				printLifecycle(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

func printLifecycle(w io.Writer, res *funding.LifecycleResult) {
	d := res.Donation
	fmt.Fprintf(w, "donation %s  %s  amount %s  refunded %s\n",
		d.ID, d.Status, domain.FormatMajor(d.Amount), domain.FormatMajor(d.RefundAmount))
	if c := res.Campaign; c != nil {
		fmt.Fprintf(w, "campaign %s  raised %s  donors %d\n", c.ID, domain.FormatMajor(c.CurrentAmount), c.DonorCount)
	}
}

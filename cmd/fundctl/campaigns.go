package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"ecofund/internal/bootstrap"
	"ecofund/internal/domain"
	"ecofund/internal/infra"
)

func recomputeCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "recompute [campaign-id]",
		Short: "Rebuild raised totals and donor counts from completed donations",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("pass a campaign id or --all, not both")
			}
			if !all && len(args) != 1 {
				return errors.New("a campaign id is required unless --all is set")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *bootstrap.Runtime, _ infra.Logger) error {
				out := cmd.OutOrStdout()
				if !all {
					c, err := rt.Service.Recompute(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s  raised %s of %s  donors %d\n",
						c.ID, domain.FormatMajor(c.CurrentAmount), domain.FormatMajor(c.GoalAmount), c.DonorCount)
					return nil
				}

				res, err := rt.Service.RecomputeAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "recomputed %d campaigns\n", res.Recomputed)
				if len(res.Failed) == 0 {
					return nil
				}
				ids := make([]string, 0, len(res.Failed))
				for id := range res.Failed {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				for _, id := range ids {
					fmt.Fprintf(out, "  failed %s: %v\n", id, res.Failed[id])
				}
				return fmt.Errorf("%d campaigns failed to recompute", len(res.Failed))
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "recompute every campaign")
	return cmd
}

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/jar"
)

func amountArg(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

func newJarCmd(opt *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jar",
		Short: "Show the calorie jar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				st := a.jar.State(ctx)
				p := jar.ProgressOf(st.Total)
				fmt.Fprintf(cmd.OutOrStdout(), "total=%d in_cycle=%d/%d fill=%.0f%% milestones=%d paid=%d\n",
					st.Total, p.InCycle, jar.Threshold, p.Fraction*100, p.Milestones, st.RewardedPounds)
				return nil
			})
		},
	}

	add := &cobra.Command{
		Use:   "add KCAL",
		Short: "Add saved calories to the jar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := amountArg(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				m, err := a.jar.Add(ctx, n)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "total=%d\n", a.jar.State(ctx).Total)
				if m.Reached {
					fmt.Fprintf(cmd.OutOrStdout(), "Jar milestone %d reached! +%d coins\n", m.Index, jar.MilestoneReward)
				}
				return nil
			})
		},
	}

	dismiss := &cobra.Command{
		Use:   "dismiss",
		Short: "Hide the pending milestone notice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				idx, ok := a.jar.Notice(ctx)
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to dismiss")
					return nil
				}
				return a.jar.Dismiss(ctx, idx)
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Empty the jar; paid milestones stay paid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				if err := a.jar.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}

	cmd.AddCommand(add, dismiss, reset)
	return cmd
}

func newWalletCmd(opt *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "wallet",
		Aliases: []string{"balance"},
		Short:   "Show the coin balance",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				n, err := a.wallet.Balance(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d coins\n", n)
				return nil
			})
		},
	}

	spend := &cobra.Command{
		Use:   "spend COINS",
		Short: "Spend coins",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := amountArg(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				ok, err := a.wallet.Spend(ctx, n)
				if err != nil {
					return err
				}
				if !ok {
					return errs.ErrInsufficientCoins
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}
	cmd.AddCommand(spend)
	return cmd
}

func newShopCmd(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shop",
		Short: "List badges for sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				p, err := a.profile.Load(ctx)
				if err != nil {
					return err
				}
				for _, b := range a.catalog.Badges {
					owned := ""
					if p.HasBadge(b.ID) {
						owned = " (owned)"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-12s %4d  %s%s\n", b.ID, b.Price, b.Title, owned)
				}
				return nil
			})
		},
	}
}

func newBuyCmd(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "buy BADGE_ID",
		Short: "Buy a badge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				ok, err := a.wallet.BuyBadge(ctx, args[0])
				switch {
				case errors.Is(err, errs.ErrAlreadyExists):
					fmt.Fprintln(cmd.OutOrStdout(), "already owned")
					return nil
				case err != nil:
					return err
				case !ok:
					return errs.ErrInsufficientCoins
				}
				fmt.Fprintf(cmd.OutOrStdout(), "bought %s\n", args[0])
				return nil
			})
		},
	}
}

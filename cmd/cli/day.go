package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/drinkless/internal/jar"
	"github.com/and161185/drinkless/internal/ledger"
	"github.com/and161185/drinkless/internal/model"
	"github.com/and161185/drinkless/internal/tasks"
)

func printTasks(w io.Writer, list []model.DailyTask) {
	for _, t := range list {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		lock := ""
		if !t.Actionable {
			lock = " (locked)"
		}
		fmt.Fprintf(w, "[%s] %-14s %s %s, %s%s\n", mark, t.ID, t.Icon, t.Title, t.Duration, lock)
	}
}

func printOutcome(w io.Writer, o ledger.Outcome) {
	if o.Coins > 0 {
		fmt.Fprintf(w, "+%d coins\n", o.Coins)
	}
	if o.Calories > 0 {
		fmt.Fprintf(w, "+%d kcal in the jar\n", o.Calories)
	}
	if o.Settled {
		fmt.Fprintf(w, "Day complete! Streak: %d\n", o.Streak)
	}
	if o.Milestone.Reached {
		fmt.Fprintf(w, "Jar milestone %d reached!\n", o.Milestone.Index)
	}
}

func newTodayCmd(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:     "today",
		Aliases: []string{"status"},
		Short:   "Show today's checklist, streak and jar",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				w := cmd.OutOrStdout()
				t, err := a.ledger.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s  (%s)\n", t.Day, t.Phase)
				printTasks(w, t.Tasks)

				switch t.Drink.Status {
				case ledger.DrinkNone:
					fmt.Fprintln(w, "Drinks: none today")
				case ledger.DrinkLogged:
					fmt.Fprintf(w, "Drinks: %d\n", t.Drink.Count)
				default:
					fmt.Fprintln(w, "Drinks: not reported")
				}

				if _, err := a.profile.Load(ctx); err != nil {
					a.log.Warn("profile unavailable", zap.Error(err))
				}
				s, src := a.streak.Current(ctx)
				fmt.Fprintf(w, "Streak: %d (best %d, %s)\n", s.Current, s.Longest, src)

				st := a.jar.State(ctx)
				p := jar.ProgressOf(st.Total)
				fmt.Fprintf(w, "Jar: %d/%d kcal (%d full)\n", p.InCycle, jar.Threshold, p.Milestones)
				if idx, ok := a.jar.Notice(ctx); ok {
					fmt.Fprintf(w, "New jar milestone %d! Run `drinkless jar dismiss` to hide.\n", idx)
				}

				now := time.Now().In(a.loc)
				fmt.Fprintf(w, "Workout: %s\n", a.catalog.WorkoutFor(now))
				fmt.Fprintf(w, "Tip: %s\n", a.catalog.TipFor(now))
				return nil
			})
		},
	}
}

func newTasksCmd(opt *options) *cobra.Command {
	var offset int
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Show the checklist of a day relative to today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				flags, err := a.flags.Load(ctx, model.DayKey(time.Now(), a.loc))
				if err != nil {
					return err
				}
				list, err := tasks.ForDay(offset, flags, a.catalog)
				if err != nil {
					return err
				}
				printTasks(cmd.OutOrStdout(), list)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&offset, "day", 0, "day offset: -1 yesterday, 0 today, up to 14 ahead")
	return cmd
}

func newToggleCmd(opt *options) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "toggle TASK_ID",
		Short: "Mark a task done (or not done with --undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				out, err := a.ledger.Toggle(ctx, args[0], !undo)
				if err != nil {
					return err
				}
				printOutcome(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "clear the task instead")
	return cmd
}

func newNoDrinksCmd(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "no-drinks",
		Short: "Report an alcohol-free day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				out, err := a.ledger.MarkNoDrinks(ctx)
				if err != nil {
					return err
				}
				printOutcome(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func newDrinksCmd(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "drinks COUNT",
		Short: "Log drinks had today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid count %q", args[0])
			}
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				out, err := a.ledger.LogDrinks(ctx, n)
				if err != nil {
					return err
				}
				if n > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Logged. Streak reset, tomorrow is a new start.")
				}
				printOutcome(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func newStreakCmd(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show the current and longest streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, opt, func(a *app) error {
				if _, err := a.profile.Load(ctx); err != nil {
					a.log.Warn("profile unavailable", zap.Error(err))
				}
				s, src := a.streak.Current(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "current=%d longest=%d source=%s\n", s.Current, s.Longest, src)
				return nil
			})
		},
	}
}

// Command drinkless is the device client: it keeps the daily checklist,
// settles rewards and syncs the profile with drinkless-server when signed in.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/drinkless/internal/config"
	"github.com/and161185/drinkless/internal/errs"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// options are the persistent flags shared by every command.
type options struct {
	cfg   config.Device
	debug bool
}

func newRootCmd() *cobra.Command {
	opt := &options{cfg: config.LoadDevice()}

	root := &cobra.Command{
		Use:           "drinkless",
		Short:         "drinkless tracks alcohol-free days and pays rewards for them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&opt.cfg.ServerAddr, "addr", opt.cfg.ServerAddr, "server addr")
	f.StringVar(&opt.cfg.CAPath, "cacert", opt.cfg.CAPath, "CA cert (PEM)")
	f.BoolVar(&opt.cfg.SkipVerify, "insecure", opt.cfg.SkipVerify, "skip cert verify (dev)")
	f.BoolVar(&opt.cfg.Plaintext, "plaintext", opt.cfg.Plaintext, "no TLS (dev server only)")
	f.StringVar(&opt.cfg.Cache, "cache", opt.cfg.Cache, "local cache: sqlite, redis or memory")
	f.StringVar(&opt.cfg.CachePath, "cache-path", opt.cfg.CachePath, "sqlite cache file")
	f.StringVar(&opt.cfg.RedisURL, "redis-url", opt.cfg.RedisURL, "redis cache URL")
	f.StringVar(&opt.cfg.Timezone, "tz", opt.cfg.Timezone, "IANA time zone of the device day (default local)")
	f.DurationVar(&opt.cfg.Timeout, "timeout", opt.cfg.Timeout, "remote call timeout")
	f.StringVar(&opt.cfg.SessionPath, "session", opt.cfg.SessionPath, "session file")
	f.BoolVar(&opt.debug, "debug", false, "verbose logging")

	root.AddCommand(
		newVersionCmd(),
		newRegisterCmd(opt),
		newLoginCmd(opt),
		newLogoutCmd(opt),
		newDeleteAccountCmd(opt),
		newTodayCmd(opt),
		newTasksCmd(opt),
		newToggleCmd(opt),
		newNoDrinksCmd(opt),
		newDrinksCmd(opt),
		newStreakCmd(opt),
		newJarCmd(opt),
		newWalletCmd(opt),
		newShopCmd(opt),
		newBuyCmd(opt),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "drinkless %s (%s)\n", version, buildDate)
		},
	}
}

// printErr writes err the way users expect to read it.
func printErr(w io.Writer, err error) {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		fmt.Fprintln(w, "login required:", err)
		return
	case errors.Is(err, errs.ErrNotActionable):
		fmt.Fprintln(w, "that day has not started yet")
		return
	case errors.Is(err, errs.ErrVersionConflict):
		fmt.Fprintln(w, "profile changed on another device, run the command again")
		return
	}
	if s, ok := status.FromError(err); ok && s.Code() != codes.OK {
		fmt.Fprintf(w, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		return
	}
	fmt.Fprintln(w, err)
}

// main loads .env, runs the command tree and maps errors to exit code 1.
func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd().Execute(); err != nil {
		printErr(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/drinkless/internal/identity"
	"github.com/and161185/drinkless/internal/profile"
	"github.com/and161185/drinkless/internal/streak"
)

func credentialFlags(cmd *cobra.Command, user, pass *string) {
	cmd.Flags().StringVarP(user, "username", "u", "", "username")
	cmd.Flags().StringVarP(pass, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
}

func newRegisterCmd(opt *options) *cobra.Command {
	var user, pass string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opt.cfg.Timeout)
			defer cancel()
			return withApp(ctx, opt, func(a *app) error {
				c, err := a.dial()
				if err != nil {
					return err
				}
				id, err := c.Register(ctx, user, pass)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	credentialFlags(cmd, &user, &pass)
	return cmd
}

func newLoginCmd(opt *options) *cobra.Command {
	var user, pass string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opt.cfg.Timeout)
			defer cancel()
			return withApp(ctx, opt, func(a *app) error {
				c, err := a.dial()
				if err != nil {
					return err
				}
				tok, id, err := c.Login(ctx, user, pass)
				if err != nil {
					return err
				}
				if err := identity.Save(opt.cfg.SessionPath, identity.Session{
					AccessToken: tok.AccessToken,
					UserID:      id.String(),
					ExpiresAt:   tok.ExpiresAt,
				}); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}
	credentialFlags(cmd, &user, &pass)
	return cmd
}

// forgetProfile drops the mirrored profile so the next anonymous run does
// not show the signed-out user's numbers.
func forgetProfile(ctx context.Context, a *app) error {
	return errors.Join(
		a.cache.Remove(ctx, profile.CacheKey),
		a.cache.Remove(ctx, streak.SnapshotKey),
	)
}

func newLogoutCmd(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := identity.Remove(opt.cfg.SessionPath); err != nil {
				return err
			}
			return withApp(cmd.Context(), opt, func(a *app) error {
				if err := forgetProfile(cmd.Context(), a); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}
}

func newDeleteAccountCmd(opt *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the profile and every local record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to delete without --yes")
			}
			err := withApp(cmd.Context(), opt, func(a *app) error {
				return a.profile.DeleteAccount(cmd.Context())
			})
			if err != nil {
				return err
			}
			if err := identity.Remove(opt.cfg.SessionPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "account deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

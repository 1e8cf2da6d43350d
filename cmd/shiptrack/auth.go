package main

import (
	"context"
	"fmt"

	"github.com/BearBump/ShipTrack/internal/bootstrap"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/spf13/cobra"
)

func (c *cli) newRegisterCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(1),
		RunE: c.withDeps(func(ctx context.Context, cmd *cobra.Command, args []string, deps *bootstrap.Deps) error {
			pw, err := readPassword(password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			u, _, err := deps.Users.Register(ctx, args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s registered and signed in as %s\n", ok(), u.Email)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (read from stdin when empty)")
	return cmd
}

func (c *cli) newLoginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in",
		Args:  cobra.ExactArgs(1),
		RunE: c.withDeps(func(ctx context.Context, cmd *cobra.Command, args []string, deps *bootstrap.Deps) error {
			pw, err := readPassword(password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			u, _, err := deps.Users.Login(ctx, args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s signed in as %s (%s)\n", ok(), u.Email, u.Role)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (read from stdin when empty)")
	return cmd
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: c.withDeps(func(ctx context.Context, cmd *cobra.Command, _ []string, deps *bootstrap.Deps) error {
			if err := deps.Users.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s signed out\n", ok())
			return nil
		}),
	}
}

func (c *cli) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: c.signedIn(func(ctx context.Context, cmd *cobra.Command, _ []string, deps *bootstrap.Deps, u *models.User) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", u.Email, u.Role, u.ID)
			if u.IsAdmin() {
				open, err := deps.Users.RegistrationOpen(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registration: %s\n", onOff(open))
			}
			return nil
		}),
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/BearBump/ShipTrack/internal/bootstrap"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/spf13/cobra"
)

func (c *cli) newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts (admin only)",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all accounts",
			Args:  cobra.NoArgs,
			RunE: c.signedIn(func(ctx context.Context, cmd *cobra.Command, _ []string, deps *bootstrap.Deps, u *models.User) error {
				list, err := deps.Users.ListUsers(ctx, u.ID)
				if err != nil {
					return err
				}
				tw := newTable(cmd.OutOrStdout())
				for _, it := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Email, roleBadge(it.Role), it.CreatedAt.Format("2006-01-02"))
				}
				return tw.Flush()
			}),
		},
		&cobra.Command{
			Use:   "toggle-role <user-id>",
			Short: "Promote a user to admin or demote an admin",
			Args:  cobra.ExactArgs(1),
			RunE: c.signedIn(func(ctx context.Context, cmd *cobra.Command, args []string, deps *bootstrap.Deps, u *models.User) error {
				target, err := deps.Users.PromoteDemote(ctx, u.ID, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s is now %s\n", ok(), target.Email, target.Role)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete <user-id>",
			Short: "Delete an account and its parcels",
			Args:  cobra.ExactArgs(1),
			RunE: c.signedIn(func(ctx context.Context, cmd *cobra.Command, args []string, deps *bootstrap.Deps, u *models.User) error {
				if err := deps.Users.DeleteUser(ctx, u.ID, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s user %s deleted\n", ok(), args[0])
				return nil
			}),
		},
	)
	return cmd
}

func (c *cli) newRegistrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registration",
		Short: "Control self-service registration (admin only)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Open or close registration",
		Args:  cobra.NoArgs,
		RunE: c.signedIn(func(ctx context.Context, cmd *cobra.Command, _ []string, deps *bootstrap.Deps, u *models.User) error {
			open, err := deps.Users.ToggleRegistration(ctx, u.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s registration %s\n", ok(), onOff(open))
			return nil
		}),
	})
	return cmd
}

package main

import (
	"context"
	"fmt"

	"github.com/BearBump/ShipTrack/internal/bootstrap"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/services/shipments"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newCarriersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "carriers",
		Short: "List supported carrier codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := newTable(cmd.OutOrStdout())
			for _, cr := range models.Carriers {
				fmt.Fprintf(tw, "%s\t%s\n", cr.Code, cr.Name)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <tracking-number> <carrier-code>",
		Short: "Look a parcel up and start tracking it",
		Args:  cobra.ExactArgs(2),
		RunE: c.signedIn(func(ctx context.Context, cmd *cobra.Command, args []string, deps *bootstrap.Deps, u *models.User) error {
			sh, err := deps.Shipments.Add(ctx, u.ID, args[0], args[1])
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			writeShipment(tw, sh)
			return tw.Flush()
		}),
	}
}

func (c *cli) newListCmd() *cobra.Command {
	var (
		trash  bool
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked parcels",
		Args:  cobra.NoArgs,
		RunE: c.signedIn(func(ctx context.Context, cmd *cobra.Command, _ []string, deps *bootstrap.Deps, u *models.User) error {
			f := shipments.Filter{View: shipments.ViewActive, Status: models.ShipmentStatus(status)}
			if trash {
				f.View = shipments.ViewTrash
			}
			items, err := deps.Shipments.List(ctx, u.ID, f)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no shipments")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			for _, sh := range items {
				writeShipment(tw, sh)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().BoolVar(&trash, "trash", false, "list the trash instead of active parcels")
	cmd.Flags().StringVar(&status, "status", "", "only show parcels with this status")
	return cmd
}

func (c *cli) newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Look every active parcel up again",
		Args:  cobra.NoArgs,
		RunE: c.signedIn(func(ctx context.Context, cmd *cobra.Command, _ []string, deps *bootstrap.Deps, u *models.User) error {
			rep, err := deps.Shipments.RefreshAll(ctx, u.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s refreshed %d, failed %d, skipped %d\n", ok(), len(rep.Refreshed), len(rep.Failed), len(rep.Skipped))
			for _, f := range rep.Failed {
				fmt.Fprintf(out, "%s %s: %s\n", fail(), f.TrackingNumber, f.Error)
			}
			return nil
		}),
	}
}

func (c *cli) newTrashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trash <id>...",
		Short: "Move parcels to the trash",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.signedIn(func(ctx context.Context, cmd *cobra.Command, args []string, deps *bootstrap.Deps, u *models.User) error {
			for _, id := range args {
				sh, err := deps.Shipments.SoftDelete(ctx, u.ID, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s moved to trash\n", ok(), sh.TrackingNumber)
			}
			return nil
		}),
	}
}

func (c *cli) newRestoreCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "restore <id>... | --all",
		Short: "Bring parcels back from the trash",
		RunE: c.signedIn(func(ctx context.Context, cmd *cobra.Command, args []string, deps *bootstrap.Deps, u *models.User) error {
			var (
				restored []*models.Shipment
				err      error
			)
			switch {
			case all && len(args) > 0:
				return errors.WithMessage(shipments.ErrInvalidInput, "pass ids or --all, not both")
			case all:
				if _, err := deps.Shipments.SelectAllTrashed(ctx, u.ID); err != nil {
					return err
				}
				restored, err = deps.Shipments.RestoreSelected(ctx, u.ID)
			default:
				restored, err = deps.Shipments.Restore(ctx, u.ID, args...)
			}
			if err != nil {
				return err
			}
			for _, sh := range restored {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s restored\n", ok(), sh.TrackingNumber)
			}
			if len(restored) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "trash is empty")
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "restore everything in the trash")
	return cmd
}

func (c *cli) newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <id>...",
		Short: "Delete trashed parcels for good",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.signedIn(func(ctx context.Context, cmd *cobra.Command, args []string, deps *bootstrap.Deps, u *models.User) error {
			for _, id := range args {
				if err := deps.Shipments.PermanentDelete(ctx, u.ID, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s deleted\n", ok(), id)
			}
			return nil
		}),
	}
}

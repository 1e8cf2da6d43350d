package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/BearBump/ShipTrack/config"
	"github.com/BearBump/ShipTrack/internal/bootstrap"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/services/users"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type openFunc func(ctx context.Context, configPath string, fake bool) (*bootstrap.Deps, error)

func openFromConfig(ctx context.Context, configPath string, fake bool) (*bootstrap.Deps, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if fake {
		cfg.TrackingMore.Fake = true
	}
	return bootstrap.Open(ctx, cfg)
}

type cli struct {
	open       openFunc
	configPath string
	fake       bool
}

type runFunc func(ctx context.Context, cmd *cobra.Command, args []string, deps *bootstrap.Deps) error

// withDeps opens the configured store for the duration of one command.
func (c *cli) withDeps(fn runFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		deps, err := c.open(cmd.Context(), c.configPath, c.fake)
		if err != nil {
			return err
		}
		defer deps.Close()
		return fn(cmd.Context(), cmd, args, deps)
	}
}

// signedIn is withDeps for commands that act as the signed-in account.
func (c *cli) signedIn(fn func(ctx context.Context, cmd *cobra.Command, args []string, deps *bootstrap.Deps, u *models.User) error) func(cmd *cobra.Command, args []string) error {
	return c.withDeps(func(ctx context.Context, cmd *cobra.Command, args []string, deps *bootstrap.Deps) error {
		u, _, err := deps.Users.Current(ctx)
		if errors.Is(err, users.ErrUnauthenticated) {
			return errors.WithMessage(err, "run `shiptrack login` first")
		}
		if err != nil {
			return err
		}
		return fn(ctx, cmd, args, deps, u)
	})
}

func newRootCmd(open openFunc) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:          "shiptrack",
		Short:        "Track parcels across Chinese carriers",
		SilenceUsage: true,
	}

	defaultConfig := os.Getenv("configPath")
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultConfig, "config file path")
	root.PersistentFlags().BoolVar(&c.fake, "fake", false, "use the offline carrier client instead of TrackingMore")

	root.AddCommand(
		c.newRegisterCmd(),
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newWhoamiCmd(),
		newCarriersCmd(),
		c.newAddCmd(),
		c.newListCmd(),
		c.newRefreshCmd(),
		c.newTrashCmd(),
		c.newRestoreCmd(),
		c.newPurgeCmd(),
		c.newUsersCmd(),
		c.newRegistrationCmd(),
	)
	return root
}

// readPassword prefers the flag value and otherwise reads one line from in.
func readPassword(flag string, in io.Reader) (string, error) {
	if flag != "" {
		return flag, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "read password")
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.WithMessage(users.ErrInvalidInput, "password is required (--password or stdin)")
	}
	return pw, nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flare-foundation/fspcompose/internal/docker"
	"github.com/flare-foundation/fspcompose/internal/lock"
)

var (
	upPull    bool
	upReplace bool
)

// upCmd represents the up command.
var upCmd = &cobra.Command{
	Use:   "up <service>...",
	Short: "Create and start containers for services",
	Long: `Compose the named services and hand them to the Docker daemon.

Every service is composed before any container is created, so a missing
variable or fragment leaves the daemon untouched. Only one up runs per
project at a time. Restart supervision and log rotation are left to the
daemon.

Examples:
  fspcompose up flare-fsp-observer
  fspcompose up --pull --replace flare-fsp-observer songbird-fsp-observer`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUp,
}

func init() {
	upCmd.Flags().BoolVar(&upPull, "pull", false, "Pull images before creating containers")
	upCmd.Flags().BoolVar(&upReplace, "replace", false, "Remove existing containers with the same name")

	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}

	services, err := s.composeServices(args)
	if err != nil {
		return err
	}

	opts := docker.LaunchOptions{
		Pull:    upPull,
		Replace: upReplace,
		BaseDir: s.cfg.Root,
	}

	return lock.WithLock(s.cfg.Root, "up", func() error {
		return withDockerClient(cmd.Context(), func(ctx context.Context, client *docker.Client) error {
			launcher := docker.NewLauncher(client, logger.WithField("project", s.cfg.Project))
			for _, svc := range services {
				id, err := launcher.Launch(ctx, svc, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", svc.Name, id)
			}
			return nil
		})
	})
}

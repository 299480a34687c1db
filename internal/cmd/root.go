// Package cmd provides the CLI commands for fspcompose.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flare-foundation/fspcompose/internal/ui"
)

const version = "0.1.0"

// Log formats accepted by --log-format.
const (
	logFormatText = "text"
	logFormatJSON = "json"
)

var (
	flagFile      string
	flagEnvFile   string
	flagSecrets   string
	flagProject   string
	flagVerbose   bool
	flagLogFormat string
)

// logger carries diagnostics on stderr. User-facing output goes through ui.
var logger = logrus.New()

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fspcompose",
	Short: "Compose FSP observer services from shared fragments",
	Long: `fspcompose - configuration composer for FSP observer deployments

Service definitions are built from named fragments merged in order, with the
service's own settings winning, and ${VARIABLE} tokens substituted from the
environment, a .env file and an optional SOPS secrets file.

The project document is discovered upward from the working directory:
fspcompose.yaml (fragments/services) or docker-compose.yaml (x-* anchors and
<< merge keys).

COMMANDS
  compose <service>     Print the resolved service
    --all               Every service, in declaration order
    --output, -o        yaml (default) or json
    --format            Go template with sprig functions
  list                  Services, their fragments, and declared fragments
  validate              Report missing variables and check compose schema
  export                Write a docker compose project
  up <service>...       Create and start containers for services
  update                Self-update from GitHub releases`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Configure(ui.ColorEnabled(os.Stdout.Fd()))
		return setupLogging(cmd.ErrOrStderr())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		ui.Fatal("%v", err)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagFile, "file", "f", "", "Composition document (env: FSPCOMPOSE_FILE)")
	pf.StringVar(&flagEnvFile, "env-file", "", "Variables file with defaults (env: FSPCOMPOSE_ENV_FILE, default <root>/.env)")
	pf.StringVar(&flagSecrets, "secrets", "", "SOPS-encrypted variables file (env: FSPCOMPOSE_SECRETS_FILE)")
	pf.StringVarP(&flagProject, "project", "p", "", "Compose project name (env: FSPCOMPOSE_PROJECT)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&flagLogFormat, "log-format", logFormatText, "Log format: text or json")

	rootCmd.SetVersionTemplate("fspcompose version {{.Version}}\n")
}

// setupLogging configures the diagnostic logger from the persistent flags.
func setupLogging(w io.Writer) error {
	logger.SetOutput(w)

	switch flagLogFormat {
	case logFormatText:
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case logFormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q (want %s or %s)", flagLogFormat, logFormatText, logFormatJSON)
	}

	logger.SetLevel(logrus.WarnLevel)
	if flagVerbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return nil
}

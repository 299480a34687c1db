package cmd

import (
	"github.com/spf13/cobra"

	"github.com/flare-foundation/fspcompose/internal/fileutil"
	"github.com/flare-foundation/fspcompose/internal/project"
	"github.com/flare-foundation/fspcompose/internal/ui"
)

var (
	exportOutput   string
	exportValidate bool
)

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export [service...]",
	Short: "Write a docker compose project",
	Long: `Compose services and write them as a docker compose project.

Without arguments every service is exported in declaration order. The
output goes to stdout unless --output names a file, which is replaced
atomically.

Examples:
  fspcompose export | docker compose -f - up -d
  fspcompose export -o compose.resolved.yaml
  fspcompose export songbird-fsp-observer`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (stdout if not set)")
	exportCmd.Flags().BoolVar(&exportValidate, "validate", false, "Validate the project with compose-go before writing")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = s.composer.Services()
	}

	services, err := s.composeServices(names)
	if err != nil {
		return err
	}

	p := project.Build(s.cfg.Project, s.cfg.Root, services)
	if exportValidate {
		if err := project.Validate(cmd.Context(), p); err != nil {
			return err
		}
	}

	data, err := project.Marshal(p)
	if err != nil {
		return err
	}

	if err := fileutil.WriteOutput(cmd.OutOrStdout(), exportOutput, data); err != nil {
		return err
	}
	if exportOutput != "" && exportOutput != "-" {
		ui.Success("Wrote %d service(s) to %s", len(services), exportOutput)
	}
	return nil
}

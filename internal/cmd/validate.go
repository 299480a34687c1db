package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flare-foundation/fspcompose/internal/composer"
	"github.com/flare-foundation/fspcompose/internal/project"
	"github.com/flare-foundation/fspcompose/internal/ui"
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate every service without starting anything",
	Long: `Validate the project document without making changes.

This command performs validation checks:
  1. Every service's fragment references are declared
  2. Every ${VARIABLE} is bound by the environment, .env or secrets
  3. Every resolved service has a known shape
  4. The exported project passes compose-spec validation and its env
     files exist

All problems are reported, not only the first.

Examples:
  fspcompose validate
  fspcompose validate --secrets secrets.sops.yaml`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	problems := 0
	report := func(format string, args ...any) {
		problems++
		fmt.Fprintf(out, "✗ "+format+"\n", args...)
	}

	var services []*composer.ResolvedService
	for _, name := range s.composer.Services() {
		missing, err := s.missingVariables(name)
		if err != nil {
			report("%v", err)
			continue
		}
		if len(missing) > 0 {
			for _, v := range missing {
				report("%s: unresolved variable ${%s}", name, v)
			}
			continue
		}

		svc, err := s.composer.Compose(name)
		if err != nil {
			report("%v", err)
			continue
		}
		services = append(services, svc)
	}

	if len(services) > 0 {
		p := project.Build(s.cfg.Project, s.cfg.Root, services)
		if err := project.Validate(cmd.Context(), p); err != nil {
			report("%v", err)
		}
	}

	if problems > 0 {
		return fmt.Errorf("validation failed: %d problem(s)", problems)
	}

	ui.Success("%d service(s) valid", len(services))
	return nil
}

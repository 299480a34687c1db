package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flare-foundation/fspcompose/internal/composer"
)

// Output formats accepted by --output.
const (
	outputYAML = "yaml"
	outputJSON = "json"
)

var (
	composeOutput string
	composeFormat string
	composeAll    bool
)

// composeCmd represents the compose command.
var composeCmd = &cobra.Command{
	Use:   "compose [service]",
	Short: "Print a resolved service",
	Long: `Merge a service's fragments in order, apply its own settings on top and
substitute every ${VARIABLE}, then print the result.

Templates passed with --format receive the resolved service (.Name, .Image,
.Hostname, .ContainerName, .EnvFiles, .Restart, .Logging, .StdinOpen, .Tty)
and have all sprig functions available.

Examples:
  fspcompose compose flare-fsp-observer
  fspcompose compose flare-fsp-observer -o json
  fspcompose compose --all
  fspcompose compose --all --format '{{ .Name }} {{ .Image | quote }}'`,
	Args: func(cmd *cobra.Command, args []string) error {
		if composeAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runCompose,
}

func init() {
	composeCmd.Flags().StringVarP(&composeOutput, "output", "o", outputYAML, "Output format: yaml or json")
	composeCmd.Flags().StringVar(&composeFormat, "format", "", "Go template applied to each service")
	composeCmd.Flags().BoolVarP(&composeAll, "all", "a", false, "Compose every service in declaration order")

	rootCmd.AddCommand(composeCmd)
}

func runCompose(cmd *cobra.Command, args []string) error {
	render, err := newRenderer(composeOutput, composeFormat, composeAll)
	if err != nil {
		return err
	}

	s, err := loadSession()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if !composeAll {
		svc, err := s.composer.Compose(args[0])
		if err != nil {
			return err
		}
		return render(out, svc, false)
	}

	var errs []error
	first := true
	for svc, err := range s.composer.ComposeAll() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := render(out, svc, !first); err != nil {
			return err
		}
		first = false
	}
	return errors.Join(errs...)
}

// renderFunc writes one service. more is set for every service after the
// first in a multi-service listing.
type renderFunc func(w io.Writer, svc *composer.ResolvedService, more bool) error

// newRenderer picks the renderer for the --output and --format flags. multi
// selects the listing layout used when more than one service is written.
func newRenderer(output, format string, multi bool) (renderFunc, error) {
	if format != "" {
		tmpl, err := template.New("format").Funcs(sprig.TxtFuncMap()).Parse(format)
		if err != nil {
			return nil, fmt.Errorf("parse --format template: %w", err)
		}
		return func(w io.Writer, svc *composer.ResolvedService, _ bool) error {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, svc); err != nil {
				return fmt.Errorf("execute --format template for %s: %w", svc.Name, err)
			}
			if !strings.HasSuffix(buf.String(), "\n") {
				buf.WriteByte('\n')
			}
			_, err := w.Write(buf.Bytes())
			return err
		}, nil
	}

	switch output {
	case outputYAML:
		return renderYAML(multi), nil
	case outputJSON:
		return renderJSON(multi), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want %s or %s)", output, outputYAML, outputJSON)
	}
}

func renderYAML(multi bool) renderFunc {
	return func(w io.Writer, svc *composer.ResolvedService, more bool) error {
		data, err := yaml.Marshal(svc)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", svc.Name, err)
		}
		if more {
			fmt.Fprintln(w, "---")
		}
		if multi {
			fmt.Fprintf(w, "# %s\n", svc.Name)
		}
		_, err = w.Write(data)
		return err
	}
}

// renderJSON writes indented JSON for a single service and one compact
// object per line for listings.
func renderJSON(multi bool) renderFunc {
	return func(w io.Writer, svc *composer.ResolvedService, _ bool) error {
		var (
			data []byte
			err  error
		)
		if multi {
			data, err = json.Marshal(struct {
				Name string `json:"name"`
				*composer.ResolvedService
			}{svc.Name, svc})
		} else {
			data, err = json.MarshalIndent(svc, "", "  ")
		}
		if err != nil {
			return fmt.Errorf("marshal %s: %w", svc.Name, err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
}

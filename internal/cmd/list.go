package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// listCmd represents the list command.
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List services and fragments",
	Long: `List declared services with the fragments they merge, in declaration
order, followed by the declared fragments.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tFRAGMENTS")
	fmt.Fprintln(w, "-------\t---------")

	for _, name := range s.composer.Services() {
		override, _ := s.composer.Override(name)
		refs := strings.Join(override.Fragments, ", ")
		if refs == "" {
			refs = "-"
		}
		fmt.Fprintf(w, "%s\t%s\n", name, refs)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fragments := s.composer.Fragments()
	if len(fragments) == 0 {
		return nil
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "\nFragments: %s\n", strings.Join(fragments, ", "))
	return err
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "List configured feeds by category",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cmd.Context(), os.Stderr)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tNAME\tURL")
		for _, category := range a.registry.CategoryNames() {
			for _, src := range a.registry.SourcesIn(category) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", category, src.Name, src.URL)
			}
		}
		fmt.Fprintf(w, "\n%d feeds in %d categories\n", a.registry.TotalFeeds(), len(a.registry.CategoryNames()))
		return w.Flush()
	},
}

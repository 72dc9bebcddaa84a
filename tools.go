package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xiaot623/entertainbot/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools offered to the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := tools.Definitions()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCLIENT\tREQUIRED\tDESCRIPTION")
		for _, d := range defs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, d.Client, strings.Join(d.Required(), ","), firstLine(d.Description))
		}
		return w.Flush()
	},
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

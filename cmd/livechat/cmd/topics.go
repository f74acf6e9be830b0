package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/nfrund/livechat/internal/events"
	"github.com/spf13/cobra"
)

var topicsFormat string

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the event bus topics",
	Long: `List the topics published on the internal event bus.

Output formats:
  table - Human-readable table format (default)
  json  - Machine-readable JSON format`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := events.Catalog()
		out := cmd.OutOrStdout()

		switch topicsFormat {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(catalog)
		case "table":
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TOPIC\tPAYLOAD\tDESCRIPTION")
			for _, t := range catalog {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.Payload, t.Description)
			}
			return w.Flush()
		default:
			return fmt.Errorf("invalid format %q: use table or json", topicsFormat)
		}
	},
}

func init() {
	topicsCmd.Flags().StringVar(&topicsFormat, "format", "table", "output format (table|json)")
	rootCmd.AddCommand(topicsCmd)
}

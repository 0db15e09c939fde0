package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/kylixs/flareon/internal/aggregate"
	"github.com/kylixs/flareon/internal/decoder"
	"github.com/spf13/cobra"
)

var (
	summaryJSON   bool
	summaryMode   string
	summaryFormat string
)

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "Print the summary as JSON")
	summaryCmd.Flags().StringVar(&summaryMode, "span", "", "Time span mode: first-last or min-max (overrides config)")
	summaryCmd.Flags().StringVar(&summaryFormat, "format", "", "Decode only with this decoder: go_trace, event_stream or json_lines")
}

var summaryCmd = &cobra.Command{
	Use:   "summary <id>",
	Short: "Print the summary of a trace file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if summaryMode != "" {
			mode, err := aggregate.ParseSpanMode(summaryMode)
			if err != nil {
				return err
			}
			cfg.Processing.TimeSpanMode = string(mode)
		}

		decoders := decoder.NewRegistry()
		if summaryFormat != "" {
			only, err := decoders.Only(summaryFormat)
			if err != nil {
				return err
			}
			decoders = only
		}

		a, err := newApp(cfg, false, decoders)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.manager.List(); err != nil {
			return err
		}
		summary, err := a.manager.GetSummary(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if summaryJSON {
			data, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "Start:    %d\n", summary.StartTime)
		fmt.Fprintf(out, "End:      %d\n", summary.EndTime)
		fmt.Fprintf(out, "Duration: %d ms\n", summary.DurationMs)
		fmt.Fprintf(out, "Events:   %d\n\n", summary.TotalEvents())

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tCOUNT")
		for _, stat := range summary.Stats() {
			fmt.Fprintf(tw, "%s\t%d\n", stat.Type, stat.Count)
		}
		return tw.Flush()
	},
}

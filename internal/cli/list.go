package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listJSON bool

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print the listing as JSON")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List trace files in the trace directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, false, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.manager.List()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if listJSON {
			data, err := json.MarshalIndent(files, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSIZE\tMODIFIED")
		for _, f := range files {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", f.ID, f.Name, f.Size, f.ModifiedAt.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}

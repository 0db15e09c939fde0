package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kylixs/flareon/internal/decoder"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := map[string]string{
			"version":   Version,
			"buildTime": BuildTime,
			"name":      "flareon",
			"decoders":  strings.Join(decoder.NewRegistry().Names(), ","),
		}
		out, _ := json.MarshalIndent(info, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	},
}

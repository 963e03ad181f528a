package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// CreateModesCmd creates the modes command.
func CreateModesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "modes",
		Short: "List input timings the bridge can match",
		Long: `Prints the timing table the RX detector matches the measured DSI stream against. ` +
			`The entry marked with * is the mode advertised to the display pipeline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			timings := lt9211c.SupportedTimings()
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(timings)
			}

			def := lt9211c.DefaultTiming()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\tMODE\tRATE\tHTOTAL\tVTOTAL\tPCLK")
			for _, t := range timings {
				mark := ""
				if t == def {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%dx%d\t%d\t%d\t%d\t%s\n",
					mark, t.HActive, t.VActive, t.FrameRate, t.HTotal, t.VTotal, t.PixelClock())
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print timings as JSON")
	return cmd
}

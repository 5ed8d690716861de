package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan plugin roots and report discovered extensions",
		Long: `Scan the configured plugin roots and report every discovered
extension along with its load outcome. Directories with invalid
manifests are listed as skipped; they never abort the scan.`,
		Example: `  # Scan with the default configuration
  modulaur scan

  # Scan with an explicit config file, JSON output
  modulaur scan -c ./modulaur.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			status := svc.Status()
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(status)
			}

			fmt.Printf("Discovered %d extension(s), %d loaded, %d failed\n",
				status.Discovered, status.Loaded, status.Failed)
			for kind, count := range status.Registries {
				fmt.Printf("  %s registry: %d entries\n", kind, count)
			}
			if len(status.Skipped) > 0 {
				fmt.Printf("\nSkipped directories:\n")
				w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
				for _, skip := range status.Skipped {
					fmt.Fprintf(w, "  %s\t%s\n", skip.Dir, skip.Reason)
				}
				w.Flush()
			}
			return nil
		},
	}

	return cmd
}

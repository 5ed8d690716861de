package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "List stored pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer cleanup()

			pages, err := svc.Pages().ListPages(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(pages)
			}

			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tROUTE\tTYPE\tLAYOUT\tVISIBLE")
			for _, p := range pages {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
					p.ID, p.Name, p.Route, p.TypeID, p.LayoutID, p.Visible)
			}
			return w.Flush()
		},
	}

	return cmd
}

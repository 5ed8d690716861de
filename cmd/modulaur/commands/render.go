package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modulaur/modulaur/pkg/host"
)

func newRenderCommand() *cobra.Command {
	var byRoute bool

	cmd := &cobra.Command{
		Use:   "render <page-id|route>",
		Short: "Resolve a stored page into a renderable view",
		Long: `Resolve a stored page: its layout, every panel's type, and each
panel's configuration controls. Panels whose type identifier no longer
resolves appear as fallbacks instead of disappearing.`,
		Example: `  # Render a page by ID
  modulaur render 6df1c5da-…

  # Render a page by its route
  modulaur render --route /work`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer cleanup()

			var view *host.PageView
			if byRoute {
				view, err = svc.RenderPageByRoute(cmd.Context(), args[0])
			} else {
				view, err = svc.RenderPage(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(view)
			}

			fmt.Printf("Page %s (%s), layout %s\n", view.Page.Name, view.Page.Route, view.Page.LayoutID)
			for _, p := range view.Panels {
				if p.Fallback != nil {
					fmt.Printf("  [fallback] %s: %s\n", p.Panel.TypeID, p.Fallback.Reason)
					continue
				}
				fmt.Printf("  %s %q at (%d,%d) %dx%d, %d control(s)\n",
					p.Entry.ID, p.Panel.Title, p.Panel.X, p.Panel.Y, p.Panel.W, p.Panel.H, len(p.Controls))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&byRoute, "route", false, "treat the argument as a route instead of a page ID")

	return cmd
}

package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPluginsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect and manage installed extensions",
	}

	cmd.AddCommand(newPluginsListCommand())
	cmd.AddCommand(newPluginsInfoCommand())
	cmd.AddCommand(newPluginsReloadCommand())
	cmd.AddCommand(newPluginsUnloadCommand())

	return cmd
}

func newPluginsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered extensions and their load state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			list := svc.List()
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(list)
			}

			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVERSION\tTYPE\tPHASE\tUNITS\tNAME")
			for _, info := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					info.Descriptor.ID,
					info.Descriptor.Version,
					info.Descriptor.Type,
					info.State.Phase,
					info.State.Units,
					info.Descriptor.Name,
				)
			}
			return w.Flush()
		},
	}
}

func newPluginsInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <id>",
		Short: "Show one extension's manifest and load state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			info, err := svc.Get(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(info)
			}

			d := info.Descriptor
			fmt.Printf("ID:          %s\n", d.ID)
			fmt.Printf("Name:        %s\n", d.Name)
			fmt.Printf("Version:     %s\n", d.Version)
			fmt.Printf("Type:        %s\n", d.Type)
			fmt.Printf("Directory:   %s\n", d.Dir)
			if d.Description != "" {
				fmt.Printf("Description: %s\n", d.Description)
			}
			if d.Author != "" {
				fmt.Printf("Author:      %s\n", d.Author)
			}
			if len(d.Permissions) > 0 {
				fmt.Printf("Permissions: %s\n", strings.Join(d.Permissions, ", "))
			}
			if len(d.Components) > 0 {
				fmt.Printf("Declares:\n")
				for _, c := range d.Components {
					fmt.Printf("  %s/%s\n", c.Kind, c.ID)
				}
			}
			fmt.Printf("Phase:       %s\n", info.State.Phase)
			if info.State.Reason != "" {
				fmt.Printf("Reason:      %s\n", info.State.Reason)
			}
			if info.State.Phase == "loaded" {
				fmt.Printf("Units:       %d\n", info.State.Units)
			}
			return nil
		},
	}
}

func newPluginsReloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reload [id]",
		Short: "Reload one extension, or rescan and reload everything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 1 {
				if err := svc.Reload(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Reloaded %s\n", args[0])
				return nil
			}

			loaded, err := svc.ReloadAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Reloaded %d extension(s)\n", loaded)
			return nil
		},
	}
}

func newPluginsUnloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unload <id>",
		Short: "Drop an extension's registered units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			removed := svc.Unload(args[0])
			fmt.Printf("Unloaded %s (%d unit(s) removed)\n", args[0], removed)
			return nil
		},
	}
}

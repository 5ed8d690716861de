package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/modulaur/modulaur/pkg/extension/manifest"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <dir-or-manifest>",
		Short: "Validate an extension manifest",
		Long: `Validate an extension directory's manifest.json against the manifest
schema: required fields, kebab-case ID, semantic version, entry path
confinement, and component declarations.`,
		Example: `  # Validate an extension directory
  modulaur validate ./my-extension

  # Validate a manifest file directly
  modulaur validate ./my-extension/manifest.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			dir := filepath.Dir(path)
			if info.IsDir() {
				dir = path
				path = filepath.Join(path, manifest.FileName)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read manifest: %w", err)
			}

			d, err := manifest.Parse(data, dir, filepath.Dir(dir))
			if err != nil {
				return err
			}

			fmt.Printf("OK: %s %s (%s)\n", d.ID, d.Version, d.Type)
			if len(d.Components) > 0 {
				for _, c := range d.Components {
					fmt.Printf("  declares %s/%s\n", c.Kind, c.ID)
				}
			}
			return nil
		},
	}

	return cmd
}

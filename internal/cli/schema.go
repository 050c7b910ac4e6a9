package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkgfoundry/wheelscan/pkg/schema"
)

// schemaCommand creates the schema command for printing the report schema.
func (c *CLI) schemaCommand() *cobra.Command {
	var (
		kindStr string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema inspection reports conform to",
		Long: `Print the JSON Schema inspection reports conform to.

Two variants exist: "wheel" for archive inspections (adds the
filename-derived keys and the archive fingerprint) and "dist-info" for
directory and metadata-only inspections.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := schema.ParseKind(kindStr)
			if err != nil {
				return err
			}
			doc, err := schema.Document(kind)
			if err != nil {
				return err
			}

			if output == "" {
				_, err := os.Stdout.Write(doc)
				return err
			}
			if err := os.WriteFile(output, doc, 0o644); err != nil {
				return fmt.Errorf("write schema: %w", err)
			}
			printSuccess("Wrote %s schema", kind)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindStr, "kind", "k", "wheel", "report variant: wheel or dist-info")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

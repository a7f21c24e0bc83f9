package console

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCompileCommand(rt *runtime) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "compile [files...]",
		Short: "Compile definition files and write the container snapshot",
		Long: `Compile loads the definition files, checks parameter and service
references and dependency cycles, then writes the compiled container as YAML.

The snapshot can be loaded back without the definition files.

Examples:
  inject compile services.yaml
  inject compile services.yaml --out var/container.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.application(cmd, args)
			if err := requireDefinitions(a); err != nil {
				return err
			}

			c, err := a.Build()
			if err != nil {
				return fmt.Errorf("compile: %w", err)
			}
			data, err := c.Dump()
			if err != nil {
				return err
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Compiled %d services into %s (build %s)\n",
				len(c.ServiceIDs()), out, c.Graph().ID())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the snapshot to this file instead of stdout")
	return cmd
}

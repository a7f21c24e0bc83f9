package console

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-inject/framework/container"
)

func newDebugCommand(rt *runtime) *cobra.Command {
	var (
		tag        string
		parameters bool
	)

	cmd := &cobra.Command{
		Use:   "debug [files...]",
		Short: "List compiled services in dependency order",
		Long: `Debug compiles the definition files and prints every service in the
order it would be built: dependencies before the services that use them.

Examples:
  inject debug services.yaml
  inject debug services.yaml --tag newsletter
  inject debug services.yaml --parameters`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.application(cmd, args)
			if err := requireDefinitions(a); err != nil {
				return err
			}
			c, err := a.Build()
			if err != nil {
				return fmt.Errorf("compile: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if parameters {
				printParameters(w, c.Graph())
			} else {
				printServices(w, c.Graph(), tag)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "only show services with this tag")
	cmd.Flags().BoolVar(&parameters, "parameters", false, "show parameters instead of services")
	return cmd
}

func printServices(w *tabwriter.Writer, g *container.Graph, tag string) {
	aliases := make(map[string][]string)
	for alias, target := range g.Aliases() {
		aliases[target] = append(aliases[target], alias)
	}

	fmt.Fprintln(w, "SERVICE\tCLASS\tSHARED\tARGUMENTS\tALIASES")
	for _, id := range g.Order() {
		def, _ := g.Definition(id)
		if tag != "" && !def.HasTag(tag) {
			continue
		}
		args := make([]string, 0, len(def.Arguments()))
		for _, arg := range def.Arguments() {
			args = append(args, arg.String())
		}
		slices.Sort(aliases[id])
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
			id, def.Implementation(), def.Shared(),
			strings.Join(args, ", "), strings.Join(aliases[id], ", "))
	}
}

func printParameters(w *tabwriter.Writer, g *container.Graph) {
	params := g.Parameters()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Fprintln(w, "PARAMETER\tVALUE")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%v\n", name, params[name])
	}
}

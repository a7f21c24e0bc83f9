// Package console holds the inject command line: compile definition files
// to a snapshot, list services, and serve the inspection routes.
package console

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-inject/framework/app"
	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/logging"
	"github.com/km-arc/go-inject/framework/providers"
)

// runtime carries the flags shared by every command.
type runtime struct {
	envFile string
	strict  bool
	opts    []app.Option
}

// NewRootCommand builds the command tree. opts are passed to every
// Application the commands create, so a binary that links constructors can
// embed the same commands:
//
//	console.NewRootCommand(app.WithConstructors(myConstructors)).Execute()
func NewRootCommand(opts ...app.Option) *cobra.Command {
	rt := &runtime{opts: opts}

	root := &cobra.Command{
		Use:   "inject",
		Short: "Build and inspect service containers",
		Long: `inject compiles YAML service definitions into a container graph.

Definition files come from the arguments or INJECT_DEFINITIONS.

Examples:
  inject compile services.yaml --out container.yaml
  inject debug services.yaml
  inject serve`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&rt.envFile, "env-file", ".env", "environment file to load")
	root.PersistentFlags().BoolVar(&rt.strict, "strict", false, "fail on implementations without a linked constructor")

	root.AddCommand(
		newCompileCommand(rt),
		newDebugCommand(rt),
		newServeCommand(rt),
	)
	return root
}

// Execute runs the command tree and exits non-zero on error.
func Execute(opts ...app.Option) {
	if err := NewRootCommand(opts...).Execute(); err != nil {
		os.Exit(1)
	}
}

// application loads the configuration, lets files override the configured
// definitions, and logs to the command's stderr.
func (rt *runtime) application(cmd *cobra.Command, files []string) *app.Application {
	cfg := config.Load(rt.envFile)
	if len(files) > 0 {
		cfg.Inject.Definitions = files
	}
	logger := logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())

	opts := append([]app.Option{app.WithLogger(logger)}, rt.opts...)
	if !rt.strict {
		opts = append(opts, app.WithHooks(providers.PlaceholderHook{}))
	}
	return app.New(cfg, opts...)
}

func requireDefinitions(a *app.Application) error {
	if len(a.Config.Inject.Definitions) == 0 {
		return errors.New("no definition files: pass them as arguments or set INJECT_DEFINITIONS")
	}
	return nil
}

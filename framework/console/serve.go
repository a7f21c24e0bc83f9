package console

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve [files...]",
		Short: "Serve the container inspection routes",
		Long: `Serve compiles the definition files and serves the read-only
inspection routes (/services, /parameters, /snapshot, /reload, /metrics)
until interrupted.

Examples:
  inject serve services.yaml
  inject serve services.yaml --addr :9000 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.application(cmd, args)
			if err := requireDefinitions(a); err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				a.Config.HTTP.Addr = addr
			}
			if cmd.Flags().Changed("watch") {
				a.Config.Inject.Watch = watch
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides HTTP_ADDR")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload when definition files change, overrides INJECT_WATCH")
	return cmd
}

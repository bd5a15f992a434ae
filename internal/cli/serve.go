package cli

import (
	"github.com/spf13/cobra"

	"slideshow/internal/app"
	"slideshow/internal/logger"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the slideshow HTTP service",
		Example: `  # Serve ~/Pictures on the default port
  slideshow serve

  # Serve another folder on port 9000
  slideshow serve --folder /srv/photos --port 9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				opts.cfg.Port = port
			}

			appLogger, err := logger.NewLogger(opts.cfg.LogDirectory)
			if err != nil {
				return err
			}

			application, err := app.NewApp(cmd.Context(), opts.cfg, appLogger)
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (defaults to PORT)")

	return cmd
}

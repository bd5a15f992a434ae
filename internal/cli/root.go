package cli

import (
	"io"

	"github.com/spf13/cobra"

	"slideshow/internal/config"
	"slideshow/internal/logger"
	"slideshow/internal/service/thumbnail"
)

type rootOptions struct {
	folder  string
	dbName  string
	verbose bool
	cfg     *config.Config
}

var newResizer = func() thumbnail.Resizer {
	return thumbnail.NewGocvResizer()
}

// NewRootCmd builds the slideshow command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "slideshow",
		Short: "Photo slideshow catalog service",
		Long: `Slideshow keeps a catalog of the JPEG images in a folder and serves them
to display devices in a fair rotation.

Run "slideshow serve" for the HTTP service, or use the other commands to
inspect and maintain a catalog offline.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.cfg = config.Load()
			if opts.folder != "" {
				opts.cfg.ImageDirectory = opts.folder
			}
			if opts.dbName != "" {
				opts.cfg.DatabaseName = opts.dbName
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.folder, "folder", "f", "", "Image folder (defaults to IMAGE_DIR)")
	cmd.PersistentFlags().StringVar(&opts.dbName, "db", "", "Catalog name inside the folder (defaults to DATABASE_NAME)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log service activity to stderr")

	cmd.AddCommand(
		newServeCmd(opts),
		newReconcileCmd(opts),
		newListCmd(opts),
		newThumbnailsCmd(opts),
		newShowCmd(opts),
		newNextCmd(opts),
	)

	return cmd
}

func (o *rootOptions) logger(w io.Writer) *logger.Logger {
	if o.verbose {
		return logger.NewWriter(w)
	}
	return logger.NewDiscard()
}

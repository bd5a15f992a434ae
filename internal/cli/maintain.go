package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReconcileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Bring the catalog in line with the JPEG files in the folder",
		Long: `Adds a record for every JPEG in the folder that has none, removes records
whose file is gone and regenerates missing thumbnails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer ws.Close()

			res, err := ws.reconciler.ReconcileCurrent(cmd.Context())
			if err != nil {
				return err
			}
			ws.pipeline.Wait()

			sweep := ws.pipeline.LastSweep()
			fmt.Fprintf(cmd.OutOrStdout(), "added %d, removed %d, failed %d\n", res.Added, res.Removed, res.Failed)
			fmt.Fprintf(cmd.OutOrStdout(), "thumbnails: generated %d, skipped %d, failed %d\n", sweep.Generated, sweep.Skipped, sweep.Failed)
			return nil
		},
	}
}

func newThumbnailsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "thumbnails",
		Short: "Generate thumbnails for catalogued images that lack one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer ws.Close()

			ws.pipeline.EnsureThumbnails()
			ws.pipeline.Wait()

			sweep := ws.pipeline.LastSweep()
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d, skipped %d, failed %d\n", sweep.Generated, sweep.Skipped, sweep.Failed)
			return nil
		},
	}
}

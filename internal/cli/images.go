package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"slideshow/internal/dto"
	"slideshow/internal/service/catalog"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the catalog records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "yaml" && format != "json" {
				return fmt.Errorf("unknown format %q, expected yaml or json", format)
			}

			ws, err := openWorkspace(opts, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer ws.Close()

			images, err := ws.catalog.All()
			if err != nil {
				return err
			}
			sort.SliceStable(images, func(i, j int) bool {
				return images[i].CreatedDate.After(images[j].CreatedDate)
			})

			return writeImages(cmd.OutOrStdout(), format, dto.ImageInfos(images))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", "yaml", "Output format: yaml or json")

	return cmd
}

func writeImages(w io.Writer, format string, infos []dto.ImageInfo) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(infos); err != nil {
		return err
	}
	return enc.Close()
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var hide bool

	cmd := &cobra.Command{
		Use:   "show <uuid>",
		Short: "Include an image in the rotation, or exclude it with --hide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer ws.Close()

			img, err := ws.catalog.SetShow(cmd.Context(), args[0], !hide)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s show=%t\n", img.Filename, img.Show)
			return nil
		},
	}

	cmd.Flags().BoolVar(&hide, "hide", false, "Exclude the image from the rotation")

	return cmd
}

func newNextCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Advance the rotation and print the chosen file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer ws.Close()

			img, err := ws.catalog.SelectNext(cmd.Context())
			if errors.Is(err, catalog.ErrNoImages) {
				fmt.Fprintln(cmd.OutOrStdout(), "no images")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ws.catalog.ImagePath(img.Filename))
			return nil
		},
	}
}

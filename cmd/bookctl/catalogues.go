package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"bookvote/internal/shelf"

	"github.com/spf13/cobra"
)

func newCataloguesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogues",
		Short: "List and register catalogues",
	}
	cmd.AddCommand(newCataloguesListCmd(a), newCataloguesRegisterCmd(a))
	return cmd
}

func newCataloguesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalogues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withShelf(cmd, func(ctx context.Context, s *shelf.Shelf) error {
				if err := s.Load(ctx); err != nil {
					return err
				}
				catalogues := s.Catalogues()
				if a.asJSON {
					return writeJSON(cmd.OutOrStdout(), catalogues)
				}
				return writeCatalogues(cmd.OutOrStdout(), catalogues)
			})
		},
	}
}

func newCataloguesRegisterCmd(a *app) *cobra.Command {
	var in shelf.CatalogueInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withShelf(cmd, func(ctx context.Context, s *shelf.Shelf) error {
				if err := s.Load(ctx); err != nil {
					return err
				}
				c, err := s.RegisterCatalogue(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered catalogue #%d %s\n", c.Index, c.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.URL, "url", "", "Catalogue URL")
	cmd.Flags().StringVar(&in.Name, "name", "", "Catalogue name")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	return cmd
}

func writeCatalogues(out io.Writer, catalogues []shelf.Catalogue) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tVOTES\tNAME\tDESCRIPTION")
	for _, c := range catalogues {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", c.Index, c.Votes, c.Name, c.Description)
	}
	return tw.Flush()
}

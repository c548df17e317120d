package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"bookvote/internal/shelf"

	"github.com/spf13/cobra"
)

func newBooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List, vote on and register books",
	}
	cmd.AddCommand(newBooksListCmd(a), newBooksVoteCmd(a), newBooksRegisterCmd(a))
	return cmd
}

func newBooksListCmd(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, most votes first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withShelf(cmd, func(ctx context.Context, s *shelf.Shelf) error {
				if err := s.Load(ctx); err != nil {
					return err
				}
				books := shelf.FilterBooks(s.Books(), filter)
				if a.asJSON {
					return writeJSON(cmd.OutOrStdout(), books)
				}
				return writeBooks(cmd.OutOrStdout(), books)
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Only show books fuzzily matching name, author or catalogue")
	return cmd
}

func newBooksVoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <index> <amount>",
		Short: "Vote for a book by sending amount aettos",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}

			return a.withShelf(cmd, func(ctx context.Context, s *shelf.Shelf) error {
				if err := s.Load(ctx); err != nil {
					return err
				}
				b, err := s.Vote(ctx, index, amount)
				if err != nil {
					return err
				}
				if _, ok := s.Book(b.Index); !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "voted %d for #%d, count pending until the next load\n", amount, b.Index)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "voted %d for #%d %s, now %d\n", amount, b.Index, b.Name, b.Votes)
				return nil
			})
		},
	}
}

func newBooksRegisterCmd(a *app) *cobra.Command {
	var in shelf.BookInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withShelf(cmd, func(ctx context.Context, s *shelf.Shelf) error {
				if err := s.Load(ctx); err != nil {
					return err
				}
				b, err := s.RegisterBook(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered #%d %s\n", b.Index, b.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.URL, "url", "", "Cover image URL")
	cmd.Flags().StringVar(&in.Name, "name", "", "Book name")
	cmd.Flags().StringVar(&in.Catalogue, "catalogue", "", "Catalogue name")
	cmd.Flags().StringVar(&in.Author, "author", "", "Author")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	return cmd
}

func writeBooks(out io.Writer, books []shelf.Book) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tVOTES\tNAME\tAUTHOR\tCATALOGUE")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", b.Index, b.Votes, b.Name, b.Author, b.Catalogue)
	}
	return tw.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moneymngr/moneymngr/internal/categories"
	"github.com/moneymngr/moneymngr/internal/model"
)

func newCategoryCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}
	cmd.AddCommand(
		newCategoryAddCommand(opts),
		newCategoryListCommand(opts),
		newCategoryDeleteCommand(opts),
	)
	return cmd
}

func newCategoryAddCommand(opts *rootOptions) *cobra.Command {
	var typ, parent, icon string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				p := categories.CreateParams{
					Name: args[0],
					Type: model.CategoryType(strings.ToUpper(typ)),
					Icon: icon,
				}
				if parent != "" {
					pc, err := a.categories.Resolve(ctx, parent)
					if err != nil {
						return err
					}
					p.ParentID = pc.ID
				}
				c, err := a.categories.Create(ctx, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Added %s category %s\n", c.Type, c.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&typ, "type", "expense", "expense or income")
	cmd.Flags().StringVar(&parent, "parent", "", "parent category name or id")
	cmd.Flags().StringVar(&icon, "icon", "", "icon name")
	return cmd
}

func newCategoryListCommand(opts *rootOptions) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				all, err := a.categories.All(ctx)
				if err != nil {
					return err
				}
				if typ != "" {
					all = categories.ByType(all, model.CategoryType(strings.ToUpper(typ)))
				}
				names := make(map[string]string, len(all))
				for _, c := range all {
					names[c.ID] = c.Name
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tTYPE\tPARENT")
				for _, c := range all {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Type, names[c.ParentID])
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "only expense or income")
	return cmd
}

func newCategoryDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <category>",
		Short: "Delete an unused category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				c, err := a.categories.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.categories.Delete(ctx, c.ID); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted category %s\n", c.Name)
				return nil
			})
		},
	}
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/lazyblog/internal/errors"
	"github.com/vango-dev/lazyblog/internal/pages"
	"github.com/vango-dev/lazyblog/internal/posts"
)

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		Long: `Print the route table as a tree. Deferred routes are loaded on first
navigation; their loader comes with the module.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The table does not depend on where posts and bundles come from.
			rt, err := pages.NewRouter(pages.Deps{Posts: posts.NewMemoryStore()})
			if err != nil {
				return errors.New("E144").Wrap(err)
			}
			return rt.Print(cmd.OutOrStdout())
		},
	}
}

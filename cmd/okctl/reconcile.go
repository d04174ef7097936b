package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/app"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/reconcile"
)

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <authentication>",
		Short: "Pull and apply the order results of one notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := app.Build(cmd.Context(), configPath(cmd))
			if err != nil {
				return err
			}
			sum, err := deps.Reconciler.Reconcile(cmd.Context(), args[0])
			printSummary(cmd, sum)

			var unresolved *reconcile.UnresolvedOrdersError
			if errors.As(err, &unresolved) {
				return fmt.Errorf("%d order(s) not found locally: %w", len(unresolved.IDs), err)
			}
			return err
		},
	}
}

func printSummary(cmd *cobra.Command, sum reconcile.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pages:      %d\n", sum.Pages)
	fmt.Fprintf(out, "applied:    %d\n", sum.Applied)
	for _, id := range sum.Unresolved {
		fmt.Fprintf(out, "unresolved: %s\n", id)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

type healthChecker interface {
	Health(ctx context.Context) (int, error)
}

func newHealthCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealth(cmd.Context(), root.client(), cmd.OutOrStdout())
		},
	}
}

func runHealth(ctx context.Context, client healthChecker, out io.Writer) error {
	status, err := client.Health(ctx)
	if err != nil {
		return describe(err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("backend health returned %d", status)
	}
	_, err = fmt.Fprintln(out, "backend healthy")
	return err
}

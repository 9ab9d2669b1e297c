package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/transcript2minutes/internal/domain/inference"
	"github.com/yanqian/transcript2minutes/internal/infra/mlclient"
)

type runLister interface {
	RecentRuns(ctx context.Context, limit int) (mlclient.Reply, error)
}

func newRunsCommand(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent summarization runs recorded by the inference service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd.Context(), root.mlserviceClient(), limit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of runs to show (server default when 0)")
	return cmd
}

func runRuns(ctx context.Context, client runLister, limit int, out io.Writer) error {
	reply, err := client.RecentRuns(ctx, limit)
	if err != nil {
		return describe(err)
	}
	var payload struct {
		Runs []inference.RunRecord `json:"runs"`
	}
	if err := json.Unmarshal(reply.Body, &payload); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Runs) == 0 {
		_, err := fmt.Fprintln(out, "no runs recorded")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tID\tMODEL\tIN\tOUT\tMS\tCACHED")
	for _, r := range payload.Runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%t\n",
			r.CreatedAt.UTC().Format(time.RFC3339), r.ID, r.ModelID, r.InputWords, r.OutputWords, r.DurationMs, r.Cached)
	}
	return w.Flush()
}

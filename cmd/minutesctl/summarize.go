package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yanqian/transcript2minutes/internal/infra/mlclient"
	"github.com/yanqian/transcript2minutes/pkg/util"
)

type summarizer interface {
	Summarize(ctx context.Context, req mlclient.SummarizeRequest) (mlclient.Reply, error)
}

func newSummarizeCommand(root *rootOptions) *cobra.Command {
	var (
		file    string
		format  string
		rawJSON bool
	)
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize a transcript read from --file or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open transcript: %w", err)
				}
				defer f.Close()
				in = f
			}
			return runSummarize(cmd.Context(), root.client(), in, cmd.OutOrStdout(), format, rawJSON)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "transcript file (default stdin)")
	cmd.Flags().StringVar(&format, "format", "", `minutes layout: "bullets" or "structured"`)
	cmd.Flags().BoolVar(&rawJSON, "json", false, "print the raw JSON response")
	return cmd
}

func runSummarize(ctx context.Context, client summarizer, in io.Reader, out io.Writer, format string, rawJSON bool) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	transcript := string(data)
	if strings.TrimSpace(transcript) == "" {
		return errors.New("transcript is empty")
	}

	ctx = util.WithRequestID(ctx, uuid.NewString())
	reply, err := client.Summarize(ctx, mlclient.SummarizeRequest{Transcript: transcript, Format: format})
	if err != nil {
		return describe(err)
	}
	if rawJSON {
		_, err = fmt.Fprintln(out, strings.TrimSpace(string(reply.Body)))
		return err
	}

	var payload struct {
		Minutes string `json:"minutes"`
		Stats   struct {
			InputWords  int `json:"input_words"`
			OutputWords int `json:"output_words"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(reply.Body, &payload); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if _, err := fmt.Fprintln(out, payload.Minutes); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "\n(%d words in, %d words out)\n", payload.Stats.InputWords, payload.Stats.OutputWords)
	return err
}

// describe turns a client failure into a message built from the server's
// error body when there is one.
func describe(err error) error {
	var statusErr *mlclient.StatusError
	if errors.As(err, &statusErr) {
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(statusErr.Body, &body) == nil && body.Error != "" {
			return fmt.Errorf("backend returned %d: %s", statusErr.Status, body.Error)
		}
		return fmt.Errorf("backend returned %d", statusErr.Status)
	}
	switch {
	case errors.Is(err, mlclient.ErrTimeout):
		return errors.New("backend did not respond in time")
	case errors.Is(err, mlclient.ErrUnreachable):
		return fmt.Errorf("backend unreachable: %w", err)
	}
	return err
}

package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yanqian/transcript2minutes/internal/infra/mlclient"
)

const (
	defaultBackendURL   = "http://localhost:5002"
	defaultMLServiceURL = "http://localhost:5001"
)

type rootOptions struct {
	url          string
	mlserviceURL string
	token        string
	timeout      time.Duration
}

func (o *rootOptions) client() *mlclient.Client {
	return mlclient.NewClient(mlclient.Config{
		BaseURL:       o.url,
		Timeout:       o.timeout,
		HealthTimeout: o.timeout,
		Token:         o.token,
	})
}

// mlserviceClient talks to the inference tier directly; run history is not
// exposed by the backend.
func (o *rootOptions) mlserviceClient() *mlclient.Client {
	return mlclient.NewClient(mlclient.Config{
		BaseURL:       o.mlserviceURL,
		Timeout:       o.timeout,
		HealthTimeout: o.timeout,
	})
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "minutesctl",
		Short:         "Turn meeting transcripts into minutes using the backend service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional.
			_ = godotenv.Load()
			if !cmd.Flags().Changed("url") {
				if v := os.Getenv("MINUTES_BACKEND_URL"); v != "" {
					opts.url = v
				}
			}
			if !cmd.Flags().Changed("mlservice-url") {
				if v := os.Getenv("MLSERVICE_URL"); v != "" {
					opts.mlserviceURL = v
				}
			}
			if !cmd.Flags().Changed("token") {
				if v := os.Getenv("MINUTES_TOKEN"); v != "" {
					opts.token = v
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.url, "url", defaultBackendURL, "backend base URL (env MINUTES_BACKEND_URL)")
	cmd.PersistentFlags().StringVar(&opts.mlserviceURL, "mlservice-url", defaultMLServiceURL, "inference service base URL (env MLSERVICE_URL)")
	cmd.PersistentFlags().StringVar(&opts.token, "token", "", "bearer token for the backend (env MINUTES_TOKEN)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 90*time.Second, "request timeout")

	cmd.AddCommand(
		newSummarizeCommand(opts),
		newHealthCommand(opts),
		newRunsCommand(opts),
		newTokenCommand(),
	)
	return cmd
}

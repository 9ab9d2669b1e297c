package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/transcript2minutes/internal/infra/auth"
	"github.com/yanqian/transcript2minutes/internal/infra/config"
)

func newTokenCommand() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token using the backend's AUTH_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadBackend()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("AUTH_JWT_SECRET is not set")
			}
			authCfg := auth.Config{
				Secret:   cfg.Auth.JWTSecret,
				Issuer:   cfg.Auth.Issuer,
				TokenTTL: cfg.Auth.TokenTTL,
			}
			if ttl > 0 {
				authCfg.TokenTTL = ttl
			}
			return runToken(auth.NewTokens(authCfg), subject, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "minutesctl", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from AUTH_TOKEN_TTL)")
	return cmd
}

type tokenIssuer interface {
	Issue(subject string) (string, time.Time, error)
}

func runToken(issuer tokenIssuer, subject string, out io.Writer) error {
	token, expires, err := issuer.Issue(subject)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n# expires %s\n", token, expires.UTC().Format(time.RFC3339))
	return err
}

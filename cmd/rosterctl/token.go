package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-roster-api/internal/service"
)

type tokenOptions struct {
	professor string
	email     string
	name      string
	ttl       time.Duration
}

type tokenIssuer interface {
	Issue(professorID, email, fullName string) (string, time.Time, error)
}

func newTokenCmd(deps *runtimeDeps) *cobra.Command {
	var opts tokenOptions

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development bearer token for a professor",
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl := deps.cfg.JWT.Expiration
			if opts.ttl > 0 {
				ttl = opts.ttl
			}
			if deps.cfg.JWT.Secret == "" {
				return withCode(exitUsage, fmt.Errorf("JWT_SECRET is not configured"))
			}
			return runToken(service.NewTokenService(deps.cfg.JWT.Secret, ttl), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.professor, "professor", "", "Professor id (required)")
	cmd.Flags().StringVar(&opts.email, "email", "", "Email claim")
	cmd.Flags().StringVar(&opts.name, "name", "", "Full name claim")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 0, "Token lifetime (default JWT_EXPIRATION)")
	_ = cmd.MarkFlagRequired("professor")

	return cmd
}

func runToken(issuer tokenIssuer, opts tokenOptions, out io.Writer) error {
	token, expires, err := issuer.Issue(opts.professor, opts.email, opts.name)
	if err != nil {
		return withCode(exitUsage, err)
	}
	_, err = fmt.Fprintf(out, "%s\n# expires %s\n", token, expires.Format(time.RFC3339))
	return err
}

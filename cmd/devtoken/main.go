// cmd/devtoken/main.go
// Mints access tokens for local development against JWT_SECRET

package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/imadgeboyega/kiekky-match/internal/common/utils"
	"github.com/imadgeboyega/kiekky-match/internal/config"
)

type tokenOptions struct {
	userID string
	role   string
	ttl    time.Duration
}

func newRootCmd() *cobra.Command {
	var opts tokenOptions

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Mint a bearer token for the dating API",
		Long: `devtoken signs an access token with the configured JWT_SECRET so the
API can be exercised locally without the account service.`,
		Example: `  devtoken --user A
  devtoken --user ops --role admin --ttl 1h`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mintToken(cmd.OutOrStdout(), config.Load(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.userID, "user", "", "user id to put in the token (required)")
	cmd.Flags().StringVar(&opts.role, "role", "", "role claim, e.g. admin for /stats")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.MarkFlagRequired("user") //nolint:errcheck
	return cmd
}

func mintToken(out io.Writer, cfg *config.Config, opts tokenOptions) error {
	if cfg.IsProduction() {
		return errors.New("refusing to mint tokens with ENVIRONMENT=production")
	}

	token, err := utils.GenerateJWTWithRole(opts.userID, opts.role, cfg.JWTSecret, opts.ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func main() {
	godotenv.Load() //nolint:errcheck

	if err := newRootCmd().Execute(); err != nil {
		log.Printf("devtoken: %v", err)
		os.Exit(1)
	}
}

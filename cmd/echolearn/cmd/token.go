package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/echolearn/server/internal/auth"
)

var (
	tokenClientID string
	tokenTTL      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for the API",
	Long: `Issue an HS256 access token signed with JWT_SECRET. Pass it to the API as
"Authorization: Bearer <token>" or to the WebSocket as ?token=<token>.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenClientID, "client-id", "web", "client identifier stored in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTokenTTL, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager := auth.NewTokenManager(cfg.JWTSecret)
	if !manager.Enabled() {
		err := errors.New("JWT_SECRET is not set")
		printError("cannot issue token", err)
		return err
	}

	token, err := manager.GenerateClientToken(tokenClientID, tokenTTL)
	if err != nil {
		printError("failed to generate token", err)
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

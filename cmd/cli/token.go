package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Check the pricing source credentials",
	Long: `Exchange the configured client credentials for an access token and report
when it expires. The token value itself is never printed.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if !svc.Tokens.Configured() {
		return fmt.Errorf("client credentials are not configured (set KROGER_CLIENT_ID and KROGER_CLIENT_SECRET)")
	}

	tok, ok := svc.Tokens.Token(cmd.Context())
	if !ok {
		return fmt.Errorf("token exchange failed, see log for details")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Token OK, expires %s (in %s)\n",
		tok.ExpiresAt.Format(time.RFC3339), time.Until(tok.ExpiresAt).Round(time.Second))
	return nil
}

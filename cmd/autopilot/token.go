package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/apply-autopilot/internal/config"
	"github.com/jonathan/apply-autopilot/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token signed with JWT_SECRET",
	RunE:  runToken,
}

var (
	tokenUserID string
	tokenEmail  string
	tokenHours  int
)

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "User ID (uuid); a new one is generated when empty")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email claim")
	tokenCmd.Flags().IntVar(&tokenHours, "hours", 24, "Lifetime in hours")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	secret := config.JWTSecret()
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}
	if tokenHours < 1 {
		return fmt.Errorf("--hours must be at least 1")
	}

	userID := uuid.New()
	if tokenUserID != "" {
		id, err := uuid.Parse(tokenUserID)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		userID = id
	}

	jwtSvc := server.NewJWTService(config.JWTConfig{Secret: secret, ExpirationHours: tokenHours})
	token, err := jwtSvc.GenerateToken(userID, tokenEmail)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

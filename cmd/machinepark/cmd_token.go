package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/machinepark/internal/auth"
)

var (
	tokenUser  string
	tokenRoles []string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a JWT for API access",
	Long:  "Mint a signed JWT with the given user id and roles, using the configured signing key",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "admin", "user id to embed in the token")
	tokenCmd.Flags().StringSliceVar(&tokenRoles, "role", []string{auth.RoleAdmin}, "role to grant (repeatable)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	signed, err := auth.Issue([]byte(cfg.JWTSigningKey), auth.Claims{
		UserID: tokenUser,
		Roles:  tokenRoles,
	}, tokenTTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Println(signed)
	return nil
}

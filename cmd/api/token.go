package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/brainscan/internal/config"
	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
	"github.com/bryanwahyu/brainscan/internal/middleware"
)

// newTokenCmd mints a bearer token for local testing against the API.
func newTokenCmd(cfg *config.Config) *cobra.Command {
	var owner domain.Owner

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwtSecret (or JWT_SECRET) is required")
			}
			if err := middleware.ValidateOwnerID(owner.ID); err != nil {
				return err
			}
			tok, err := middleware.GenerateToken(owner, []byte(cfg.Auth.JWTSecret), cfg.TokenTTL())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner.ID, "user", "", "user id (required)")
	cmd.Flags().StringVar(&owner.Email, "email", "", "email address")
	cmd.Flags().StringVar(&owner.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&owner.LastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

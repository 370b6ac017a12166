package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/workflow/review"
	"github.com/spf13/cobra"
)

func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <memorandum-id>",
		Short: "Show a memorandum with its transition history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := review.NewFlow(a.store, a.policy).OpenDetails(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printMemorandum(details.Memorandum, details.History)
		},
	}
}

func documentCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "document <memorandum-id>",
		Short: "Download the printable memorandum document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.store.GenerateDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = a.out.Write(doc)
				return err
			}
			if err := os.WriteFile(out, doc, 0o644); err != nil {
				return fmt.Errorf("write document: %w", err)
			}
			a.printf("Saved %s (%d bytes)\n", out, len(doc))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	return cmd
}

// tokenCmd mints access tokens for local development. It never talks to the
// API, so it overrides the root setup.
func tokenCmd() *cobra.Command {
	var secret, ttl, email, companyID, employeeID, userID, role string

	mint := &cobra.Command{
		Use:   "mint",
		Short: "Mint an access token signed with the API secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("a signing secret is required, use --secret or JWT_SECRET_KEY")
			}
			r := user.Role(role)
			if !r.IsValid() {
				return fmt.Errorf("invalid role %q", role)
			}

			token, expiresAt, err := jwt.NewJWTService(secret, ttl).GenerateAccessToken(user.Principal{
				UserID:     userID,
				Email:      email,
				CompanyID:  companyID,
				EmployeeID: employeeID,
				Role:       r,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", time.Unix(expiresAt, 0).Format(time.RFC3339))
			return nil
		},
	}

	mint.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET_KEY"), "HS256 signing secret")
	mint.Flags().StringVar(&ttl, "ttl", "24h", "Token lifetime")
	mint.Flags().StringVar(&userID, "user", "", "User id")
	mint.Flags().StringVar(&email, "email", "", "User email")
	mint.Flags().StringVar(&companyID, "company", "", "Company id")
	mint.Flags().StringVar(&employeeID, "employee", "", "Employee id")
	mint.Flags().StringVar(&role, "role", string(user.RoleEmployee), "Role (owner, manager, employee)")
	_ = mint.MarkFlagRequired("user")
	_ = mint.MarkFlagRequired("company")

	cmd := &cobra.Command{
		Use:               "token",
		Short:             "Access token helpers",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	cmd.AddCommand(mint)
	return cmd
}

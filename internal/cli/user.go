package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

func newUserCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Manage accounts",
	}
	cmd.AddCommand(
		newCreateAdminCmd(open),
		newApproveCmd(open),
		newSetRoleCmd(open),
		newListUsersCmd(open),
	)
	return cmd
}

func newCreateAdminCmd(open Opener) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an active administrator, or promote an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, open, func(ctx context.Context, rt *Runtime) error {
				user, created, err := rt.Auth.EnsureAdmin(ctx, email, password, name)
				if err != nil {
					return err
				}
				verb := "READY"
				if created {
					verb = "CREATED"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", verb, user.Email, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "administrator email")
	cmd.Flags().StringVar(&password, "password", "", "password for a new account")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newApproveCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <email>",
		Short: "Activate a pending account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, open, func(ctx context.Context, rt *Runtime) error {
				user, err := rt.Users.FindByEmail(ctx, args[0])
				if err != nil {
					return err
				}
				active := true
				if _, err := rt.Users.UpdateUser(ctx, nil, user.ID, service.UserPatch{IsActive: &active}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "APPROVED %s\n", user.Email)
				return nil
			})
		},
	}
}

func newSetRoleCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <email> <USER|ADMIN>",
		Short: "Change an account's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, open, func(ctx context.Context, rt *Runtime) error {
				user, err := rt.Users.FindByEmail(ctx, args[0])
				if err != nil {
					return err
				}
				role := args[1]
				updated, err := rt.Users.UpdateUser(ctx, nil, user.ID, service.UserPatch{Role: &role})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ROLE %s %s\n", updated.Email, updated.Role)
				return nil
			})
		},
	}
}

func newListUsersCmd(open Opener) *cobra.Command {
	var asJSON, pendingOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, open, func(ctx context.Context, rt *Runtime) error {
				users, err := rt.Users.ListUsers(ctx)
				if err != nil {
					return err
				}
				if pendingOnly {
					filtered := users[:0]
					for _, u := range users {
						if u.PendingApproval() {
							filtered = append(filtered, u)
						}
					}
					users = filtered
				}
				if asJSON {
					out := make([]dto.UserResponse, 0, len(users))
					for i := range users {
						out = append(out, dto.NewUserResponse(&users[i]))
					}
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(out)
				}
				return printUsers(cmd, users)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "only accounts awaiting approval")
	return cmd
}

func printUsers(cmd *cobra.Command, users []domain.User) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tNAME\tROLE\tACTIVE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", u.Email, u.Name, u.Role, u.IsActive, u.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

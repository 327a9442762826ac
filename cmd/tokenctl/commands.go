package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

// app holds what every command needs. close releases it after the command.
type app struct {
	creds ports.CredentialService
	admin ports.AdminService
	dir   ports.DirectoryRepository
	actor *domain.Actor
	out   io.Writer
	close func(ctx context.Context) error
}

type connectFunc func(ctx context.Context) (*app, error)

func newRootCmd(connect connectFunc) *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:           "tokenctl",
		Short:         "Manage recordkeeper credentials and workspace memberships",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, err = connect(cmd.Context())
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a == nil || a.close == nil {
				return nil
			}
			return a.close(context.Background())
		},
	}

	get := func() *app { return a }
	root.AddCommand(
		newCreateCmd(get),
		newListCmd(get),
		newRevokeCmd(get),
		newAddMembershipCmd(get),
		newRemoveMembershipCmd(get),
		newListUsersCmd(get),
	)
	return root
}

func newCreateCmd(get func() *app) *cobra.Command {
	var (
		user, workspace, role, label string
		expiresDays                  int
		admin                        bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a credential, its identity and a workspace membership",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			ctx := cmd.Context()

			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			if expiresDays < 0 {
				return fmt.Errorf("%w: --expires must not be negative", domain.ErrInvalidInput)
			}

			status, err := ensureMembership(ctx, a, workspace, user, r, false)
			if err != nil {
				return err
			}
			if admin {
				ident, err := a.dir.FindIdentityByKey(ctx, domain.NormalizeKey(user))
				if err != nil {
					return err
				}
				if err := a.dir.SetAdmin(ctx, ident.ID, true); err != nil {
					return err
				}
			}

			if label == "" {
				label = strings.SplitN(domain.NormalizeKey(user), "@", 2)[0] + "-" + workspace
			}
			raw, cred, err := a.creds.Issue(ctx, ports.IssueCredentialInput{
				IdentityKey: user,
				Label:       label,
				ExpiresIn:   time.Duration(expiresDays) * 24 * time.Hour,
				CreatedBy:   cliIdentity,
			})
			if err != nil {
				return err
			}

			expires := "never"
			if cred.ExpiresAt != nil {
				expires = cred.ExpiresAt.Format(time.RFC3339)
			}
			fmt.Fprintf(a.out, "\n=== Credential Created ===\n")
			fmt.Fprintf(a.out, "Identity:   %s\n", cred.IdentityKey)
			fmt.Fprintf(a.out, "Workspace:  %s (role: %s, membership %s)\n", workspace, r, status)
			fmt.Fprintf(a.out, "ID:         %s\n", cred.ID)
			fmt.Fprintf(a.out, "Expires:    %s\n\n", expires)
			fmt.Fprintf(a.out, "CREDENTIAL (shown once, store it now):\n  %s\n\n", raw)
			fmt.Fprintf(a.out, "Header:     X-API-Key: %s\n", raw)
			fmt.Fprintf(a.out, "Path form:  /v1/k/%s/records/meetings\n", raw)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "identity key (email address)")
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace name")
	cmd.Flags().StringVar(&role, "role", "", "role in the workspace: viewer, member or chair")
	cmd.Flags().IntVar(&expiresDays, "expires", 0, "expiry in days (0 means never)")
	cmd.Flags().StringVar(&label, "label", "", "free-text label (defaults to <user>-<workspace>)")
	cmd.Flags().BoolVar(&admin, "admin", false, "also grant the administrator flag")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newListCmd(get func() *app) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List credentials, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			creds, err := a.creds.List(cmd.Context(), user)
			if err != nil {
				return err
			}
			if len(creds) == 0 {
				fmt.Fprintln(a.out, "No credentials found.")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tIDENTITY\tACTIVE\tEXPIRES\tLAST USED")
			for _, c := range creds {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					c.ID, c.Label, c.IdentityKey, yesNo(c.Active && c.RevokedAt == nil),
					timeOr(c.ExpiresAt, "never"), timeOr(c.LastUsedAt, "-"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "only credentials of this identity")
	return cmd
}

func newRevokeCmd(get func() *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			err := a.creds.Revoke(cmd.Context(), id)
			if errors.Is(err, domain.ErrCredentialNotFound) {
				fmt.Fprintf(a.out, "Credential %s not found.\n", id)
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Credential %s revoked. Servers may accept it until their cache entry expires.\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "credential id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newAddMembershipCmd(get func() *app) *cobra.Command {
	var user, workspace, role string

	cmd := &cobra.Command{
		Use:   "add-membership",
		Short: "Add an identity to a workspace, or change its role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			status, err := ensureMembership(cmd.Context(), a, workspace, user, r, true)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s is %s in workspace %q (membership %s).\n", user, r, workspace, status)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "identity key (email address)")
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace name")
	cmd.Flags().StringVar(&role, "role", "", "viewer, member or chair")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newRemoveMembershipCmd(get func() *app) *cobra.Command {
	var user, workspace string

	cmd := &cobra.Command{
		Use:   "remove-membership",
		Short: "Remove an identity from a workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			err := a.admin.RemoveMember(cmd.Context(), a.actor, workspace, user)
			switch {
			case errors.Is(err, domain.ErrMembershipNotFound):
				fmt.Fprintf(a.out, "%s is not a member of workspace %q.\n", user, workspace)
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintf(a.out, "Removed %s from workspace %q.\n", user, workspace)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "identity key (email address)")
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace name")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newListUsersCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List the members of every workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			ctx := cmd.Context()

			workspaces, err := a.admin.ListWorkspaces(ctx, a.actor)
			if err != nil {
				return err
			}
			if len(workspaces) == 0 {
				fmt.Fprintln(a.out, "No workspaces found.")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WORKSPACE\tIDENTITY\tROLE\tARCHIVED")
			for _, ws := range workspaces {
				members, err := a.admin.ListMembers(ctx, a.actor, ws.ID)
				if err != nil {
					return err
				}
				for _, m := range members {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ws.Name, m.IdentityKey, m.Role, yesNo(ws.IsArchived))
				}
			}
			return w.Flush()
		},
	}
}

// ensureMembership adds identity to workspace. An existing membership is left
// alone, or moved to role when update is set.
func ensureMembership(ctx context.Context, a *app, workspace, identity string, role domain.Role, update bool) (string, error) {
	_, err := a.admin.AddMember(ctx, a.actor, workspace, identity, role)
	switch {
	case err == nil:
		return "created", nil
	case !errors.Is(err, domain.ErrMembershipExists):
		return "", err
	case !update:
		return "already exists", nil
	}
	if err := a.admin.ChangeRole(ctx, a.actor, workspace, identity, role); err != nil {
		return "", err
	}
	return "updated", nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func timeOr(t *time.Time, fallback string) string {
	if t == nil {
		return fallback
	}
	return t.UTC().Format(time.RFC3339)
}

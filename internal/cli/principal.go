package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/lexi-backend/internal/app"
	"github.com/yungbote/lexi-backend/internal/data/repos"
	domainaccess "github.com/yungbote/lexi-backend/internal/domain/access"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexi-backend/internal/platform/jwtauth"
)

func init() {
	principalCmd := &cobra.Command{
		Use:   "principal",
		Short: "Manage principals and their bearer tokens",
	}

	var email, name, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := domainaccess.ParseRole(role)
			if err != nil {
				return err
			}
			rs, err := openRepos()
			if err != nil {
				return err
			}
			p, err := rs.Principals.Create(dbctx.Context{Ctx: cmd.Context()}, &domainaccess.Principal{
				Email:    email,
				FullName: name,
				Role:     r,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p.ID, p.Email, p.Role)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "Email address")
	add.Flags().StringVar(&name, "name", "", "Full name")
	add.Flags().StringVar(&role, "role", "", "One of partner, associate, staff, client")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("role")

	var ttl time.Duration
	token := &cobra.Command{
		Use:   "token <email>",
		Short: "Mint a bearer token for an existing principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := openRepos()
			if err != nil {
				return err
			}
			p, err := rs.Principals.GetByEmail(dbctx.Context{Ctx: cmd.Context()}, args[0])
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("no principal with email %q", args[0])
			}
			tok, err := jwtauth.Sign(p.ID.String(), []byte(cfg.JWTSecretKey), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	token.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")

	principalCmd.AddCommand(add, token)
	RootCmd.AddCommand(principalCmd)
}

func openRepos() (repos.Repos, error) {
	theDB, err := app.OpenDatabase(log, cfg)
	if err != nil {
		return repos.Repos{}, err
	}
	return repos.New(theDB, log), nil
}

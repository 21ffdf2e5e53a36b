// Package cli implements the helpdeskctl administration commands.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

// Runtime is what a command needs to act on the database.
type Runtime struct {
	Logger   *zap.Logger
	Postgres *persistence.Postgres
	Auth     *service.AuthService
	Users    *service.UserService
}

// Opener builds a Runtime. The returned func releases it.
type Opener func(ctx context.Context) (*Runtime, func(), error)

// NewRootCmd assembles the command tree around open.
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "helpdeskctl",
		Short:         "Administer the helpdesk database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(open), newUserCmd(open))
	return root
}

// DefaultOpener connects with the same environment configuration the API
// server uses. A database is required.
func DefaultOpener(ctx context.Context) (*Runtime, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Postgres.DSN == "" {
		return nil, nil, errors.New("POSTGRES_DSN is required")
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, nil, err
	}

	repos := repository.NewSet(pg.PoolHandle())
	rt := &Runtime{
		Logger:   logger,
		Postgres: pg,
		Auth: service.NewAuthService(cfg.Auth, service.AuthDependencies{
			UserRepo: repos.Users,
			Tokens:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
			Logger:   logger,
		}),
		Users: service.NewUserService(service.UserDependencies{UserRepo: repos.Users, Logger: logger}),
	}
	release := func() {
		pg.Close()
		_ = logger.Sync()
	}
	return rt, release, nil
}

func withRuntime(cmd *cobra.Command, open Opener, fn func(context.Context, *Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, release, err := open(ctx)
	if err != nil {
		return err
	}
	if release != nil {
		defer release()
	}
	return fn(ctx, rt)
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/auth"
	"skill-quiz-service/internal/config"
	"skill-quiz-service/internal/domain"
	"skill-quiz-service/internal/infra/postgres"
)

// NewCreateAdminCmd creates an admin account or promotes an existing one.
func NewCreateAdminCmd(configPath *string) *cobra.Command {
	var in domain.RegisterInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create or promote an admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateAdmin(cmd.Context(), *configPath, in)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "Admin", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&in.Password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func runCreateAdmin(ctx context.Context, configPath string, in domain.RegisterInput) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("create-admin needs postgres.url; the in-memory store does not outlive the process")
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := postgres.Open(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	// Token issuing is unused here; the secret only has to be non-empty.
	users := app.NewUserService(postgres.NewStore(db), auth.NewTokens("create-admin", 0))
	u, err := users.EnsureAdmin(ctx, in)
	if err != nil {
		return err
	}
	log.Info("admin ready", zap.Int64("id", u.ID), zap.String("email", u.Email))
	return nil
}

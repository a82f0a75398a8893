package system

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/allodoc/allodoc-backend/config"
	"github.com/allodoc/allodoc-backend/internal/store"
	"github.com/allodoc/allodoc-backend/internal/store/postgres"
	"github.com/allodoc/allodoc-backend/migrations"
	"github.com/allodoc/allodoc-backend/pkg/database"
	"github.com/allodoc/allodoc-backend/pkg/util/password"
)

// Demo fixture created by `system init`. Change the password after first login.
const (
	seedOrgName   = "AlloDoc Demo Clinic"
	seedOrgSlug   = "allodoc-demo-clinic"
	seedUserEmail = "doctor@allodoc.dev"
	seedUserPass  = "Doctor123!"
)

func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the database and seed demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			fmt.Println("Initializing database...")
			if err := database.InitializeDatabase(ctx, cfg); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}

			pool, err := database.NewPoolFromCentral(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			if err := database.Migrate(ctx, pool, migrations.Files); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			if err := seedDemoData(ctx, postgres.New(pool), cfg); err != nil {
				return err
			}

			fmt.Println("Database initialized successfully.")
			return nil
		},
	}

	return cmd
}

func seedDemoData(ctx context.Context, st *store.Store, cfg *config.Config) error {
	if _, err := st.Users.GetByEmail(ctx, seedUserEmail); err == nil {
		fmt.Println("Demo data already present, skipping seed.")
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to check seed user: %w", err)
	}

	org := &store.Organization{
		Name:     seedOrgName,
		Slug:     seedOrgSlug,
		IsActive: true,
	}
	if err := st.Organizations.Create(ctx, org); err != nil {
		return fmt.Errorf("failed to create demo organization: %w", err)
	}

	hash, err := password.HashWithCost(seedUserPass, cfg.Authentication.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	u := &store.User{
		Email:          seedUserEmail,
		PasswordHash:   hash,
		FirstName:      "Demo",
		LastName:       "Doctor",
		OrganizationID: org.ID,
		IsActive:       true,
	}
	if err := st.Users.Create(ctx, u); err != nil {
		return fmt.Errorf("failed to create demo user: %w", err)
	}

	if err := st.Organizations.AddMember(ctx, org.ID, u.ID); err != nil {
		return fmt.Errorf("failed to add demo user to organization: %w", err)
	}
	for _, role := range []string{"doctor", "admin"} {
		if err := st.Roles.AssignToUser(ctx, u.ID, org.ID, role); err != nil {
			return fmt.Errorf("failed to assign role %s: %w", role, err)
		}
	}

	fmt.Printf("Seeded %s (%s) in %s.\n", seedUserEmail, "doctor, admin", seedOrgName)
	return nil
}

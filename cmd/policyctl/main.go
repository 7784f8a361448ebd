package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albertniderhofer/S3PolicyManager/pkg/database"
	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
	"github.com/albertniderhofer/S3PolicyManager/pkg/repositories"
)

var (
	dsn      string
	tenantID string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "policyctl",
		Short: "Admin CLI for the policy manager",
		Long: `policyctl runs one-off administrative tasks against the policy
	database: schema migration and tenant CIDR blacklist maintenance.`,
	}
	rootCmd.PersistentFlags().StringVar(&dsn, "db", os.Getenv("POLICY_DB"), "Postgres connection string")

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newBlacklistCmd())
	rootCmd.AddCommand(newTenantCmd())
	return rootCmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Auto-migrate all schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.InitDB(dsn)
			if err != nil {
				return err
			}
			return database.MigrateDB(db,
				&models.Tenant{}, &models.APIKey{},
				&models.Policy{}, &models.RuleIndexEntry{}, &models.CidrBlockEntry{},
			)
		},
	}
}

func newBlacklistCmd() *cobra.Command {
	blacklistCmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Manage a tenant's blocked CIDR ranges",
	}
	blacklistCmd.PersistentFlags().StringVar(&tenantID, "tenant", "", "Tenant id (required)")
	blacklistCmd.MarkPersistentFlagRequired("tenant")

	addCmd := &cobra.Command{
		Use:   "add <cidr>",
		Short: "Add a blocked CIDR range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := uuid.Parse(tenantID)
			if err != nil {
				return fmt.Errorf("invalid tenant id: %w", err)
			}
			db, err := database.InitDB(dsn)
			if err != nil {
				return err
			}
			repo := repositories.NewCidrRepository(db)
			entry := &models.CidrBlockEntry{
				TenantID:  tenant,
				CIDR:      args[0],
				CreatedBy: "policyctl",
			}
			if err := repo.Add(context.Background(), entry); err != nil {
				return err
			}
			fmt.Printf("added %s for tenant %s\n", args[0], tenantID)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the tenant's blocked CIDR ranges",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := uuid.Parse(tenantID)
			if err != nil {
				return fmt.Errorf("invalid tenant id: %w", err)
			}
			db, err := database.InitDB(dsn)
			if err != nil {
				return err
			}
			repo := repositories.NewCidrRepository(db)
			entries, err := repo.List(context.Background(), tenant)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s\t%s\t%s\n", e.CIDR, e.CreatedBy, e.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	blacklistCmd.AddCommand(addCmd)
	blacklistCmd.AddCommand(listCmd)
	return blacklistCmd
}

func newTenantCmd() *cobra.Command {
	tenantCmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants and their API keys",
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.InitDB(dsn)
			if err != nil {
				return err
			}
			repo := repositories.NewTenantRepository(db)
			tenant := &models.Tenant{ID: uuid.New(), Name: args[0]}
			if err := repo.CreateTenant(tenant); err != nil {
				return err
			}
			fmt.Printf("created tenant %s (%s)\n", tenant.Name, tenant.ID)
			return nil
		},
	}

	var actorID, actorName string
	apikeyCmd := &cobra.Command{
		Use:   "apikey <tenant-id>",
		Short: "Mint an API key for a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid tenant id: %w", err)
			}
			db, err := database.InitDB(dsn)
			if err != nil {
				return err
			}
			repo := repositories.NewTenantRepository(db)
			if _, err := repo.GetTenantByID(tenant); err != nil {
				return err
			}
			key := uuid.NewString()
			apiKey := &models.APIKey{
				TenantID:  tenant,
				Hash:      key,
				ActorID:   actorID,
				ActorName: actorName,
			}
			if err := repo.CreateAPIKey(apiKey); err != nil {
				return err
			}
			fmt.Printf("api key: %s\n", key)
			return nil
		},
	}
	apikeyCmd.Flags().StringVar(&actorID, "actor", "admin", "Actor id bound to the key")
	apikeyCmd.Flags().StringVar(&actorName, "actor-name", "", "Display name for the actor")

	tenantCmd.AddCommand(createCmd)
	tenantCmd.AddCommand(apikeyCmd)
	return tenantCmd
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vapter/vaptord/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the control-plane schema to the configured database",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	if err := store.Migrate(ctx, st); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	fmt.Println("schema up to date")
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/compass-hr/pricing-engine/internal/catalog"
)

var (
	migrateSeed     bool
	migrateSeedFile string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("schema migrated", zap.String("driver", cfg.Store.Driver))

		if !migrateSeed {
			return nil
		}

		var seed *catalog.Seed
		if migrateSeedFile != "" {
			seed, err = catalog.LoadFile(migrateSeedFile)
		} else {
			seed, err = catalog.LoadEmbedded()
		}
		if err != nil {
			return err
		}

		if err := seed.Apply(ctx, st); err != nil {
			return err
		}

		fmt.Println("migration and seed complete")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSeed, "seed", false, "load the benchmark catalog after migrating")
	migrateCmd.Flags().StringVar(&migrateSeedFile, "file", "", "catalog YAML file (default: embedded dev seed)")
	rootCmd.AddCommand(migrateCmd)
}

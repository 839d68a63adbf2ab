package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/snippet-saver/internal/auth"
	"github.com/sakif/snippet-saver/internal/service"
)

var seedOwner string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Delete every snippet and load the bundled fixture",
	Long: "Delete every snippet of every user and insert the bundled fixture.\n" +
		"The fixture is owned by --user, or by the configured demo user.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.MigrateUp(); err != nil {
			return err
		}

		seeds, err := service.NewSeedService(db, db, auth.NewPasswordService(cfg.BcryptCost), service.SeedOptions{
			DemoUsername: cfg.Seed.Username,
			DemoPassword: cfg.Seed.Password,
		}, logger)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		ownerID := ""
		if seedOwner != "" {
			user, err := db.GetUserByUsername(ctx, seedOwner)
			if err != nil {
				return fmt.Errorf("looking up %q: %w", seedOwner, err)
			}
			ownerID = user.ID
		}

		ownerID, err = seeds.Reset(ctx, ownerID)
		if err != nil {
			return err
		}
		status, err := seeds.Status(ctx)
		if err != nil {
			return err
		}
		logger.Info("seed complete", slog.String("ownerID", ownerID), slog.Int("snippets", status.Current))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOwner, "user", "", "username that will own the fixture snippets")
	rootCmd.AddCommand(seedCmd)
}

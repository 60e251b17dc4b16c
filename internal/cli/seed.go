package cli

import (
	"progress-service/internal/config"
	"progress-service/internal/infra/memory"
	"progress-service/internal/infra/postgres"
	"progress-service/internal/logger"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads the sample lessons and default user into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed sample lessons when the database has none",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()
			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := runMigrations(cmd.Context(), db, log); err != nil {
				return err
			}
			content := memory.SampleContent()
			seeded, err := postgres.Seed(cmd.Context(), db, content.Lessons, content.Problems, []int64{cfg.Server.DefaultUserID})
			if err != nil {
				return err
			}
			if !seeded {
				log.Info("seed skipped: lessons already present")
				return nil
			}
			log.Info("seed complete", "lessons", len(content.Lessons), "problems", len(content.Problems))
			return nil
		},
	}
}

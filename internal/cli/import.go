package cli

import (
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"lecture-quiz-service/internal/config"
	"lecture-quiz-service/internal/domain"
	"lecture-quiz-service/internal/infra/postgres"
	"lecture-quiz-service/internal/logger"
	"lecture-quiz-service/internal/quiz"
)

// NewImportCmd stores a question set payload file in Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	var (
		setID       string
		displayType string
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store a question set payload in Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			// reject payloads the practice engine could not load
			set, err := quiz.Load(raw, displayType)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			payload := domain.Payload{ID: setID, DisplayType: displayType, Raw: raw}
			if err := postgres.NewPayloadLoader(pool).SavePayload(ctx, payload); err != nil {
				return err
			}
			log.Info("question set imported", "set_id", setID, "type", set.Type, "questions", len(set.Questions))
			return nil
		},
	}
	cmd.Flags().StringVar(&setID, "id", "", "question set id")
	cmd.Flags().StringVar(&displayType, "display-type", "", "display type label used as a type hint")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

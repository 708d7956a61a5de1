package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/stacklok/synonym-exporter/database"
	"github.com/stacklok/synonym-exporter/internal/config"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tool",
		Long:  `Manage the schema of the synonyms table used by the database source. Use with 'up' or 'down'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	cmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	cmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate (0 = all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending database migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert database migrations",
		Long: `Migrate the database schema down by reverting migrations.
WARNING: This operation can result in data loss. Use with caution.

Examples:
  # Migrate down by 1 step
  synonym-exporter migrate down --config config.yaml --num-steps 1 --yes

  # Migrate down all the way (drops the synonyms table)
  synonym-exporter migrate down --config config.yaml --yes`,
		RunE: runMigrateDown,
	})

	return cmd
}

// migrationSettings reads the flags and connection string shared by up and down
func migrationSettings(cmd *cobra.Command) (connString string, numSteps uint, yes bool, err error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", 0, false, err
	}
	if cfg.Source.GetType() != config.SourceTypeDatabase {
		return "", 0, false, fmt.Errorf("migrations require a database source")
	}

	connString, err = cfg.Source.Database.GetConnectionString()
	if err != nil {
		return "", 0, false, fmt.Errorf("failed to build connection string: %w", err)
	}
	if numSteps, err = cmd.Flags().GetUint("num-steps"); err != nil {
		return "", 0, false, fmt.Errorf("failed to get num-steps flag: %w", err)
	}
	if numSteps > math.MaxInt {
		return "", 0, false, fmt.Errorf("number of steps exceeds maximum allowed value")
	}
	if yes, err = cmd.Flags().GetBool("yes"); err != nil {
		return "", 0, false, fmt.Errorf("failed to get yes flag: %w", err)
	}
	return connString, numSteps, yes, nil
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	connString, numSteps, yes, err := migrationSettings(cmd)
	if err != nil {
		return err
	}
	if !yes && !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "About to apply migrations. Continue?") {
		slog.Info("Migration cancelled by user")
		return nil
	}

	return migrateSteps(connString, int(numSteps), false) // #nosec G115 -- bounded in migrationSettings
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	connString, numSteps, yes, err := migrationSettings(cmd)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("WARNING: This will migrate down %d step(s) and may result in data loss. Continue?", numSteps)
	if numSteps == 0 {
		prompt = "WARNING: This will migrate down ALL steps and drop the synonyms table. Continue?"
	}
	if !yes && !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), prompt) {
		return fmt.Errorf("migration cancelled by user")
	}

	return migrateSteps(connString, int(numSteps), true) // #nosec G115 -- bounded in migrationSettings
}

// migrateSteps moves the schema steps migrations up or down. Zero steps means all of them.
func migrateSteps(connString string, steps int, down bool) error {
	m, err := database.NewFromConnectionString(connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch {
	case !down && steps == 0:
		slog.Info("Applying all pending migrations")
		err = m.Up()
	case !down:
		slog.Info("Applying migrations", "steps", steps)
		err = m.Steps(steps)
	case steps == 0:
		slog.Warn("Reverting all migrations")
		err = m.Down()
	default:
		slog.Warn("Reverting migrations", "steps", steps)
		err = m.Steps(-steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	displayMigrationVersion(m)
	return nil
}

func displayMigrationVersion(m database.Migrator) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		slog.Info("Database schema has no migrations applied")
	case err != nil:
		slog.Warn("Failed to get migration version", "error", err)
	case dirty:
		slog.Warn("Database is in a dirty state, manual intervention may be required", "version", version)
	default:
		slog.Info("Migrations applied successfully", "version", version)
	}
}

// confirm asks a yes/no question on out and reads the answer from in
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintf(out, "%s (yes/no): ", prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "yes" || answer == "y"
}

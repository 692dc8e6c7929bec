package main

import (
	"fmt"
	"os"

	"github.com/kompromat/kompromat/pkg/storage"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy the vault between store backends",
	Long: `Copy the vault document from one store backend to another in the same
data directory. The source is left untouched, and the target must be empty.

Stop the server before migrating.`,
	Example: `  kompromat migrate --from file --to bolt --dry-run
  kompromat migrate --from file --to bolt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if from == to {
			return fmt.Errorf("--from and --to must differ")
		}

		cfg := appConfig
		if _, err := os.Stat(cfg.DataDir); err != nil {
			return fmt.Errorf("data directory not found: %w", err)
		}

		source, err := storage.OpenBackend(from, cfg.DataDir)
		if err != nil {
			return err
		}
		defer source.Close()

		target, err := storage.OpenBackend(to, cfg.DataDir)
		if err != nil {
			return err
		}
		defer target.Close()

		fmt.Printf("Data directory: %s\n", cfg.DataDir)
		fmt.Printf("Migrating %s → %s (dry run: %v)\n", source.Name(), target.Name(), dryRun)

		result, err := storage.Migrate(source, target, dryRun)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		fmt.Printf("  Access cards: %d\n", result.AccessCards)
		fmt.Printf("  Tokens:       %d\n", result.Tokens)
		fmt.Printf("  Documents:    %d\n", result.Documents)
		fmt.Printf("  Bytes:        %d\n", result.Bytes)

		if dryRun {
			fmt.Println("\nDry run completed. No changes made.")
			return nil
		}

		fmt.Println("\n✓ Migration completed successfully!")
		fmt.Printf("Set store.backend to %q to use the migrated vault.\n", to)
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("from", storage.BackendFile, "Source backend")
	migrateCmd.Flags().String("to", storage.BackendBolt, "Target backend")
	migrateCmd.Flags().Bool("dry-run", false, "Show what would be migrated without making changes")
}

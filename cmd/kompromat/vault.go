package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/kompromat/kompromat/pkg/health"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the vault and print the first access card",
	Long: `Initialize a new vault with a fresh master key and its first access card.

The access card secret is printed once and never stored. Keep it together
with the pin; losing both locks the vault for good.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pin, _ := cmd.Flags().GetString("pin")

		cfg := appConfig
		deps, err := openVault(cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		card, err := deps.vault.InitializeVault(cmd.Context(), cliClientID, pin)
		if err != nil {
			return fmt.Errorf("failed to initialize vault: %w", err)
		}

		fmt.Println("✓ Vault initialized")
		fmt.Printf("  Access card ID:     %s\n", card.ID)
		fmt.Printf("  Access card secret: %s\n", card.Secret)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault status",
	Long: `Show the state of the vault on disk. With --server, probe the readiness
endpoint of a running server instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if server, _ := cmd.Flags().GetString("server"); server != "" {
			retries, _ := cmd.Flags().GetInt("retries")
			return probeServer(cmd.Context(), server, retries)
		}

		cfg := appConfig
		deps, err := openVault(cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		ctx := cmd.Context()
		initialized, err := deps.vault.Status(ctx, cliClientID)
		if err != nil {
			return err
		}
		cards, err := deps.store.CountAccessCards(ctx)
		if err != nil {
			return err
		}
		tokens, err := deps.store.CountTokens(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Data directory: %s\n", cfg.DataDir)
		fmt.Printf("Store backend:  %s\n", cfg.Store.Backend)
		fmt.Printf("Initialized:    %v\n", initialized)
		fmt.Printf("Access cards:   %d\n", cards)
		fmt.Printf("Session tokens: %d\n", tokens)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired session tokens now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		deps, err := openVault(cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		removed, err := deps.vault.SweepExpiredTokens(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to sweep tokens: %w", err)
		}

		fmt.Printf("✓ Removed %d expired token(s)\n", removed)
		return nil
	},
}

// probeServer reports the readiness of a running server
func probeServer(ctx context.Context, server string, retries int) error {
	cfg := health.DefaultConfig()
	cfg.Retries = retries

	result := health.Wait(ctx, health.NewHTTPChecker(server), cfg)

	fmt.Printf("Server: %s\n", server)
	fmt.Printf("Status: %s (%s)\n", result.Status, result.Message)

	names := make([]string, 0, len(result.Checks))
	for name := range result.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-10s %s\n", name+":", result.Checks[name])
	}

	if !result.Healthy {
		return fmt.Errorf("server is not ready")
	}
	return nil
}

func init() {
	initCmd.Flags().String("pin", "", "6-digit pin for the first access card")
	_ = initCmd.MarkFlagRequired("pin")

	statusCmd.Flags().String("server", "", "Probe a running server at this base URL (e.g. http://127.0.0.1:8080)")
	statusCmd.Flags().Int("retries", 1, "Readiness probes before giving up")
}

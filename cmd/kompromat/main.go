package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kompromat/kompromat/pkg/api"
	"github.com/kompromat/kompromat/pkg/config"
	"github.com/kompromat/kompromat/pkg/documents"
	"github.com/kompromat/kompromat/pkg/events"
	"github.com/kompromat/kompromat/pkg/governor"
	"github.com/kompromat/kompromat/pkg/log"
	"github.com/kompromat/kompromat/pkg/metrics"
	"github.com/kompromat/kompromat/pkg/reaper"
	"github.com/kompromat/kompromat/pkg/storage"
	"github.com/kompromat/kompromat/pkg/vault"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// appConfig is loaded once before any subcommand runs
var appConfig *config.Config

const (
	collectInterval = 15 * time.Second
	shutdownTimeout = 10 * time.Second

	// cliClientID identifies local CLI callers to the login governor
	cliClientID = "local-cli"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kompromat",
	Short: "Kompromat - single-tenant secrets vault",
	Long: `Kompromat keeps passwords, two-factor seeds and notes encrypted under
a master key that only access cards can unlock.

Access cards are a secret plus a 6-digit pin. Clients exchange a card for a
short-lived session token and send the token with every request.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		appConfig = cfg
		log.Init(cfg.LogSettings())
		return nil
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Kompromat version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Path to kompromat.yaml")
	flags.String("data-dir", "", "Data directory (overrides config)")
	flags.String("store-backend", "", "Store backend: file or bolt (overrides config)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flags.Bool("log-json", false, "Log as JSON (overrides config)")

	serveCmd.Flags().String("listen-addr", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().String("static-dir", "", "Directory with the web client (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadConfig reads --config and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"data-dir", &cfg.DataDir},
		{"store-backend", &cfg.Store.Backend},
		{"log-level", &cfg.Log.Level},
		{"listen-addr", &cfg.ListenAddr},
		{"static-dir", &cfg.StaticDir},
	}
	for _, o := range overrides {
		if f := cmd.Flags().Lookup(o.flag); f != nil && f.Changed {
			*o.dst = f.Value.String()
		}
	}
	if f := cmd.Flags().Lookup("log-json"); f != nil && f.Changed {
		cfg.Log.JSON, _ = cmd.Flags().GetBool("log-json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// vaultDeps is everything opened for one vault
type vaultDeps struct {
	store    *storage.KeyStore
	governor *governor.LoginGovernor
	vault    *vault.Vault
}

func (d *vaultDeps) Close() error {
	return d.store.Close()
}

func openVault(cfg *config.Config, options ...vault.Option) (*vaultDeps, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	backend, err := storage.OpenBackend(cfg.Store.Backend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	store := storage.NewKeyStore(backend)

	gov, err := governor.New(cfg.GovernorSettings())
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	v, err := vault.New(store, gov, cfg.VaultOptions(), options...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &vaultDeps{store: store, governor: gov, vault: v}, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the vault HTTP server",
	Long: `Run the vault HTTP API, the expired token reaper and the metrics
collector until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		logger := log.WithComponent("serve")
		metrics.SetVersion(Version)

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		deps, err := openVault(cfg, vault.WithEvents(broker))
		if err != nil {
			return err
		}
		defer deps.Close()

		if _, err := deps.store.Initialized(cmd.Context()); err != nil {
			metrics.RegisterComponent(metrics.ComponentStore, false, err.Error())
			return fmt.Errorf("store is not readable: %w", err)
		}
		metrics.RegisterComponent(metrics.ComponentStore, true, "")

		resolver, err := governor.NewClientResolver(cfg.Governor.TrustForwardedFor, cfg.Governor.TrustedProxies)
		if err != nil {
			return err
		}

		docs := documents.NewService(deps.store, deps.vault.Cipher(), deps.vault.Now)
		server, err := api.NewServer(deps.vault, docs, api.Options{
			StaticDir:         cfg.StaticDir,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			Resolver:          resolver,
			Events:            broker,
			Version:           Version,
		})
		if err != nil {
			return err
		}

		reap := reaper.New(deps.vault, cfg.SweepInterval)
		reap.Start()
		defer reap.Stop()

		collector := metrics.NewCollector(deps.store, deps.governor.Len, collectInterval, log.WithComponent("metrics"))
		collector.Start()
		defer collector.Stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.ListenAddr)
		}()

		logger.Info().
			Str("listen_addr", cfg.ListenAddr).
			Str("data_dir", cfg.DataDir).
			Str("backend", cfg.Store.Backend).
			Str("version", Version).
			Msg("Kompromat is running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		case err := <-errCh:
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown: %w", err)
		}

		logger.Info().Msg("Shutdown complete")
		return nil
	},
}

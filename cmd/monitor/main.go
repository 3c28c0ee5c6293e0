// File: cmd/monitor/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/eth-activity-monitor/internal/cache"
	"github.com/smartdevs17/eth-activity-monitor/internal/config"
	"github.com/smartdevs17/eth-activity-monitor/internal/dispatch"
	"github.com/smartdevs17/eth-activity-monitor/internal/metrics"
	"github.com/smartdevs17/eth-activity-monitor/internal/poller"
	"github.com/smartdevs17/eth-activity-monitor/internal/registry"
	"github.com/smartdevs17/eth-activity-monitor/internal/resolver"
	"github.com/smartdevs17/eth-activity-monitor/internal/server"
	"github.com/smartdevs17/eth-activity-monitor/internal/source"
	"github.com/smartdevs17/eth-activity-monitor/internal/store"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application wires the activity monitor components together.
type Application struct {
	config     *config.Config
	store      store.Store
	cache      *cache.WatchCache
	resolver   *resolver.EthResolver
	registry   *registry.Registry
	poller     *poller.ActivityPoller
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Manager
	server     *server.HTTPServer
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	logCfg := cfg.Logging
	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeComponents builds every component, leaves first.
func (app *Application) initializeComponents() error {
	logger := utils.GetLogger()
	logger.Info("Initializing activity monitor components")

	app.metrics = metrics.NewManager()

	var err error
	app.store, err = store.NewStore(&app.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	if err := app.store.Connect(); err != nil {
		return fmt.Errorf("failed to connect store: %w", err)
	}
	if err := app.store.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}

	app.cache = cache.NewWatchCache(app.store, app.config.Cache.RefreshInterval, app.metrics)

	app.resolver, err = resolver.Dial(app.config.Ethereum.NodeURL)
	if err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}

	app.registry = registry.New(app.store, app.cache, app.resolver)

	app.dispatcher = dispatch.NewDispatcher(dispatch.NewLogSink(), &dispatch.DispatcherConfig{
		BaseDelay:   app.config.Dispatch.BaseDelay,
		DelayFactor: app.config.Dispatch.DelayFactor,
		MaxDelay:    app.config.Dispatch.MaxDelay,
		MediumBatch: app.config.Dispatch.MediumBatch,
		LargeBatch:  app.config.Dispatch.LargeBatch,
	}, app.metrics)

	gasClient := source.NewGasClient(
		app.config.Ethereum.GasTrackerURL,
		app.config.Ethereum.APIKey,
		app.config.Ethereum.RequestTimeout,
	)
	tokenClient := source.NewTokenClient(
		app.config.Ethereum.TokenInfoURL,
		app.config.Ethereum.APIKey,
		app.config.Ethereum.RequestTimeout,
	)
	txClient := source.NewTxClient(
		app.config.Ethereum.TxListURL,
		app.config.Ethereum.APIKey,
		tokenClient,
		app.config.Ethereum.RequestTimeout,
	)
	priceOracle := source.NewPriceOracle(
		app.config.Ethereum.PriceProviders,
		app.config.Ethereum.RequestTimeout,
	)

	app.poller = poller.New(app.cache, app.registry, gasClient, txClient, priceOracle,
		app.dispatcher, &poller.PollerConfig{
			GasInterval:     app.config.Poller.GasInterval,
			WalletInterval:  app.config.Poller.WalletInterval,
			UpdateThreshold: app.config.Poller.UpdateThreshold,
		}, app.metrics)

	app.server = server.NewHTTPServer(&server.ServerConfig{
		Port:          app.config.Server.Port,
		Host:          app.config.Server.Host,
		ReadTimeout:   app.config.Server.ReadTimeout,
		WriteTimeout:  app.config.Server.WriteTimeout,
		EnableMetrics: app.config.Server.EnableMetrics,
		EnableHealth:  app.config.Server.EnableHealth,
	}, app.store, app.poller, app.registry)

	logger.Info("All components initialized successfully")
	return nil
}

// Start starts the application
func (app *Application) Start() error {
	logger := utils.GetLogger()
	logger.WithField("version", AppVersion).Info("Starting ETH Activity Monitor")

	// Warm the cache before the first tick so the poller starts with the
	// full watch set.
	if err := app.cache.Refresh(app.ctx); err != nil {
		return fmt.Errorf("failed to warm watch cache: %w", err)
	}
	app.metrics.RecordCacheRefresh("ok")

	go app.cache.Run(app.ctx)

	if err := app.poller.Start(app.ctx); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}

	go func() {
		if err := app.server.Start(); err != nil {
			logger.WithError(err).Error("HTTP server exited")
		}
	}()

	app.metrics.SetComponentHealth("poller", true)
	app.metrics.SetComponentHealth("store", app.store.Ping() == nil)

	logger.WithField("addr", fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port)).
		Info("ETH Activity Monitor started")
	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	logger := utils.GetLogger()
	logger.Info("Stopping ETH Activity Monitor")

	app.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down HTTP server")
	}

	if err := app.poller.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop poller")
	}

	if err := app.store.Close(); err != nil {
		logger.WithError(err).Error("Failed to close store")
	}
	app.resolver.Close()

	logger.Info("ETH Activity Monitor stopped")
	return nil
}

// CLI Commands

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "eth-activity-monitor",
	Short:   "Ethereum wallet and gas price activity monitor",
	Long:    `Watches gas prices and per-address transaction activity for many subscribers and emits de-duplicated, rate-limited notifications.`,
	Version: AppVersion,
	RunE:    runMonitor,
}

// runMonitor is the main command to run the monitor
func runMonitor(cmd *cobra.Command, args []string) error {
	configPath := viper.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	<-signalChan
	fmt.Println("\nReceived shutdown signal, stopping application...")

	return app.Stop()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ETH Activity Monitor %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Node: %s\n", cfg.Ethereum.NodeURL)
		fmt.Printf("Database: %s\n", cfg.Storage.Type)
		fmt.Printf("Gas interval: %s, wallet interval: %s\n",
			cfg.Poller.GasInterval, cfg.Poller.WalletInterval)

		return nil
	},
}

// init initializes the CLI commands
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

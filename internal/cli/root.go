// Package cli provides the kisgw command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"kis-gateway/internal/config"
	"kis-gateway/internal/errors"
	"kis-gateway/internal/kis"
	"kis-gateway/internal/logging"
	"kis-gateway/internal/models"
	"kis-gateway/internal/resilience"
	"kis-gateway/internal/security"
	"kis-gateway/internal/store"
	"kis-gateway/internal/telemetry"
	"kis-gateway/internal/transport"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-03-02"
)

// App holds the application dependencies. Everything that talks to the
// venue is created lazily so offline commands work without credentials.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	// Transport replaces the HTTP transport when set.
	Transport transport.Transport
	// LogOutput replaces stderr as the console log destination when set.
	LogOutput io.Writer

	Audit   *security.AuditLogger
	Access  *security.AccessController
	Metrics *telemetry.Instruments

	meterProvider *sdkmetric.MeterProvider
	metricsReader *sdkmetric.ManualReader

	client *kis.Client
	ledger store.OrderLedger
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	app := &App{}
	rootCmd := NewRootCmd(app)
	defer app.Close()

	if err := rootCmd.Execute(); err != nil {
		reportError(rootCmd, err)
		return 1
	}
	return 0
}

// reportError prints err with its classification, as a JSON object on
// stdout in JSON mode.
func reportError(rootCmd *cobra.Command, err error) {
	if jsonMode, _ := rootCmd.PersistentFlags().GetBool("json"); jsonMode {
		out := &Output{writer: rootCmd.OutOrStdout(), jsonMode: true}
		out.JSON(map[string]interface{}{
			"error": map[string]string{"kind": errors.Kind(err), "message": err.Error()},
		})
		return
	}
	fmt.Fprintf(rootCmd.ErrOrStderr(), "Error [%s]: %v\n", errors.Kind(err), err)
}

// NewRootCmd creates the root command for the CLI. A non-nil app.Config is
// used as is instead of loading the configuration directory.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kisgw",
		Short: "KIS gateway - Korea Investment & Securities brokerage API client",
		Long: `kisgw talks to the Korea Investment & Securities Open API.

It manages the access token, signs order requests with a hashkey and routes
every call to the right endpoint and transaction code for domestic and
overseas equities, domestic and overseas derivatives and bonds.

Use 'kisgw route list' to see every supported operation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/kis-gateway)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("paper", false, "use the paper (simulated) venue")
	rootCmd.PersistentFlags().Bool("live", false, "use the live venue")

	addCoreCommands(rootCmd, app)
	addAuthCommands(rootCmd, app)
	addRouteCommands(rootCmd, app)
	addAccountCommands(rootCmd, app)
	addMarketCommands(rootCmd, app)
	addTradingCommands(rootCmd, app)
	addPluginCommands(rootCmd, app)
	addMetricsCommands(rootCmd, app)
	addHelpCommands(rootCmd, app)

	return rootCmd
}

func (a *App) setup(cmd *cobra.Command) error {
	paper, _ := cmd.Flags().GetBool("paper")
	live, _ := cmd.Flags().GetBool("live")
	if paper && live {
		return fmt.Errorf("--paper and --live are mutually exclusive")
	}

	if a.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		a.Config = cfg
	}
	switch {
	case paper:
		a.Config.Venue.Environment = string(models.Paper)
	case live:
		a.Config.Venue.Environment = string(models.Live)
	}

	level := a.Config.Logging.Level
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = "debug"
	}
	a.Logger = logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      level,
		Console:    true,
		File:       a.Config.Logging.File,
		FilePath:   a.Config.Logging.Path,
		MaxSize:    50,
		MaxBackups: 7,
		MaxAge:     30,
		Out:        a.LogOutput,
	})

	if a.Audit == nil && a.Config.Security.AuditEnabled {
		auditCfg := security.DefaultAuditConfig()
		if a.Config.Security.AuditPath != "" {
			auditCfg.Path = a.Config.Security.AuditPath
		}
		audit, err := security.NewAuditLogger(auditCfg)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Audit log unavailable")
		} else {
			a.Audit = audit
		}
	}
	a.Access = security.NewAccessController(a.Config.Security.ReadOnlyMode, a.Audit)

	if a.Config.Metrics.Enabled {
		return a.enableMetrics()
	}
	return nil
}

// enableMetrics installs an in-process meter provider. It must run before
// the venue client is created.
func (a *App) enableMetrics() error {
	if a.Metrics != nil {
		return nil
	}
	a.meterProvider, a.metricsReader = telemetry.NewManualProvider()
	in, err := telemetry.NewInstruments(a.meterProvider)
	if err != nil {
		return fmt.Errorf("creating metric instruments: %w", err)
	}
	a.Metrics = in
	return nil
}

// Environment returns the selected venue environment.
func (a *App) Environment() (models.Environment, error) {
	return models.ParseEnvironment(a.Config.Venue.Environment)
}

// ClientOptions returns the options every venue client of this process shares.
func (a *App) ClientOptions() []kis.Option {
	opts := []kis.Option{
		kis.WithLogger(a.Logger),
		kis.WithMetrics(a.Metrics),
	}
	if a.Access != nil {
		opts = append(opts, kis.WithAccessChecker(a.Access))
	}
	if a.Audit != nil {
		opts = append(opts, kis.WithAudit(a.Audit))
	}
	return opts
}

// VenueTransport returns the transport used to reach the venue.
func (a *App) VenueTransport() transport.Transport {
	if a.Transport != nil {
		return a.Transport
	}
	cfg := transport.DefaultConfig()
	cfg.Timeout = a.Config.Transport.Timeout
	cfg.MaxRetries = a.Config.Transport.MaxRetries
	cfg.Breaker = resilience.CircuitBreakerConfig{
		FailureThreshold: a.Config.Transport.BreakerThreshold,
		SuccessThreshold: 1,
		Cooldown:         a.Config.Transport.BreakerCooldown,
	}
	cfg.Logger = a.Logger
	a.Transport = transport.NewHTTPTransport(cfg)
	return a.Transport
}

// Client returns the venue client, creating it on first use.
func (a *App) Client() (*kis.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	if err := a.Config.ValidateCredentials(); err != nil {
		return nil, err
	}
	env, err := a.Environment()
	if err != nil {
		return nil, err
	}
	creds := a.Config.Credentials
	cred, err := kis.NewCredential(creds.AppKey, creds.AppSecret, creds.AccountNo, env)
	if err != nil {
		return nil, err
	}

	a.client = kis.NewClient(cred, a.VenueTransport(), a.ClientOptions()...)
	a.Logger.Debug().Str("credential", cred.String()).Msg("Venue client initialized")
	return a.client, nil
}

// Endpoint returns the client's endpoint for class.
func (a *App) Endpoint(class models.AssetClass) (*kis.Endpoint, error) {
	client, err := a.Client()
	if err != nil {
		return nil, err
	}
	return client.Endpoint(class)
}

// Ledger returns the order ledger, opening it on first use.
func (a *App) Ledger() (store.OrderLedger, error) {
	if a.ledger != nil {
		return a.ledger, nil
	}
	ledger, err := store.NewSQLiteStore(a.Config.Store.Path)
	if err != nil {
		return nil, errors.Wrap(err, "opening order ledger")
	}
	a.ledger = ledger
	return a.ledger, nil
}

// MetricTotals returns the collected metric values, or nil when metrics
// are disabled.
func (a *App) MetricTotals(ctx context.Context) (map[string]int64, error) {
	if a.metricsReader == nil {
		return nil, nil
	}
	return telemetry.Totals(ctx, a.metricsReader)
}

// Close releases the ledger, audit log and meter provider.
func (a *App) Close() {
	if a.ledger != nil {
		a.ledger.Close()
	}
	if a.Audit != nil {
		a.Audit.Close()
	}
	if a.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.meterProvider.Shutdown(ctx)
	}
}

// commandContext bounds a command's venue calls.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, 2*time.Minute)
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("KIS Gateway v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the gateway configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			view := configView(app.Config)
			if output.IsJSON() {
				return output.JSON(view)
			}
			return showConfig(output, view)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
			} else {
				output.Println(dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			err := app.Config.Validate()
			if err == nil {
				err = app.Config.ValidateCredentials()
			}
			if err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

type configSummary struct {
	Environment  string `json:"environment"`
	AppKey       string `json:"app_key"`
	Account      string `json:"account"`
	Timeout      string `json:"timeout"`
	MaxRetries   int    `json:"max_retries"`
	Breaker      int    `json:"breaker_threshold"`
	ReadOnly     bool   `json:"read_only"`
	AuditEnabled bool   `json:"audit_enabled"`
	StorePath    string `json:"store_path"`
	Metrics      bool   `json:"metrics"`
}

func configView(cfg *config.Config) configSummary {
	return configSummary{
		Environment:  cfg.Venue.Environment,
		AppKey:       security.MaskCredential(cfg.Credentials.AppKey),
		Account:      security.MaskAccount(cfg.Credentials.AccountNo),
		Timeout:      cfg.Transport.Timeout.String(),
		MaxRetries:   cfg.Transport.MaxRetries,
		Breaker:      cfg.Transport.BreakerThreshold,
		ReadOnly:     cfg.Security.ReadOnlyMode,
		AuditEnabled: cfg.Security.AuditEnabled,
		StorePath:    cfg.Store.Path,
		Metrics:      cfg.Metrics.Enabled,
	}
}

func showConfig(output *Output, v configSummary) error {
	output.Bold("Venue")
	output.Printf("  Environment:     %s\n", v.Environment)
	output.Printf("  App key:         %s\n", v.AppKey)
	output.Printf("  Account:         %s\n", v.Account)
	output.Println()

	output.Bold("Transport")
	output.Printf("  Timeout:         %s\n", v.Timeout)
	output.Printf("  GET retries:     %d\n", v.MaxRetries)
	output.Printf("  Breaker after:   %d failures\n", v.Breaker)
	output.Println()

	output.Bold("Security")
	output.Printf("  Read-only:       %v\n", v.ReadOnly)
	output.Printf("  Audit log:       %v\n", v.AuditEnabled)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Order ledger:    %s\n", v.StorePath)
	output.Printf("  Metrics:         %v\n", v.Metrics)

	return nil
}

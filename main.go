package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/jpillora/backoff"
	"github.com/spf13/cobra"

	"github.com/smazurov/lvdsbridge/cmd"
	"github.com/smazurov/lvdsbridge/internal/api"
	"github.com/smazurov/lvdsbridge/internal/bridge"
	"github.com/smazurov/lvdsbridge/internal/config"
	"github.com/smazurov/lvdsbridge/internal/dsi"
	"github.com/smazurov/lvdsbridge/internal/events"
	"github.com/smazurov/lvdsbridge/internal/led"
	"github.com/smazurov/lvdsbridge/internal/logging"
	"github.com/smazurov/lvdsbridge/internal/metrics/exporters"
	"github.com/smazurov/lvdsbridge/internal/platform"
	"github.com/smazurov/lvdsbridge/internal/systemd"
	"github.com/smazurov/lvdsbridge/internal/version"
	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8091" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Board settings
	ChipBus          string `help:"I2C bus name (empty opens the first bus)" default:"" toml:"i2c.bus" env:"I2C_BUS"`
	ChipAddress      int    `help:"7-bit I2C address of the bridge (0x2d)" default:"45" toml:"i2c.address" env:"I2C_ADDRESS"`
	ResetPin         string `help:"Reset GPIO name" default:"GPIO5" toml:"gpio.reset" env:"GPIO_RESET"`
	ClockEnablePin   string `help:"Reference clock enable GPIO name (empty = always on)" default:"" toml:"gpio.clock_enable" env:"GPIO_CLOCK_ENABLE"`
	DSIHostPath      string `help:"Path the DSI host exposes once it is ready" default:"" toml:"dsi.host_path" env:"DSI_HOST_PATH"`
	DSILanes         int    `help:"DSI data lanes" default:"4" toml:"dsi.lanes" env:"DSI_LANES"`
	DSIBurst         bool   `help:"DSI burst mode" default:"true" toml:"dsi.burst" env:"DSI_BURST"`
	PanelWidthMM     int    `help:"Panel width in mm" default:"698" toml:"panel.width_mm" env:"PANEL_WIDTH_MM"`
	PanelHeightMM    int    `help:"Panel height in mm" default:"393" toml:"panel.height_mm" env:"PANEL_HEIGHT_MM"`
	BridgeName       string `help:"Bridge instance name for events and metrics" default:"lt9211c-0" toml:"bridge.name" env:"BRIDGE_NAME"`
	BridgeRetryLimit int    `help:"RX timing failures before a full re-init" default:"30" toml:"bridge.retry_limit" env:"BRIDGE_RETRY_LIMIT"`

	BridgePCRPollInterval string `help:"PCR lock poll interval" default:"500ms" toml:"bridge.pcr_poll_interval" env:"BRIDGE_PCR_POLL_INTERVAL"`
	BridgePCRPollAttempts int    `help:"PCR lock poll attempts" default:"50" toml:"bridge.pcr_poll_attempts" env:"BRIDGE_PCR_POLL_ATTEMPTS"`
	BridgeRetryMinDelay   string `help:"Minimum re-entry delay" default:"10ms" toml:"bridge.retry_min_delay" env:"BRIDGE_RETRY_MIN_DELAY"`
	BridgeRetryMaxDelay   string `help:"Maximum re-entry delay" default:"1s" toml:"bridge.retry_max_delay" env:"BRIDGE_RETRY_MAX_DELAY"`

	// Features settings
	FeaturesLEDControl bool `help:"Enable LED control" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`
	FeaturesPrometheus bool `help:"Enable Prometheus /metrics" default:"true" toml:"features.prometheus_enabled" env:"FEATURES_PROMETHEUS"`
	FeaturesMetricsSSE bool `help:"Stream metrics snapshots over SSE" default:"true" toml:"features.metrics_sse_enabled" env:"FEATURES_METRICS_SSE"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingBridge   string `help:"Bridge state machine logging level" default:"info" toml:"logging.bridge" env:"LOGGING_BRIDGE"`
	LoggingChip     string `help:"Chip register traffic logging level" default:"info" toml:"logging.chip" env:"LOGGING_CHIP"`
	LoggingPlatform string `help:"Platform logging level" default:"info" toml:"logging.platform" env:"LOGGING_PLATFORM"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingLED      string `help:"LED logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
	LoggingConfig   string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

// bridgeConfig maps CLI/TOML options onto the bring-up policy.
func bridgeConfig(opts *Options) (bridge.Config, error) {
	cfg := bridge.DefaultConfig()
	cfg.Name = opts.BridgeName
	cfg.RetryLimit = opts.BridgeRetryLimit
	cfg.PCR.Attempts = opts.BridgePCRPollAttempts
	cfg.PanelWidthMM = uint32(max(opts.PanelWidthMM, 0))
	cfg.PanelHeightMM = uint32(max(opts.PanelHeightMM, 0))

	for _, d := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"bridge.pcr_poll_interval", opts.BridgePCRPollInterval, &cfg.PCR.Interval},
		{"bridge.retry_min_delay", opts.BridgeRetryMinDelay, &cfg.RetryMinDelay},
		{"bridge.retry_max_delay", opts.BridgeRetryMaxDelay, &cfg.RetryMaxDelay},
	} {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}
	return cfg, nil
}

// attachWithBackoff retries Attach while the DSI host is not ready.
func attachWithBackoff(ctx context.Context, b *bridge.Bridge, logger *slog.Logger) error {
	bo := &backoff.Backoff{Min: 100 * time.Millisecond, Max: 5 * time.Second, Factor: 2, Jitter: true}
	for {
		err := b.Attach()
		if err == nil {
			return nil
		}
		if !errors.Is(err, lt9211c.ErrDefer) {
			return err
		}

		d := bo.Duration()
		logger.Debug("DSI host not ready, deferring attach", "error", err, "retry_in", d)
		if sleepErr := lt9211c.SleepContext(ctx, d); sleepErr != nil {
			return sleepErr
		}
	}
}

func main() {
	var root *cobra.Command

	// Create Huma CLI
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, root); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"bridge":   opts.LoggingBridge,
				"chip":     opts.LoggingChip,
				"platform": opts.LoggingPlatform,
				"api":      opts.LoggingAPI,
				"http":     opts.LoggingHTTP,
				"led":      opts.LoggingLED,
				"config":   opts.LoggingConfig,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")
		logger.Info(version.Banner())

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Forward log lines to SSE subscribers
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(api.LogEntryToEvent(entry))
		})

		bridgeCfg, err := bridgeConfig(opts)
		if err != nil {
			logger.Error("Invalid bridge configuration", "error", err)
			os.Exit(1)
		}

		// Board resources are fatal when missing
		board, err := platform.Open(platform.Config{
			I2CBus:         opts.ChipBus,
			I2CAddr:        uint16(opts.ChipAddress),
			ResetPin:       opts.ResetPin,
			ClockEnablePin: opts.ClockEnablePin,
		}, logging.GetLogger("platform"))
		if err != nil {
			logger.Error("Failed to open platform resources", "error", err)
			os.Exit(1)
		}

		host, err := dsi.New(dsi.Config{
			HostPath: opts.DSIHostPath,
			Lanes:    opts.DSILanes,
			Burst:    opts.DSIBurst,
		}, logging.GetLogger("platform"))
		if err != nil {
			_ = board.Close()
			logger.Error("Invalid DSI configuration", "error", err)
			os.Exit(1)
		}

		chip := lt9211c.New(board.Device(), logging.GetLogger("chip"))
		br, err := bridge.New(&bridge.Options{
			Config: bridgeCfg,
			Chip:   chip,
			Reset:  board.Reset(),
			Link:   host,
			Logger: logging.GetLogger("bridge"),
			Events: eventBus,
		})
		if err != nil {
			_ = board.Close()
			logger.Error("Failed to create bridge", "error", err)
			os.Exit(1)
		}

		// Initialize LED control if enabled
		var ledManager *led.Manager
		var ledController led.Controller
		if opts.FeaturesLEDControl {
			logger.Info("LED control enabled, initializing")
			ledLogger := logging.GetLogger("led")
			ledController = led.New(ledLogger)
			ledManager = led.NewManager(ledController, eventBus, ledLogger)
		}

		// READY=1 follows the API and Enable; the link only shows in STATUS
		notifier := systemd.NewNotifier()
		unsubNotify := eventBus.Subscribe(func(e events.BridgeLinkStateEvent) {
			if _, notifyErr := notifier.LinkState(e.Bridge, e.Up); notifyErr != nil {
				logger.Debug("sd_notify failed", "error", notifyErr)
			}
		})

		// Config file hot reload
		var startup config.BridgeFile
		if f, loadErr := config.LoadBridgeFile(opts.Config); loadErr == nil {
			startup = f
		}
		configLogger := logging.GetLogger("config")
		watcher := config.NewConfigWatcher(opts.Config, config.LoadBridgeFile, configLogger)
		watcher.OnReload(func(f config.BridgeFile) {
			logging.ApplyLevels(config.LoadLoggingConfig(opts.Config))
			if startup.RequiresRestart(f) {
				configLogger.Warn("Config changed values applied only at startup, restart to apply", "path", opts.Config)
			}
			rearmed := false
			if f.Bridge.RearmOnConfigChange {
				if enableErr := br.Enable(); enableErr != nil {
					configLogger.Warn("Failed to rearm bridge after config change", "error", enableErr)
				} else {
					rearmed = true
				}
			}
			eventBus.Publish(events.ConfigReloadedEvent{
				Path:      opts.Config,
				Rearmed:   rearmed,
				Timestamp: time.Now().Format(time.RFC3339),
			})
		})

		apiOpts := &api.Options{
			AuthUsername:  opts.AuthUsername,
			AuthPassword:  opts.AuthPassword,
			Bridge:        br,
			EventBus:      eventBus,
			LEDController: ledController,
		}
		if opts.FeaturesPrometheus {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		var sseExporter *exporters.SSEExporter
		if opts.FeaturesMetricsSSE {
			sseExporter = exporters.NewSSEExporter(eventBus)
		}

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if ledManager != nil {
				ledManager.Start()
			}
			if sseExporter != nil {
				sseExporter.Start(ctx)
			}
			if startErr := watcher.Start(); startErr != nil {
				logger.Warn("Failed to start config watcher, hot-reload disabled", "error", startErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if listenErr := server.Listen(opts.Port); listenErr != nil {
				logger.Error("Failed to start HTTP server", "error", listenErr)
				os.Exit(1)
			}

			// Attach defers until the DSI host shows up, then bring-up starts
			go func() {
				if attachErr := attachWithBackoff(ctx, br, logger); attachErr != nil {
					if !errors.Is(attachErr, context.Canceled) {
						logger.Error("Failed to attach bridge", "error", attachErr)
					}
					return
				}
				if enableErr := br.Enable(); enableErr != nil {
					logger.Error("Failed to enable bridge", "error", enableErr)
					return
				}
				if _, notifyErr := notifier.Ready(fmt.Sprintf("%s: bring-up started", bridgeCfg.Name)); notifyErr != nil {
					logger.Debug("sd_notify failed", "error", notifyErr)
				}
			}()

			if serveErr := server.Serve(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("HTTP server failed", "error", serveErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if _, notifyErr := notifier.Stopping(); notifyErr != nil {
				logger.Debug("sd_notify failed", "error", notifyErr)
			}
			cancel()

			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Debug("Error stopping config watcher", "error", stopErr)
			}

			// Detach before releasing the bus so no tick touches a closed device
			if detachErr := br.Detach(); detachErr != nil {
				logger.Warn("Error detaching bridge", "error", detachErr)
			}
			unsubNotify()
			if closeErr := board.Close(); closeErr != nil {
				logger.Warn("Error releasing platform resources", "error", closeErr)
			}

			if sseExporter != nil {
				sseExporter.Stop()
			}
			if ledManager != nil {
				ledManager.Stop()
			}
		})
	})

	root = cli.Root()
	root.Use = version.Name
	root.Short = "LT9211C MIPI-DSI to LVDS bridge daemon"
	root.Version = version.String()

	root.AddCommand(cmd.CreateModesCmd())
	root.AddCommand(cmd.CreatePLLCmd())
	root.AddCommand(cmd.CreateProbeCmd())

	// Run the CLI
	cli.Run()
}

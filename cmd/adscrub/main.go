// Package main is the CLI entry point for adscrub.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adscrub/adscrub/internal/config"
	"github.com/adscrub/adscrub/internal/daemon"
	"github.com/adscrub/adscrub/internal/domain"
	"github.com/adscrub/adscrub/internal/infra"
	"github.com/adscrub/adscrub/internal/signature"
	"github.com/adscrub/adscrub/internal/status"
	"github.com/adscrub/adscrub/internal/usecase"
	"github.com/adscrub/adscrub/internal/x11"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adscrub",
	Short: "Ad-window suppression agent",
	Long: `adscrub runs in the background and removes ads from the KakaoTalk
desktop client by watching its window tree and hiding, shrinking, or
closing the known ad windows. The client's binary and memory are never
touched; only its windows are manipulated.`,
	Version: Version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the suppression agent",
	Long: `Runs the watch loop: resolve the target process, then continuously
enumerate its windows, classify them against the ad signature table, and
suppress the matches. Only one agent runs per session.

With --detach the agent forks to the background and the command returns.`,
	RunE: runAgent,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single suppression cycle immediately",
	Long: `Runs one enumerate-classify-actuate pass against the target process
and prints what was suppressed. Useful for trying out the signature table
without starting the agent.`,
	RunE: runScan,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the ad signature table",
	Long:  `Shows the ordered signature rules: class pattern, parent constraint, and action.`,
	RunE:  runRules,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check agent status",
	Long:  `Shows whether the agent is running and its suppression counters.`,
	RunE:  runStatus,
}

var autostartCmd = &cobra.Command{
	Use:       "autostart [enable|disable|status]",
	Short:     "Manage the login autostart entry",
	Long:      `Installs, removes, or inspects the XDG autostart entry that launches the agent on login.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"enable", "disable", "status"},
	RunE:      runAutostart,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for a newer release",
	Long:  `Queries the GitHub releases API and reports whether a newer version exists. Nothing is downloaded.`,
	RunE:  runUpdate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath string
	detach     bool
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ~/.config/adscrub/config.yaml)")
	runCmd.Flags().BoolVar(&detach, "detach", false, "Run the agent in the background")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(autostartCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if detach {
		// The child is a fresh exec: flags from this invocation must be
		// forwarded or the background agent falls back to the defaults.
		var extraArgs []string
		if configPath != "" {
			extraArgs = append(extraArgs, "--config", configPath)
		}
		pid, err := daemon.Detach(extraArgs...)
		if err != nil {
			return fmt.Errorf("failed to detach: %w", err)
		}
		fmt.Printf("Agent started in background (pid %d)\n", pid)
		return nil
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()

	// A malformed signature table is a build-time defect: fail now, never
	// at cycle time.
	classifier, err := signature.NewBuiltinClassifier()
	if err != nil {
		return err
	}

	conn, err := x11.NewConnection()
	if err != nil {
		return fmt.Errorf("failed to connect to X11: %w", err)
	}
	defer conn.Close()

	locator := infra.NewProcessLocator()
	winsys := x11.NewSystem(conn, locator)
	tracker := status.NewTracker(cfg.SuppressionEnabled())
	suppressor := usecase.NewSuppressor(winsys, classifier, tracker, logger)
	registry := infra.NewFileRegistry(locator)

	watcherCfg := daemon.WatcherConfig{
		MonitorInterval:   cfg.MonitorInterval,
		ResolveInterval:   cfg.ResolveInterval,
		HeartbeatInterval: cfg.HeartbeatInterval,
		NotFoundThreshold: cfg.NotFoundThreshold,
	}
	watcher := daemon.NewWatcher(watcherCfg, cfg.TargetExe, Version,
		locator, suppressor, tracker, registry, logger)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	// Best-effort update check in the background; the result only shows up
	// in the log.
	go func() {
		check, err := infra.NewUpdateChecker().Check(ctx, Version)
		if err != nil {
			logger.Debug("update check failed", zap.Error(err))
			return
		}
		if check.Available {
			logger.Info("new version available",
				zap.String("current", check.Current),
				zap.String("latest", check.Latest),
				zap.String("releases", infra.ReleasesPageURL))
		}
	}()

	err = watcher.Run(ctx)
	if errors.Is(err, domain.ErrAlreadyRunning) {
		return fmt.Errorf("adscrub is already running (registry: %s)", registry.Path())
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	classifier, err := signature.NewBuiltinClassifier()
	if err != nil {
		return err
	}

	conn, err := x11.NewConnection()
	if err != nil {
		return fmt.Errorf("failed to connect to X11: %w", err)
	}
	defer conn.Close()

	locator := infra.NewProcessLocator()
	pid, err := locator.FindByExe(cfg.TargetExe)
	if err != nil {
		if errors.Is(err, domain.ErrProcessNotFound) {
			fmt.Printf("%s is not running.\n", cfg.TargetExe)
			return nil
		}
		return err
	}

	winsys := x11.NewSystem(conn, locator)
	tracker := status.NewTracker(true)
	suppressor := usecase.NewSuppressor(winsys, classifier, tracker, logger)

	target := domain.TargetProcess{PID: pid, ExeName: cfg.TargetExe}
	result, err := suppressor.Cycle(context.Background(), target)
	if err != nil {
		return fmt.Errorf("cycle failed: %w", err)
	}

	fmt.Println("\n=== Suppression Cycle ===")
	fmt.Printf("Target: %s (pid %d)\n", cfg.TargetExe, pid)
	fmt.Printf("Windows seen: %d\n", result.WindowsSeen)
	fmt.Printf("Hidden: %d  Resized: %d  Blocked: %d\n",
		result.Hidden, result.Resized, result.Blocked)
	if result.Errors > 0 {
		fmt.Printf("Errors: %d (stale handles, see log)\n", result.Errors)
	}
	fmt.Printf("Duration: %s\n", result.Duration.Round(time.Microsecond))
	fmt.Println("=========================")
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	classifier, err := signature.NewBuiltinClassifier()
	if err != nil {
		return err
	}

	fmt.Println("\n=== Ad Signature Table ===")
	for i, r := range classifier.Rules() {
		fmt.Printf("\n%d. class %q\n", i+1, r.ClassPattern)
		if r.ParentPattern != "" {
			fmt.Printf("   parent %q\n", r.ParentPattern)
		}
		if r.PopupOnly {
			fmt.Println("   popup-style only")
		}
		switch r.Action {
		case domain.ActionResize:
			fmt.Printf("   action: resize to %s\n", formatPolicy(r.Resize))
		default:
			fmt.Printf("   action: %s\n", r.Action)
		}
	}
	fmt.Println("\n==========================")
	return nil
}

func formatPolicy(p signature.RectPolicy) string {
	w, h := "keep", "keep"
	if p.Width != signature.KeepDim {
		w = fmt.Sprintf("%d", p.Width)
	}
	if p.Height != signature.KeepDim {
		h = fmt.Sprintf("%d", p.Height)
	}
	return fmt.Sprintf("%sx%s", w, h)
}

func runStatus(cmd *cobra.Command, args []string) error {
	locator := infra.NewProcessLocator()
	registry := infra.NewFileRegistry(locator)

	fmt.Println("\n=== adscrub Status ===")

	state, err := registry.Get()
	if err != nil || state == nil {
		fmt.Println("Status: NOT RUNNING")
		fmt.Println("\nRun 'adscrub run --detach' to start the agent.")
		return nil
	}

	if locator.IsRunning(state.PID) {
		fmt.Printf("Status: RUNNING (pid %d)\n", state.PID)
	} else {
		fmt.Println("Status: NOT RUNNING (stale registry entry)")
	}

	fmt.Printf("\nTarget: %s\n", state.TargetExe)
	switch state.State {
	case string(domain.StateMonitoring):
		fmt.Printf("State: monitoring (target pid %d)\n", state.TargetPID)
	default:
		fmt.Println("State: resolving (target not running)")
	}

	if state.LastHeartbeat > 0 {
		lastBeat := time.Unix(state.LastHeartbeat, 0)
		fmt.Printf("Last heartbeat: %s ago\n", time.Since(lastBeat).Round(time.Second))
	}

	fmt.Printf("\nCycles: %d\n", state.Cycles)
	fmt.Printf("Windows seen: %d\n", state.WindowsSeen)
	fmt.Printf("Suppressed: %d hidden, %d resized, %d popups blocked\n",
		state.Hidden, state.Resized, state.Blocked)

	if state.AppVersion != "" && state.AppVersion != Version {
		fmt.Printf("\nNote: agent is running v%s, this binary is v%s\n",
			state.AppVersion, Version)
	}

	fmt.Println("======================")
	return nil
}

func runAutostart(cmd *cobra.Command, args []string) error {
	manager, err := infra.NewXDGAutostart()
	if err != nil {
		return err
	}

	switch args[0] {
	case "enable":
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
		if err := manager.Enable(execPath); err != nil {
			return fmt.Errorf("failed to install autostart entry: %w", err)
		}
		fmt.Printf("Autostart enabled: %s\n", manager.EntryPath())

	case "disable":
		if err := manager.Disable(); err != nil {
			return fmt.Errorf("failed to remove autostart entry: %w", err)
		}
		fmt.Println("Autostart disabled")

	case "status":
		if manager.IsEnabled() {
			fmt.Printf("Autostart: enabled (%s)\n", manager.EntryPath())
		} else {
			fmt.Println("Autostart: disabled")
		}
	}

	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Current version: %s\n", Version)

	check, err := infra.NewUpdateChecker().Check(cmd.Context(), Version)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}

	if check.Available {
		fmt.Printf("New version available: %s\n", check.Latest)
		fmt.Printf("Download: %s\n", infra.ReleasesPageURL)
	} else {
		fmt.Println("Already up to date.")
	}
	return nil
}

func createLogger(cfg *config.Config) *zap.Logger {
	logPath := cfg.LogFile
	if logPath == "" {
		if p, err := config.DefaultLogPath(); err == nil {
			logPath = p
		}
	}
	if logPath != "" {
		_ = os.MkdirAll(filepath.Dir(logPath), 0755)
	}

	zapCfg := zap.NewProductionConfig()
	if logPath != "" {
		zapCfg.OutputPaths = []string{logPath}
		zapCfg.ErrorOutputPaths = []string{logPath}
	}
	zapCfg.EncoderConfig.TimeKey = "time"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("adscrub %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

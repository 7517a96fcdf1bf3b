package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/compose-network/intersection-coordinator/coordinator-app/config"
	"github.com/compose-network/intersection-coordinator/log"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "intersection-coordinator",
		Short: "Intersection coordinator",
		Long:  "Decides when a vehicle stopped at an intersection may cross, from LED signals of its peers and the traffic light.",
		RunE:  runApp,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   runVersion,
	}
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	initCommands()
	return rootCmd.Execute()
}

func initCommands() {
	rootCmd.AddCommand(versionCmd)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (defaults and environment only when empty)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "enable pretty logging")

	// Node flags
	rootCmd.PersistentFlags().String("vehicle", "", "vehicle name, selects <vehicle>.coordinator.yaml")
	rootCmd.PersistentFlags().Duration("tick-period", 0, "coordinator tick period")

	// Transport flags
	rootCmd.PersistentFlags().String("bus-driver", "", "message bus driver (memory, redis)")
	rootCmd.PersistentFlags().String("redis-addr", "", "redis address for the redis bus driver")

	// API flags
	rootCmd.PersistentFlags().String("api-addr", "", "HTTP API listen address")
	rootCmd.PersistentFlags().Bool("metrics", false, "expose /metrics")
}

func runApp(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	log := log.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("go_version", runtime.Version()).
		Msg("Build information")

	log.Info().
		Str("config_file", cfgFile).
		Str("vehicle", cfg.Node.Vehicle).
		Dur("tick_period", cfg.Node.TickPeriod).
		Str("bus_driver", cfg.Bus.Driver).
		Str("api_addr", cfg.API.ListenAddr).
		Bool("metrics_enabled", cfg.Metrics.Enabled).
		Str("log_level", cfg.Log.Level).
		Msg("Configuration loaded")

	application, err := NewApp(cmd.Context(), cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(cmd.Context())
}

func runVersion(*cobra.Command, []string) {
	fmt.Printf("Intersection coordinator\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flag("log-level").Changed {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flag("log-pretty").Changed {
		cfg.Log.Pretty, _ = cmd.Flags().GetBool("log-pretty")
	}

	if cmd.Flag("vehicle").Changed {
		cfg.Node.Vehicle, _ = cmd.Flags().GetString("vehicle")
	}
	if cmd.Flag("tick-period").Changed {
		cfg.Node.TickPeriod, _ = cmd.Flags().GetDuration("tick-period")
	}

	if cmd.Flag("bus-driver").Changed {
		cfg.Bus.Driver, _ = cmd.Flags().GetString("bus-driver")
	}
	if cmd.Flag("redis-addr").Changed {
		cfg.Bus.Redis.Addr, _ = cmd.Flags().GetString("redis-addr")
	}

	if cmd.Flag("api-addr").Changed {
		cfg.API.ListenAddr, _ = cmd.Flags().GetString("api-addr")
	}
	if cmd.Flag("metrics").Changed {
		cfg.Metrics.Enabled, _ = cmd.Flags().GetBool("metrics")
	}
}

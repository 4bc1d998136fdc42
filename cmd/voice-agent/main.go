package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/config"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/logger"
)

const serviceName = "voice-agent"

var (
	buildTargetFlag string
	rootCmd         = &cobra.Command{
		Use:          "voice-agent",
		Short:        "Appointment booking voice agent backend",
		SilenceUsage: true,
	}
)

// loadConfig reads the environment and applies the --build-target override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if buildTargetFlag != "" {
		cfg.BuildTarget = buildTargetFlag
		cfg.DBDriver = "auto"
		if err := cfg.ResolveDefaults(); err != nil {
			return nil, fmt.Errorf("invalid build-target override: %w", err)
		}
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	return logger.NewWithWriter(w, serviceName, cfg.LogLevel)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&buildTargetFlag, "build-target", "", "Override BUILD_TARGET (local, cloud)")

	rootCmd.AddCommand(newServeCmd(), newMCPCmd(), newMigrateCmd(), newSeedCmd(), newConsoleCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

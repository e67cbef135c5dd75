package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gokaycavdar/go-geogate/pkg/config"
)

var (
	rootCmd = &cobra.Command{
		Use:          "geogate",
		Short:        "Country gate for incoming visitors",
		SilenceUsage: true,
	}

	configFile = pflag.String("config", "", "set config file")
	logLevel   = pflag.String("log", "", "set log level")
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config and applies the --log override.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}

	if *logLevel != "" {
		cfg.Log.Level = *logLevel
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
	}
	log.SetLevel(cfg.LogLevel())
	return cfg, nil
}

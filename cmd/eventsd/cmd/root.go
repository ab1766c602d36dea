// Package cmd is the eventsd command tree.
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"event-catalog/config"
	"event-catalog/internal/logger"
)

const serviceName = "eventsd"

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Event catalog: provider feed ingestion and event search",
	Long: `eventsd keeps a catalog of ticketed events in sync with a third-party
provider feed and serves range searches over it.

Configuration comes from defaults, an optional YAML file (--config) and
EVENTS__-prefixed environment variables, e.g. EVENTS__DATABASE__URL.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	rootCmd.AddCommand(serveCmd, ingestCmd, listCmd, configCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	logger.Init(serviceName, level)
	cfg = c
	return nil
}

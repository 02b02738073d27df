package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pershin-daniil/facultymeet/internal/config"
)

const version = "0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "facultymeet",
	Short: "Faculty meeting scheduling and attendance service",
	Long: `facultymeet schedules faculty meetings with rank-based conflict resolution,
ends forgotten meetings automatically and keeps attendance statistics.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("FACULTYMEET_CONFIG"), "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd, parseCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("err loading config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

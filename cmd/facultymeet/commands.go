package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pershin-daniil/facultymeet/pkg/logger"
	"github.com/pershin-daniil/facultymeet/pkg/pgstore"
	"github.com/pershin-daniil/facultymeet/pkg/voice"
	"github.com/pershin-daniil/facultymeet/pkg/worker"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		direction := migrate.Up
		if len(args) == 1 && args[0] == "down" {
			direction = migrate.Down
		}
		log := logger.NewLogger(cfg.LogLevel, cfg.LogJSON)
		store, err := pgstore.NewStore(cmd.Context(), log, cfg.PgDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Migrate(direction)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one auto-end pass and send due reminders, then exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		d, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.Close()
		if err = worker.New(d.log, d.app, cfg.SweepInterval, cfg.RemindInterval).SweepOnce(ctx); err != nil {
			return err
		}
		_, err = d.app.RemindStarting(ctx)
		return err
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <command words...>",
	Short: "Show the meeting draft a spoken command produces",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		draft := voice.Parse(strings.Join(args, " "), time.Now().In(cfg.Location()))
		out, err := yaml.Marshal(map[string]string{
			"title":     draft.Title,
			"attendees": draft.Attendees,
			"location":  draft.Location,
			"dateTime":  draft.DateTime.Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("err encoding draft: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

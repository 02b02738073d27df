package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pershin-daniil/facultymeet/internal/calendar"
	"github.com/pershin-daniil/facultymeet/internal/config"
	"github.com/pershin-daniil/facultymeet/internal/rest"
	"github.com/pershin-daniil/facultymeet/internal/telegram"
	"github.com/pershin-daniil/facultymeet/pkg/events"
	"github.com/pershin-daniil/facultymeet/pkg/logger"
	"github.com/pershin-daniil/facultymeet/pkg/notifier"
	"github.com/pershin-daniil/facultymeet/pkg/pgstore"
	"github.com/pershin-daniil/facultymeet/pkg/service"
	"github.com/pershin-daniil/facultymeet/pkg/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the Telegram bot and the background sweep",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

// deps holds everything built from the config. Optional parts stay nil.
type deps struct {
	log       *logrus.Logger
	store     *pgstore.Store
	app       *service.ScheduleService
	bot       *telegram.Telegram
	publisher *events.Publisher
	redis     *redis.Client
	now       func() time.Time
}

func (d *deps) Close() {
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.log.Warnf("err closing redis: %v", err)
		}
	}
	if err := d.store.Close(); err != nil {
		d.log.Warnf("err closing store: %v", err)
	}
}

func build(ctx context.Context, cfg *config.Config) (*deps, error) {
	log := logger.NewLogger(cfg.LogLevel, cfg.LogJSON)
	loc := cfg.Location()
	d := deps{
		log: log,
		now: func() time.Time { return time.Now().In(loc) },
	}
	store, err := pgstore.NewStore(ctx, log, cfg.PgDSN)
	if err != nil {
		return nil, err
	}
	d.store = store
	if err = store.Migrate(migrate.Up); err != nil {
		_ = store.Close()
		return nil, err
	}

	opts := []service.Option{service.WithClock(d.now)}
	if cfg.RedisAddr != "" {
		d.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		d.publisher = events.NewPublisher(log, d.redis, cfg.RedisChannel)
		opts = append(opts, service.WithPublisher(d.publisher))
	}
	if cfg.GCalCredentials != "" {
		creds, err := os.ReadFile(cfg.GCalCredentials)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("err reading calendar credentials: %w", err)
		}
		mirror, err := calendar.NewMirror(ctx, log, creds, cfg.GCalCalendarID)
		if err != nil {
			d.Close()
			return nil, err
		}
		opts = append(opts, service.WithMirror(mirror))
	}

	var n service.Notifier = notifier.NewDummyNotifier(log)
	if cfg.TgToken != "" {
		bot, err := telegram.NewBot(cfg.TgToken)
		if err != nil {
			d.Close()
			return nil, err
		}
		n = telegram.NewNotifier(log, bot, store)
		d.app = service.NewScheduleService(log, store, n, opts...)
		d.bot = telegram.New(log, bot, d.app, store, d.now)
		return &d, nil
	}
	d.app = service.NewScheduleService(log, store, n, opts...)
	return &d, nil
}

func serve(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer cancel()

	d, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()
	log := d.log

	key, err := privateKey(cfg.JWTPrivateKey)
	if err != nil {
		return err
	}
	if cfg.JWTPrivateKey == "" {
		log.Warn("no JWT private key configured, tokens will not survive a restart")
	}
	var feed rest.Feed
	if d.publisher != nil {
		feed = d.publisher
	}
	server := rest.New(log, d.app, feed, rest.Config{
		Address:    cfg.HTTPAddr,
		Version:    version,
		PrivateKey: key,
		TokenTTL:   cfg.TokenTTL,
		Now:        d.now,
	})
	w := worker.New(log, d.app, cfg.SweepInterval, cfg.RemindInterval)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()
	if d.bot != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.bot.Run(ctx)
		}()
	}
	if err = server.Run(ctx); err != nil {
		log.Error(err)
		cancel()
	}
	wg.Wait()
	log.Info("Server stopped")
	return err
}

func privateKey(path string) (*rsa.PrivateKey, error) {
	if path == "" {
		return rsa.GenerateKey(rand.Reader, 2048)
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("err reading JWT key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("err parsing JWT key: %w", err)
	}
	return key, nil
}

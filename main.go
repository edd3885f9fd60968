package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"

	"snakeball-backend/auth"
	"snakeball-backend/config"
	"snakeball-backend/game"
	"snakeball-backend/handlers"
	"snakeball-backend/logging"
	"snakeball-backend/stats"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := makeapp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

func makeapp() *cli.App {
	app := cli.NewApp()
	app.Name = "snakeball"
	app.Usage = "Authoritative server for team snake soccer"

	logFlags := []cli.Flag{
		cli.StringFlag{Name: "log-level", Value: "info", EnvVar: "LOG_LEVEL", Usage: "zerolog level"},
		cli.BoolTFlag{Name: "log-pretty", EnvVar: "LOG_PRETTY", Usage: "human readable logs"},
	}

	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "Run the game server",
			Flags: append([]cli.Flag{
				cli.IntFlag{Name: "port", Value: 8080, EnvVar: "PORT", Usage: "HTTP port"},
				cli.StringFlag{Name: "database-url", EnvVar: "DATABASE_URL", Usage: "Postgres DSN; in-memory stats when empty"},
			}, logFlags...),
			Action: serveAction,
		},
		{
			Name:  "migrate",
			Usage: "Apply database migrations",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "database-url", EnvVar: "DATABASE_URL", Usage: "Postgres DSN"},
			}, logFlags...),
			Action: migrateAction,
		},
		{
			Name:  "bot",
			Usage: "Connect a bot that joins or creates a room and plays",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "server", Value: "http://localhost:8080", Usage: "server base URL"},
				cli.StringFlag{Name: "name", Usage: "bot username; random when empty"},
				cli.StringFlag{Name: "room", Usage: "room id to join; creates a room when empty"},
				cli.StringFlag{Name: "mode", Value: "1v1", Usage: "mode of a created room"},
			}, logFlags...),
			Action: botAction,
		},
	}
	return app
}

func setupLogging(c *cli.Context) {
	logging.Setup(c.String("log-level"), c.BoolT("log-pretty"))
}

func serveAction(c *cli.Context) error {
	setupLogging(c)

	cfg := config.FromEnv()
	cfg.Port = c.Int("port")
	cfg.DatabaseURL = c.String("database-url")
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	manager := game.NewManager(game.Options{Stats: store})
	server := handlers.NewServer(cfg, manager, auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL))
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.Router(),
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	server.Close()
	manager.Shutdown()
	manager.Wait()
	return nil
}

func openStore(ctx context.Context, dsn string) (stats.Recorder, error) {
	if dsn == "" {
		log.Warn().Msg("no database configured, player stats are kept in memory")
		return stats.NewMemoryStore(), nil
	}
	if err := stats.Migrate(dsn); err != nil {
		return nil, err
	}
	store, err := stats.NewPostgresStore(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func migrateAction(c *cli.Context) error {
	setupLogging(c)

	dsn := c.String("database-url")
	if dsn == "" {
		return errors.New("--database-url is required")
	}
	if err := stats.Migrate(dsn); err != nil {
		return err
	}
	log.Info().Msg("migrations applied")
	return nil
}

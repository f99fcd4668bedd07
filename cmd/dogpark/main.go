package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dogpark/server/internal/app"
	"github.com/dogpark/server/internal/config"
	"github.com/dogpark/server/internal/data"
	"github.com/dogpark/server/internal/httpapi"
	"github.com/dogpark/server/internal/loot"
	"github.com/dogpark/server/internal/persist"
	"github.com/dogpark/server/internal/snapshot"
	"github.com/dogpark/server/internal/strand"
	"github.com/dogpark/server/internal/world"
)

type options struct {
	tickPeriodMs    int64
	configFile      string
	wwwRoot         string
	randomizeSpawns bool
	stateFile       string
	savePeriodMs    int64
	serverConfig    string
}

func main() {
	cmd := &cli.Command{
		Name:  "dogpark",
		Usage: "authoritative dog courier game server",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "tick-period",
				Usage: "game tick period in milliseconds (0 disables the internal ticker)",
			},
			&cli.StringFlag{
				Name:     "config-file",
				Usage:    "path to the JSON map config",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "www-root",
				Usage:    "directory with the static client files",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "randomize-spawn-points",
				Usage: "spawn dogs and loot at random road positions",
			},
			&cli.StringFlag{
				Name:  "state-file",
				Usage: "path of the state snapshot file (enables restore and final save)",
			},
			&cli.Int64Flag{
				Name:  "save-state-period",
				Usage: "autosave period in milliseconds of game time (requires state-file)",
			},
			&cli.StringFlag{
				Name:  "server-config",
				Usage: "path to the TOML server config",
				Value: "config/server.toml",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, options{
				tickPeriodMs:    cmd.Int64("tick-period"),
				configFile:      cmd.String("config-file"),
				wwwRoot:         cmd.String("www-root"),
				randomizeSpawns: cmd.Bool("randomize-spawn-points"),
				stateFile:       cmd.String("state-file"),
				savePeriodMs:    cmd.Int64("save-state-period"),
				serverConfig:    cmd.String("server-config"),
			})
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.serverConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if err := boot(ctx, opts, cfg, log); err != nil {
		log.Info("server exited", zap.Int("code", 1), zap.Error(err))
		return err
	}
	log.Info("server exited", zap.Int("code", 0))
	return nil
}

func boot(ctx context.Context, opts options, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	db, err := persist.NewDB(dbCtx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := persist.RunMigrations(dbCtx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	gameCfg, err := data.LoadGameConfig(opts.configFile)
	if err != nil {
		return fmt.Errorf("game config: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	lootGen := loot.NewGenerator(gameCfg.LootPeriodSeconds*1000, gameCfg.LootProbability, rng.Float64)

	game := world.NewGame(lootGen)
	for _, m := range gameCfg.Maps {
		if err := game.AddMap(m, gameCfg.LootCatalogs[m.ID]); err != nil {
			return fmt.Errorf("register map: %w", err)
		}
	}
	game.SetRandomSpawn(opts.randomizeSpawns)
	if gameCfg.RetirementSeconds > 0 {
		game.SetRetirementTime(gameCfg.RetirementSeconds)
	}

	application := app.New(game, persist.NewRecordRepo(db), log)

	// Tick order: retirement sweep first, then the autosaver, so a
	// snapshot never captures a dog past its cutoff.
	game.DoOnTick(func(float64) { application.RetireDogs(ctx) })
	if opts.stateFile != "" {
		if err := snapshot.Restore(application, opts.stateFile); err != nil {
			log.Error("state restore failed, starting empty", zap.Error(err))
		} else {
			log.Info("state restored", zap.String("path", opts.stateFile))
		}
		saver := snapshot.NewAutosaver(application, opts.stateFile, float64(opts.savePeriodMs), log)
		game.DoOnTick(saver.OnTick)
	}

	st := strand.New()
	defer st.Close()

	tickerDone := startTicker(ctx, st, game, opts.tickPeriodMs, log)

	srv := &http.Server{
		Addr:    cfg.Server.BindAddress,
		Handler: httpapi.NewServer(application, st, opts.wwwRoot, log).Handler(),
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	log.Info("server started", zap.String("address", cfg.Server.BindAddress))

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	<-tickerDone

	if opts.stateFile != "" {
		var saveErr error
		st.Do(func() {
			saveErr = snapshot.Save(application, opts.stateFile)
		})
		if saveErr != nil {
			return fmt.Errorf("final save: %w", saveErr)
		}
		log.Info("state saved", zap.String("path", opts.stateFile))
	}
	return nil
}

// startTicker drives the game loop on the strand. The tick delta passed
// to the game is the real elapsed time, not the nominal period, so a
// stalled tick does not slow game time down.
func startTicker(ctx context.Context, st *strand.Strand, game *world.Game, periodMs int64, log *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if periodMs <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Duration(periodMs) * time.Millisecond)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				delta := now.Sub(last)
				last = now
				st.Do(func() {
					if err := game.ExternalTick(float64(delta.Milliseconds())); err != nil {
						log.Error("tick failed", zap.Error(err))
					}
				})
			}
		}
	}()
	return done
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

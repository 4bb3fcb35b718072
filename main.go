package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/antispambot/internal/bot"
	"github.com/iamwavecut/antispambot/internal/config"
	"github.com/iamwavecut/antispambot/internal/db/sqlite"
	"github.com/iamwavecut/antispambot/internal/handlers"
	"github.com/iamwavecut/antispambot/internal/infra"
	"github.com/iamwavecut/antispambot/internal/lifecycle"
	"github.com/iamwavecut/antispambot/internal/moderation"
	"github.com/iamwavecut/antispambot/internal/observability"
	"github.com/iamwavecut/antispambot/internal/platform/telegram"
	"github.com/iamwavecut/antispambot/internal/sched"
	"github.com/iamwavecut/antispambot/internal/state"
)

func main() {
	cfg := config.Get()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	infra.GoRecoverable(-1, "main", func() {
		if err := run(cfg); err != nil {
			log.WithError(err).Errorln("bot stopped")
			time.Sleep(1 * time.Second)
			log.Fatalln("exiting")
		}
	})
}

func run(cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	workDir := infra.GetWorkDir(cfg.DotPath)
	store := state.NewFileStore(filepath.Join(workDir, cfg.StateFile))
	st := store.Load()
	for _, adminID := range cfg.SeedAdminIDs {
		st.AddAdmin(adminID)
	}

	audit := sqlite.NewSQLiteClient(filepath.Join(workDir, cfg.AuditDBFile))
	defer func() {
		if err := audit.Close(); err != nil {
			log.WithError(err).Errorln("cant close audit db")
		}
	}()

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		return errors.WithMessage(err, "cant initialize bot api")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	defer botAPI.StopReceivingUpdates()
	log.WithField("username", botAPI.Self.UserName).Infoln("authorized")

	observability.Register()
	scheduler := sched.New()
	runtime := lifecycle.NewRuntime(scheduler, observability.NewServer(cfg.MetricsAddr))
	if err := runtime.Start(ctx); err != nil {
		return errors.WithMessage(err, "cant start runtime")
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := runtime.Stop(stopCtx); err != nil {
			log.WithError(err).Errorln("cant stop runtime")
		}
		if err := store.Save(st); err != nil {
			log.WithError(err).Errorln("cant save state on shutdown")
		}
	}()

	operations := telegram.NewOperations(botAPI)
	engine := moderation.NewEngine(st, store, operations, audit, cfg.DefaultLanguage)
	adminOps := moderation.NewAdminOps(st, store, engine.Tracker(), operations, audit, cfg.OwnerID)
	processor := bot.NewUpdateProcessor(
		handlers.NewAdmin(adminOps, operations, scheduler, audit, cfg.DefaultLanguage),
		handlers.NewModeration(engine),
	)

	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := botAPI.GetUpdatesChan(updateConfig)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case update, ok := <-updates:
				if !ok {
					return errors.New("updates channel closed")
				}
				if err := processor.Process(gctx, &update); err != nil {
					log.WithError(err).Errorln("cant process update")
				}
			}
		}
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return gctx.Err()
		case <-infra.MonitorExecutable(gctx):
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return errors.New("executable file was modified")
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Infoln("shutting down")
		return nil
	}
	return err
}

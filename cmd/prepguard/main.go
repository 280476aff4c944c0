package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/prepguard/prepguard/internal/bot"
	"github.com/prepguard/prepguard/internal/config"
	"github.com/prepguard/prepguard/internal/db/sqlite"
	"github.com/prepguard/prepguard/internal/handlers"
	"github.com/prepguard/prepguard/internal/infra"
	"github.com/prepguard/prepguard/internal/lifecycle"
	"github.com/prepguard/prepguard/internal/moderation/escalation"
	"github.com/prepguard/prepguard/internal/moderation/imagefilter"
	"github.com/prepguard/prepguard/internal/moderation/retention"
	"github.com/prepguard/prepguard/internal/moderation/textfilter"
	"github.com/prepguard/prepguard/internal/moderation/trust"
	"github.com/prepguard/prepguard/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&log.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02 15:04:05",
		QuoteEmptyFields: true,
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := observability.Init(ctx, cfg.MetricsAddr); err != nil {
		log.WithError(err).Fatalln("cant initialize observability")
	}

	infra.GoRecoverable(-1, "process_updates", func() {
		defer cancel()

		botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
		if err != nil {
			log.WithError(err).Errorln("cant initialize bot api")
			time.Sleep(1 * time.Second)
			log.Fatalln("exiting")
		}
		if log.Level(cfg.LogLevel) == log.TraceLevel {
			botAPI.Debug = true
		}

		dbClient, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), "prepguard.db")
		if err != nil {
			log.WithError(err).Fatalln("cant open database")
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				log.WithError(err).Errorln("cant close database")
			}
		}()

		service := bot.NewService(botAPI, dbClient)

		ledger := trust.NewLedger()
		controller := escalation.NewController(ledger, cfg.AdminIDs)
		scheduler := retention.NewScheduler(bot.NewMessageDeleter(botAPI))
		textFilter := textfilter.New()
		analyzer := imagefilter.NewAnalyzer(infra.GetWorkDir(cfg.LogosPath))

		moderationHandler := handlers.NewModeration(service, textFilter, analyzer, ledger, controller, scheduler)
		bot.RegisterUpdateHandler("admin", handlers.NewAdmin(service, scheduler, ledger, moderationHandler))
		bot.RegisterUpdateHandler("moderation", moderationHandler)

		runtime := lifecycle.NewRuntime(scheduler)
		if err := runtime.Start(ctx); err != nil {
			log.WithError(err).Fatalln("cant start components")
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := runtime.Stop(stopCtx); err != nil {
				log.WithError(err).Errorln("cant stop components")
			}
		}()

		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = 60
		updateProcessor := bot.NewUpdateProcessor(service)

		updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)

		group, groupCtx := errgroup.WithContext(ctx)
		group.Go(func() error {
			for {
				select {
				case err := <-errorChan:
					return err
				case update := <-updateChan:
					if err := updateProcessor.Process(groupCtx, &update); err != nil {
						log.WithError(err).Errorln("cant process update")
					}
				case <-groupCtx.Done():
					return groupCtx.Err()
				}
			}
		})
		if err := group.Wait(); err != nil && ctx.Err() == nil {
			log.WithError(err).Errorln("bot api get updates error")
		}
	})

	<-ctx.Done()
	log.Infoln("shutting down")
}

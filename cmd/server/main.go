package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"comanda/internal/cash"
	cashservice "comanda/internal/cash/service"
	"comanda/internal/commons"
	"comanda/internal/config"
	"comanda/internal/infrastructure/kafka"
	"comanda/internal/infrastructure/logger"
	"comanda/internal/infrastructure/metrics"
	"comanda/internal/infrastructure/mysql"
	"comanda/internal/order"
	"comanda/internal/order/flow"
	"comanda/internal/order/scheduler"
	"comanda/internal/printing"
	"comanda/internal/realtime"
	"comanda/internal/server"
	"comanda/internal/settings"
	settingsservice "comanda/internal/settings/service"
	"comanda/internal/state"
	"comanda/internal/storehours"
	"comanda/internal/table"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	flowFile := flow.Settings{}
	if cfg.Orders.FlowFile != "" {
		flowFile, err = commons.LoadOrderFlow(cfg.Orders.FlowFile)
		if err != nil {
			zapLogger.Fatal("loading order flow file", zap.Error(err))
		}
	}

	defaultHours, err := storehours.Parse(cfg.Store.OpeningHours, cfg.Store.Timezone)
	if err != nil {
		zapLogger.Fatal("parsing store opening hours", zap.Error(err))
	}

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	clock := commons.SystemClock{}
	store := state.NewStore()
	recorder := metrics.NewRecorder()
	resolver := flow.NewResolver(flowFile)
	calendar := storehours.NewCalendar(defaultHours)

	hub := realtime.NewHub(store, zapLogger.Named("realtime"))
	detach := hub.Attach()

	var publisher printing.Publisher = printing.NewLogPublisher(zapLogger.Named("printing"))
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := kafka.NewPrintPublisher(cfg.Kafka.Brokers, cfg.Kafka.PrintTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		zapLogger.Info("print jobs go to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.PrintTopic))
	}
	printer := printing.NewDispatcher(publisher, hub, clock, zapLogger.Named("printing"))

	settingsModule := settings.NewModule(db, resolver, calendar, settingsservice.Defaults{
		OrderFlow: flowFile,
		Hours:     defaultHours,
	}, hub, clock, zapLogger)
	tableModule := table.NewModule(db, store, zapLogger)
	cashModule := cash.NewModule(db, store, hub, recorder, clock, zapLogger, cashservice.Options{
		TxTimeout:        cfg.Cash.TxTimeout,
		MaxRetryAttempts: cfg.Cash.MaxRetryAttempts,
	})
	orderModule := order.NewModule(db, tableModule.Service, resolver, store, calendar, hub, printer, recorder, clock, zapLogger, scheduler.Options{
		Interval:          cfg.Scheduler.Interval,
		ProgressThreshold: cfg.Scheduler.ProgressThreshold,
	})

	preloadCtx, cancelPreload := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := settingsModule.Service.Fetch(preloadCtx); err != nil {
		zapLogger.Warn("using default settings", zap.Error(err))
	}
	if err := tableModule.Service.Preload(preloadCtx); err != nil {
		zapLogger.Fatal("loading tables", zap.Error(err))
	}
	if err := cashModule.Service.Preload(preloadCtx); err != nil {
		zapLogger.Fatal("loading cash sessions", zap.Error(err))
	}
	if err := orderModule.Service.Preload(preloadCtx, cfg.Orders.PreloadLimit); err != nil {
		zapLogger.Fatal("loading orders", zap.Error(err))
	}
	cancelPreload()

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	orderModule.Scheduler.Start(runCtx)

	router := server.NewRouter(server.Handlers{
		Orders:   orderModule.Controller,
		Tables:   tableModule.Controller,
		Cash:     cashModule.Controller,
		Settings: settingsModule.Controller,
		Realtime: hub.ServeWS,
		Metrics:  recorder.Handler(),
	}, zapLogger)

	srv := server.New(cfg.Server, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	orderModule.Scheduler.Stop()
	detach()
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}

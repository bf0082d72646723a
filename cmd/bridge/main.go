package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	erpadapter "github.com/factorybridge/erp-mes-bridge/internal/adapters/erp"
	kafkaadapter "github.com/factorybridge/erp-mes-bridge/internal/adapters/kafka"
	"github.com/factorybridge/erp-mes-bridge/internal/adapters/s3archive"
	"github.com/factorybridge/erp-mes-bridge/internal/adapters/telemetry"
	"github.com/factorybridge/erp-mes-bridge/internal/codetable"
	"github.com/factorybridge/erp-mes-bridge/internal/config"
	"github.com/factorybridge/erp-mes-bridge/internal/dispatch"
	"github.com/factorybridge/erp-mes-bridge/internal/eligibility"
	"github.com/factorybridge/erp-mes-bridge/internal/ports"
	"github.com/factorybridge/erp-mes-bridge/internal/service"
	"github.com/factorybridge/erp-mes-bridge/internal/status"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tables, err := loadTables(cfg)
	if err != nil {
		logger.Error("failed to load code tables", "error", err)
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	s3Client := s3.NewFromConfig(awsCfg)

	sender, err := kafkaadapter.NewSender(cfg.KafkaBrokers)
	if err != nil {
		logger.Error("failed to create kafka sender", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := sender.Close(); cerr != nil {
			logger.Error("failed to close kafka sender", "error", cerr)
		}
	}()

	reporter, err := status.NewReporter(sender, cfg.StatusTopic, cfg.ApplicationName, logger)
	if err != nil {
		logger.Error("failed to create status reporter", "error", err)
		os.Exit(1)
	}

	filter, err := eligibility.NewFilter(tables.Plant, cfg.PrimaryMesEnabled, &eligibility.CharacteristicIDCache{}, logger)
	if err != nil {
		logger.Error("failed to create eligibility filter", "error", err)
		os.Exit(1)
	}

	tel := telemetry.New(logger)

	bridge, err := service.NewBridge(service.Config{
		Sender:     sender,
		Status:     reporter,
		Dispatcher: dispatch.NewDispatcher(cfg.ErpConfirmationDelay, logger),
		Filter:     filter,
		Tables:     tables,
		NewArchive: func(handler, messageID string) (ports.Archive, error) {
			return s3archive.New(s3Client, cfg.ArchiveBucket, cfg.ArchiveBrowserURL, handler, messageID)
		},
		NewErp: func(archive ports.Archive) (ports.ErpClient, error) {
			return erpadapter.New(erpadapter.Config{
				BaseURL:   cfg.ErpBaseURL,
				APIKey:    cfg.ErpAPIKey,
				Telemetry: tel,
				Logger:    logger,
			}, archive)
		},
		Routes: service.Routes{
			Backflush:      cfg.BackflushTopic,
			BackflushV2:    cfg.BackflushV2Topic,
			Issues:         cfg.IssuesTopic,
			IssuesV2:       cfg.IssuesV2Topic,
			OrderQueues:    dispatch.QueuePair{Primary: cfg.ProductionOrderQueuePrimary, Secondary: cfg.ProductionOrderQueueSecondary},
			LotQueues:      dispatch.QueuePair{Primary: cfg.InventoryMoveQueuePrimary, Secondary: cfg.InventoryMoveQueueSecondary},
			MaterialQueues: dispatch.QueuePair{Primary: cfg.MaterialMasterQueuePrimary, Secondary: cfg.MaterialMasterQueueSecondary},
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to create bridge", "error", err)
		os.Exit(1)
	}

	// The backflush topic feeds two handlers with distinct consumer groups:
	// goods receipts and production confirmations split the same envelope by
	// the receipt flag.
	loops := []struct {
		name    string
		topic   string
		group   string
		handler service.Handler
	}{
		{"route-mes-output", cfg.MesOutputTopic, cfg.GroupID, bridge.RouteMesOutput},
		{"component-issue-to-erp", cfg.IssuesTopic, cfg.GroupID, bridge.ComponentIssue},
		{"goods-receipt-to-erp", cfg.BackflushTopic, cfg.GroupID + "-goods-receipt", bridge.GoodsReceipt},
		{"production-confirmation-to-erp", cfg.BackflushTopic, cfg.GroupID + "-production-confirmation", bridge.ProductionConfirmation},
		{"production-order-to-mes", cfg.ProductionOrderTopic, cfg.GroupID, bridge.ProductionOrder},
		{"inventory-location-move-to-mes", cfg.InventoryMoveTopic, cfg.GroupID, bridge.InventoryLocationMove},
		{"inspection-lot-to-mes", cfg.InspectionLotTopic, cfg.GroupID, bridge.InspectionLot},
		{"material-master-to-mes", cfg.MaterialMasterTopic, cfg.GroupID, bridge.MaterialMaster},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, loop := range loops {
		loop := loop
		consumer, err := kafkaadapter.NewConsumer(cfg.KafkaBrokers, loop.topic, loop.group)
		if err != nil {
			logger.Error("failed to create kafka consumer", "topic", loop.topic, "error", err)
			os.Exit(1)
		}
		defer func() {
			if cerr := consumer.Close(); cerr != nil {
				logger.Error("failed to close kafka consumer", "topic", loop.topic, "error", cerr)
			}
		}()

		g.Go(func() error {
			return bridge.Run(ctx, consumer, loop.name, loop.handler)
		})
	}

	logger.Info("bridge started", "brokers", cfg.KafkaBrokers, "handlers", len(loops))

	if err := g.Wait(); err != nil {
		log.Printf("service terminated with error: %v", err)
	}
}

func loadTables(cfg *config.Config) (*codetable.Set, error) {
	if cfg.CodeTableDir == "" {
		return codetable.LoadDefault()
	}
	tables, err := codetable.Load(os.DirFS(cfg.CodeTableDir))
	if err != nil {
		return nil, fmt.Errorf("load code tables from %s: %w", cfg.CodeTableDir, err)
	}
	return tables, nil
}

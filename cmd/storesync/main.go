package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/merchantkit/storesync/internal/ai"
	"github.com/merchantkit/storesync/internal/config"
	"github.com/merchantkit/storesync/internal/credential"
	"github.com/merchantkit/storesync/internal/filestore"
	"github.com/merchantkit/storesync/internal/handler"
	"github.com/merchantkit/storesync/internal/job"
	"github.com/merchantkit/storesync/internal/lock"
	"github.com/merchantkit/storesync/internal/middleware"
	"github.com/merchantkit/storesync/internal/rag"
	"github.com/merchantkit/storesync/internal/repo"
	"github.com/merchantkit/storesync/internal/schedule"
	"github.com/merchantkit/storesync/internal/service"
	"github.com/merchantkit/storesync/internal/shop"
	"github.com/merchantkit/storesync/internal/syncer"
	"github.com/merchantkit/storesync/internal/vectorstore"
)

const (
	discoverySpec = "*/10 * * * *"
	cleanupSpec   = "0 3 * * *"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "storesync",
		Short: "storesync scheduler and retrieval server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run storesync server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.DBDsn)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db, cfg.MigrationsDir); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("tick_spec", cfg.Sync.TickSpec),
	)

	tenantRepo := repo.NewTenantRepo(db)
	jobRepo := repo.NewSyncJobRepo(db)

	providerArgs := cfg.AI.Data
	embedProvider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel, time.Duration(cfg.AI.Timeout)*time.Second, cfg.AI.CacheSize)
	index := vectorstore.NewPGVectorIndex(db)
	engine := rag.NewEngine(embedder, index, cfg.Retrieval.ChunkMaxSize)
	defer engine.Close()

	shopClient := shop.NewRESTClient(shop.RESTClientConfig{
		BaseURL:        cfg.Shop.BaseURL,
		RequestsPerSec: cfg.Shop.RequestsPerSec,
		Timeout:        time.Duration(cfg.Shop.Timeout) * time.Second,
		PageLimit:      cfg.Shop.PageLimit,
	})
	credManager := credential.NewManager(tenantRepo)

	var archive *filestore.Archive
	if cfg.Snapshot.Enable {
		store, err := filestore.New(cfg.Snapshot)
		if err != nil {
			return fmt.Errorf("init snapshot store: %w", err)
		}
		archive = filestore.NewArchive(store, cfg.Snapshot.KeepDays)
	}

	orch := syncer.NewOrchestrator(syncer.Deps{
		Jobs:     jobRepo,
		Tenants:  tenantRepo,
		Locks:    lock.NewManager(),
		Creds:    credManager,
		Shop:     shopClient,
		Indexer:  engine,
		Archiver: archiverOrNil(archive),
	}, syncer.Config{
		BatchSize:  cfg.Sync.BatchSize,
		BatchPause: time.Duration(cfg.Sync.BatchPause) * time.Second,
	})

	syncService := service.NewSyncService(orch, service.NewTenantDirectory(tenantRepo))
	contextService := service.NewContextService(engine, cfg.Retrieval.TopK, cfg.Retrieval.MinScore, cfg.Retrieval.ContextScore)

	deps := handler.RouterDeps{
		Sync:      handler.NewSyncHandler(syncService),
		Context:   handler.NewContextHandler(contextService),
		Health:    handler.NewHealthHandler(db),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engineWeb, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewSyncTickJob(orch), cfg.Sync.TickSpec); err != nil {
		return fmt.Errorf("schedule sync tick: %w", err)
	}
	if err := scheduler.AddJob(job.NewTenantDiscoveryJob(orch), discoverySpec); err != nil {
		return fmt.Errorf("schedule tenant discovery: %w", err)
	}
	if archive != nil {
		if err := scheduler.AddJob(job.NewSnapshotCleanupJob(archive), cleanupSpec); err != nil {
			return fmt.Errorf("schedule snapshot cleanup: %w", err)
		}
	}

	// Seed jobs before the first tick so a fresh deployment starts syncing
	// without waiting for the discovery cadence.
	if err := orch.EnsureJobs(ctx); err != nil {
		logutil.GetLogger(ctx).Error("initial tenant discovery failed", zap.Error(err))
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engineWeb.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func archiverOrNil(archive *filestore.Archive) syncer.Archiver {
	if archive == nil {
		return nil
	}
	return archive
}

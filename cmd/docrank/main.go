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

	"github.com/docrankhq/docrank/internal/ai"
	"github.com/docrankhq/docrank/internal/config"
	"github.com/docrankhq/docrank/internal/db"
	"github.com/docrankhq/docrank/internal/embedcache"
	"github.com/docrankhq/docrank/internal/filestore"
	"github.com/docrankhq/docrank/internal/handler"
	"github.com/docrankhq/docrank/internal/job"
	"github.com/docrankhq/docrank/internal/middleware"
	"github.com/docrankhq/docrank/internal/pkg/jwt"
	"github.com/docrankhq/docrank/internal/repo"
	"github.com/docrankhq/docrank/internal/schedule"
	"github.com/docrankhq/docrank/internal/search"
	"github.com/docrankhq/docrank/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docrank",
		Short: "docrank retrieval server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docrank server",
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

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	var tokenUser string
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "issue a signed access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			if tokenUser == "" {
				return fmt.Errorf("--user is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ttl := time.Duration(cfg.JWTTTLHours) * time.Hour
			token, err := jwt.GenerateToken(tokenUser, []byte(cfg.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id the token authenticates")

	rootCmd.AddCommand(runCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("search_backend", cfg.Search.Backend),
		zap.String("file_store", cfg.FileStore.Type),
	)

	chunkRepo := repo.NewChunkRepo(conn)
	fileRepo := repo.NewFileRepo(conn)
	ruleRepo := repo.NewRuleRepo(conn)
	attachRepo := repo.NewAttachableRepo(conn)
	provenanceRepo := repo.NewProvenanceRepo(conn)
	embedCacheRepo := repo.NewEmbeddingCacheRepo(conn)

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	aiTimeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel, aiTimeout)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, embedCacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.AI.EmbedCacheSize,
		time.Duration(cfg.AI.EmbedCacheTTL)*time.Minute)
	judge := ai.NewGenerator(aiProvider, cfg.AI.JudgeModel, aiTimeout)
	assessor := ai.NewStreamer(aiProvider, cfg.AI.AssessModel)

	var openaiEmbedder ai.IEmbedder
	if cfg.Search.EnableOpenAI {
		openaiProvider, err := ai.NewEmbedProvider("openai", cfg.AI.Data)
		if err != nil {
			return fmt.Errorf("init openai embed provider: %w", err)
		}
		openaiEmbedder = ai.NewEmbedder(openaiProvider, cfg.AI.EmbedModel, aiTimeout)
	}
	var managed search.ManagedSearcher
	if cfg.Search.Backend == string(search.BackendQdrant) {
		qdrantSearcher, err := search.NewQdrantSearcher(cfg.Search.Qdrant, embedder, chunkRepo)
		if err != nil {
			return fmt.Errorf("init qdrant searcher: %w", err)
		}
		managed = qdrantSearcher
	}
	gateway := search.NewGateway(embedder, openaiEmbedder, chunkRepo, managed)
	reranker := search.NewReranker(cfg.Reranker.Endpoint,
		time.Duration(cfg.Reranker.TimeoutSeconds)*time.Second)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	retrievalService := service.NewRetrievalService(gateway, reranker, fileRepo, ruleRepo, attachRepo, cfg.Search.CandidateLimit)
	advancedEvaluator := service.NewAdvancedRuleEvaluator(gateway, judge, attachRepo)
	streamService := service.NewStreamService(retrievalService, advancedEvaluator, assessor, provenanceRepo)
	ruleService := service.NewRuleService(ruleRepo)
	fileService := service.NewFileService(fileRepo, provenanceRepo, store)

	deps := handler.RouterDeps{
		Retrieval:      handler.NewRetrievalHandler(streamService),
		Rules:          handler.NewRuleHandler(ruleService, retrievalService),
		Files:          handler.NewFileHandler(fileService),
		JWTSecret:      []byte(cfg.JWTSecret),
		RetrieveWindow: time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(
		job.NewEmbeddingCacheCleanupJob(embedCacheRepo, cfg.Jobs.EmbedCacheMaxAgeDays),
		cfg.Jobs.EmbedCacheCleanupSpec,
	); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

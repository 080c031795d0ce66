package main

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fadilmartias/cv-evaluator/internal/config"
	"github.com/fadilmartias/cv-evaluator/internal/document"
	"github.com/fadilmartias/cv-evaluator/internal/domain/fiber/handler"
	"github.com/fadilmartias/cv-evaluator/internal/executor"
	"github.com/fadilmartias/cv-evaluator/internal/invoker"
	"github.com/fadilmartias/cv-evaluator/internal/logger"
	"github.com/fadilmartias/cv-evaluator/internal/middleware"
	"github.com/fadilmartias/cv-evaluator/internal/model"
	"github.com/fadilmartias/cv-evaluator/internal/pipeline"
	"github.com/fadilmartias/cv-evaluator/internal/rag"
	"github.com/fadilmartias/cv-evaluator/internal/registry"
	"github.com/fadilmartias/cv-evaluator/internal/repository"
	"github.com/fadilmartias/cv-evaluator/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Could not load .env file")
	}

	appConfig := config.LoadAppConfig()
	evalConfig := config.LoadEvaluationConfig()

	zl, err := logger.New(appConfig.Production(), !appConfig.Production())
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()

	ctx := context.Background()

	db := connectDB(zl)

	gemini, err := service.NewGeminiService(ctx)
	if err != nil {
		zl.Fatal("gemini service init failed", zap.Error(err))
	}

	oracle, err := selectOracle(gemini)
	if err != nil {
		zl.Fatal("oracle init failed", zap.Error(err))
	}

	if evalConfig.FaultRate > 0 {
		zl.Warn("synthetic fault injection enabled", zap.Float64("rate", evalConfig.FaultRate))
	}
	inv := invoker.New(oracle, invoker.Policy{
		MaxAttempts: evalConfig.MaxAttempts,
		BaseDelay:   evalConfig.BaseDelay,
		MaxDelay:    evalConfig.MaxDelay,
		Timeout:     evalConfig.RequestTimeout,
	}, invoker.NewFaultInjector(evalConfig.FaultRate, time.Now().UnixNano()), zl)

	rubricRepo := repository.NewRubricRepository(db)
	if err := rag.Seed(ctx, rubricRepo, gemini, zl); err != nil {
		zl.Fatal("rubric seeding failed", zap.Error(err))
	}
	index := rag.NewIndex(rubricRepo, gemini, zl)

	reg := registry.New(repository.NewTaskRepository(db), zl)
	docs := document.NewFileStore(zl)
	pipe := pipeline.New(inv, index, docs, evalConfig.RetrievalTopK, zl)
	exec := executor.New(reg, pipe, zl)

	if err := exec.Resume(ctx); err != nil {
		zl.Error("task resume failed", zap.Error(err))
	}

	for _, dir := range []string{"cv", "project_report"} {
		if err := os.MkdirAll(filepath.Join(evalConfig.UploadDir, dir), 0o755); err != nil {
			zl.Fatal("could not create upload dir", zap.Error(err))
		}
	}

	app := fiber.New(fiber.Config{
		AppName: appConfig.Name,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			message := err.Error()
			if message == "" {
				message = "Internal Server Error"
			}
			return ctx.Status(code).JSON(fiber.Map{"error": message})
		},
	})
	app.Use(cors.New(cors.Config{AllowOrigins: "*"}))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !appConfig.Production(),
	}))
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(healthcheck.New())
	app.Use(middleware.RateLimiter(50, 1*time.Minute))

	handler.NewEvaluateHandler(reg, exec, evalConfig.UploadDir).RegisterRoutes(app)

	zl.Info("server running", zap.String("port", appConfig.Port))
	if err := app.Listen(appConfig.Port); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func selectOracle(gemini *service.GeminiService) (invoker.Oracle, error) {
	cfg := config.LoadOracleConfig()
	if cfg.Provider == config.ProviderOpenRouter {
		return service.NewOpenRouterService()
	}
	return gemini, nil
}

func connectDB(zl *zap.Logger) *gorm.DB {
	dbConfig := config.LoadDBConfig()
	appConfig := config.LoadAppConfig()

	db, err := gorm.Open(postgres.Open(dbConfig.DSN()), &gorm.Config{})
	if err != nil {
		zl.Fatal("could not connect to database", zap.Error(err))
	}
	pgDB, err := db.DB()
	if err != nil {
		zl.Fatal("could not get database instance", zap.Error(err))
	}
	if appConfig.Production() {
		pgDB.SetMaxIdleConns(20)
		pgDB.SetMaxOpenConns(200)
		pgDB.SetConnMaxLifetime(time.Hour)
	} else {
		pgDB.SetMaxIdleConns(5)
		pgDB.SetMaxOpenConns(10)
		pgDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.AutoMigrate(&model.EvaluationTask{}, &model.RubricDocument{}); err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}
	return db
}

package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	internalhandler "github.com/noah-isme/sma-adp-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-adp-api/internal/middleware"
	"github.com/noah-isme/sma-adp-api/internal/orchestrator"
	"github.com/noah-isme/sma-adp-api/internal/service"
	"github.com/noah-isme/sma-adp-api/pkg/config"
	"github.com/noah-isme/sma-adp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-adp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-adp-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	orch := orchestrator.New(logr, cfg.Scheduler.RunTTL)
	defer orch.Close()
	scheduleSvc := service.NewScheduleService(orch, validator.New(), logr)
	scheduleHandler := internalhandler.NewScheduleHandler(scheduleSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/healthz", metricsHandler.Healthz)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	schedulesGroup := api.Group("/schedules")
	schedulesGroup.POST("/generate", scheduleHandler.Generate)
	schedulesGroup.POST("/generate/async", scheduleHandler.GenerateAsync)
	schedulesGroup.GET("/runs/:runId", scheduleHandler.Status)
	schedulesGroup.POST("/runs/:runId/filter", scheduleHandler.Filter)
	schedulesGroup.POST("/runs/:runId/query", scheduleHandler.Query)
	schedulesGroup.GET("/runs/:runId/:index/export.csv", scheduleHandler.ExportCSV)
	schedulesGroup.GET("/runs/:runId/:index/export.pdf", scheduleHandler.ExportPDF)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

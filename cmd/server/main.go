package main

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arnavshah/roster-engine-go/internal/worker"
	"github.com/arnavshah/roster-engine-go/pkg/auth"
	"github.com/arnavshah/roster-engine-go/pkg/config"
	"github.com/arnavshah/roster-engine-go/pkg/database"
	"github.com/arnavshah/roster-engine-go/pkg/handlers"
	"github.com/arnavshah/roster-engine-go/pkg/journal"
	"github.com/arnavshah/roster-engine-go/pkg/logger"
	"github.com/arnavshah/roster-engine-go/pkg/roster"
	"github.com/arnavshah/roster-engine-go/pkg/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.InitDB()
	if err := auth.EnsureAdminExists(db); err != nil {
		log.Fatal("could not bootstrap admin user", zap.Error(err))
	}

	st := store.New(db, log)
	jrnl := journal.New(st, log)

	policy := roster.DefaultPolicy()
	policy.NightWeight = cfg.NightWeight
	policy.WeekendWeight = cfg.WeekendWeight

	runner := worker.NewRunner(st, policy, log)
	pool := worker.NewPool(cfg.WorkerCount)
	pool.Start()
	defer pool.Stop()

	var dispatcher worker.Dispatcher
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rd := worker.NewRedisDispatcher(rdb, log)
		go rd.Consume(pool.Context(), pool, runner)
		dispatcher = rd
		log.Info("run queue on redis", zap.String("addr", cfg.RedisAddr))
	} else {
		dispatcher = worker.NewLocalDispatcher(pool, runner)
	}

	sweeper := worker.StartSweeper(st, time.Duration(cfg.DraftTTLHours)*time.Hour, log)
	defer sweeper.Stop()

	h := &handlers.Handler{
		DB:         db,
		Store:      st,
		Journal:    jrnl,
		Dispatcher: dispatcher,
		Log:        log,
	}

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Roster Engine API",
			"version": "1.0.0",
		})
	})

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	// Engine Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/templates", h.CreateTemplate)
		api.GET("/templates", h.ListTemplates)
		api.GET("/templates/:id", h.GetTemplate)
		api.DELETE("/templates/:id", h.DeleteTemplate)
		api.POST("/templates/:id/requirements", h.CreateRequirement)

		api.POST("/employees", h.CreateEmployee)
		api.GET("/employees", h.ListEmployees)
		api.PUT("/employees/:id/availability", h.ReplaceAvailability)

		api.POST("/runs", h.StartRun)
		api.GET("/runs", h.ListRuns)

		api.GET("/schedules/:id", h.GetSchedule)
		api.PATCH("/schedules/:id/slots/:slotId", h.UpdateSlot)
		api.POST("/schedules/:id/undo", h.Undo)
		api.POST("/schedules/:id/redo", h.Redo)
		api.POST("/schedules/:id/publish", h.PublishSchedule)
		api.POST("/schedules/:id/status", h.TransitionStatus)
		api.GET("/schedules/:id/audit", h.ListAudit)

		api.POST("/exceptions", h.CreateException)
		api.GET("/exceptions", h.ListExceptions)
		api.POST("/exceptions/:id/approve", h.ApproveException)
		api.POST("/exceptions/:id/reject", h.RejectException)

		api.GET("/usage", h.GetMyUsage)
	}

	log.Info("server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("could not run server", zap.Error(err))
	}
}

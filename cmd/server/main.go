package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meallog/internal/auth"
	"meallog/internal/config"
	"meallog/internal/httpmiddleware"
	"meallog/internal/ledger"
	"meallog/internal/roster"
	"meallog/internal/session"
	"meallog/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	policy, err := buildPolicy(cfg)
	if err != nil {
		return err
	}

	r, err := roster.LoadFile(cfg.RosterPath, roster.MatchMode(cfg.MatchMode))
	if err != nil {
		var schemaErr *roster.SchemaError
		if errors.As(err, &schemaErr) {
			// Fail closed; the headers in the message tell the operator
			// which columns were actually seen.
			log.Fatalf("roster: %v", schemaErr)
		}
		return err
	}
	log.Printf("roster loaded: %d entries from %s (mode %s)", r.Len(), cfg.RosterPath, r.Mode())

	var logStore ledger.LogStore
	var db *store.DB
	if cfg.LogBackend == "postgres" {
		db, err = store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		pg := ledger.NewPostgresStore(db.Client)
		if err := pg.Init(context.Background()); err != nil {
			return err
		}
		logStore = pg
	} else {
		logStore = ledger.NewExcelStore(cfg.LogPath, cfg.LogKeyField)
	}
	cached := ledger.NewCachedStore(logStore)

	var redisClient *store.Redis
	var pending session.PendingStore
	if cfg.SessionBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		pending = session.NewRedisStore(redisClient.Client, cfg.PendingTTL)
	} else {
		pending = session.NewInMemory(cfg.PendingTTL)
	}

	svc := ledger.NewService(r, cached, pending, policy)

	if cfg.AdminPassword == "" {
		log.Println("ADMIN_PASSWORD not set; admin endpoints disabled")
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(corsMiddleware())
	engine.Use(securityHeaders())
	engine.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Gin())

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.GET("/healthz", func(c *gin.Context) {
		storeHealthy := true
		if _, err := cached.Version(c.Request.Context()); err != nil {
			storeHealthy = false
		}
		redisHealthy := redisClient == nil || redisClient.Healthy(c.Request.Context())
		status := http.StatusOK
		if !storeHealthy || !redisHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "store": storeHealthy, "redis": redisHealthy})
	})

	engine.POST("/v1/submissions", func(c *gin.Context) {
		var req struct {
			Identifier string `json:"identifier" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := svc.Submit(c.Request.Context(), req.Identifier)
		if err != nil {
			log.Printf("submit failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "submission could not be saved"})
			return
		}
		writeResult(c, res)
	})

	engine.POST("/v1/submissions/confirm", func(c *gin.Context) {
		var req struct {
			Token string `json:"token" binding:"required"`
			Name  string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := svc.Confirm(c.Request.Context(), req.Token, req.Name)
		if err != nil {
			log.Printf("confirm failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "submission could not be saved"})
			return
		}
		writeResult(c, res)
	})

	engine.GET("/v1/log/count", func(c *gin.Context) {
		n, err := svc.Count(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": n})
	})

	engine.POST("/v1/admin/login", func(c *gin.Context) {
		var req struct {
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !auth.CheckSecret(req.Password, cfg.AdminPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect password"})
			return
		}
		token, exp, err := auth.Issue(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AdminTokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": exp.Unix()})
	})

	adminGroup := engine.Group("/v1/admin", auth.AdminAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	adminGroup.GET("/log", func(c *gin.Context) {
		view, err := svc.View(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": view})
	})

	adminGroup.GET("/log/export", func(c *gin.Context) {
		l, err := svc.Full(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		data, err := ledger.EncodeXLSX(l, cfg.LogKeyField)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="meal_log.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	})

	engine.StaticFile("/", "web/index.html")

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func buildPolicy(cfg config.App) (ledger.Policy, error) {
	kind := ledger.PolicyKind(cfg.WindowPolicy)
	if kind == ledger.PolicyNone {
		return ledger.Policy{Kind: ledger.PolicyNone}, nil
	}
	open, err := ledger.ParseClock(cfg.WindowOpen)
	if err != nil {
		return ledger.Policy{}, err
	}
	p := ledger.Policy{Kind: kind, OpenAt: open}
	if kind == ledger.PolicyFixed {
		if p.CloseAt, err = ledger.ParseClock(cfg.WindowClose); err != nil {
			return ledger.Policy{}, err
		}
	}
	if kind == ledger.PolicyRolling {
		if p.ResetAt, err = ledger.ParseClock(cfg.WindowReset); err != nil {
			return ledger.Policy{}, err
		}
	}
	return p, nil
}

// writeResult maps a submission outcome to an HTTP response. Recoverable
// outcomes are part of the protocol, so every body carries the status.
func writeResult(c *gin.Context, res ledger.Result) {
	switch res.Status {
	case ledger.StatusSuccess:
		c.JSON(http.StatusCreated, gin.H{
			"status": res.Status,
			"name":   res.Record.Name,
			"date":   res.Record.Date,
			"time":   res.Record.Time,
		})
	case ledger.StatusNeedsSelection:
		c.JSON(http.StatusOK, gin.H{
			"status":     res.Status,
			"token":      res.Token,
			"candidates": res.Candidates,
		})
	case ledger.StatusDuplicate:
		c.JSON(http.StatusConflict, gin.H{"status": res.Status, "error": "already logged for today"})
	case ledger.StatusNotFound:
		c.JSON(http.StatusNotFound, gin.H{"status": res.Status, "error": "no roster match"})
	case ledger.StatusMalformed:
		c.JSON(http.StatusBadRequest, gin.H{"status": res.Status, "error": "identifier is empty or malformed"})
	case ledger.StatusClosed:
		c.JSON(http.StatusForbidden, gin.H{"status": res.Status, "error": "submissions are closed right now"})
	case ledger.StatusExpired:
		c.JSON(http.StatusGone, gin.H{"status": res.Status, "error": "selection expired, submit again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown outcome"})
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

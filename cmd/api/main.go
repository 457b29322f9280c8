package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"formation/internal/attendance"
	"formation/internal/auth"
	"formation/internal/cloudinary"
	"formation/internal/config"
	"formation/internal/formation"
	"formation/internal/httpmiddleware"
	"formation/internal/metrics"
	"formation/internal/queue"
	"formation/internal/roster"
	"formation/internal/staff"
	"formation/internal/stats"
	"formation/internal/store"
)

const dateLayout = "2006-01-02"

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
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "formation:jobs")
	}

	staffRepo := staff.NewRepository(db.Client)
	if err := staffRepo.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Printf("warning: admin bootstrap failed: %v", err)
	}

	formations := formation.NewService(formation.NewRepository(db.Client))
	ledger := attendance.NewService(attendance.NewRepository(db.Client))
	importer := roster.NewImporter(formations, ledger)
	aggregator := stats.NewService(stats.NewRepository(db.Client))

	// Cloudinary client (nil when not configured)
	var cdnClient *cloudinary.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdnClient = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Gin())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		member, err := staffRepo.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, staff.ErrBadCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "bad credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}

		tokens, err := auth.Issue(member.ID, member.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		_ = staffRepo.SaveRefreshToken(c.Request.Context(), member.ID, tokens.RefreshToken, tokens.RefreshExp)

		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
			"staff":         member,
		})
	})

	r.POST("/v1/auth/refresh", func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims, err := auth.Parse(req.RefreshToken, cfg.JWTSigningKey, cfg.JWTIssuer)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		valid, err := staffRepo.RefreshTokenValid(c.Request.Context(), claims.StaffID, req.RefreshToken)
		if err != nil || !valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token revoked or unknown"})
			return
		}

		tokens, err := auth.Issue(claims.StaffID, claims.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		_ = staffRepo.RevokeRefreshToken(c.Request.Context(), req.RefreshToken)
		_ = staffRepo.SaveRefreshToken(c.Request.Context(), claims.StaffID, tokens.RefreshToken, tokens.RefreshExp)

		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	v1 := r.Group("/v1", auth.StaffAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	v1.POST("/formations", auth.RequireRole(auth.RoleAdmin), func(c *gin.Context) {
		var req struct {
			Title       string   `json:"title" binding:"required"`
			Description string   `json:"description"`
			StartDate   string   `json:"start_date" binding:"required"`
			EndDate     string   `json:"end_date" binding:"required"`
			Mentors     []string `json:"mentors"`
			Tags        []string `json:"tags"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		start, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return
		}
		end, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
			return
		}

		f, err := formations.Create(c.Request.Context(), formation.Formation{
			Title:       req.Title,
			Description: req.Description,
			StartDate:   start,
			EndDate:     end,
			Mentors:     req.Mentors,
			Tags:        req.Tags,
		})
		if err != nil {
			if errors.Is(err, formation.ErrInvalidRange) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, f)
	})

	v1.GET("/formations", func(c *gin.Context) {
		list, err := formations.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"formations": list})
	})

	v1.GET("/formations/:id", func(c *gin.Context) {
		f, err := formations.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, f)
	})

	v1.GET("/formations/:id/sessionDays", func(c *gin.Context) {
		days, err := formations.SessionDays(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		out := make([]string, len(days))
		for i, d := range days {
			out[i] = d.Format(dateLayout)
		}
		c.JSON(http.StatusOK, gin.H{"session_days": out})
	})

	v1.GET("/formations/:id/candidates", func(c *gin.Context) {
		if _, err := formations.Get(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}
		list, err := ledger.Roster(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"candidates": list})
	})

	v1.POST("/formations/:id/candidates/import", auth.RequireRole(auth.RoleAdmin), func(c *gin.Context) {
		file, _, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()

		report, err := importer.Import(c.Request.Context(), c.Param("id"), file)
		if err != nil {
			respondErr(c, err)
			return
		}
		metrics.RosterImports.Inc()
		metrics.ImportedCandidates.Add(float64(report.Imported))

		if len(report.CandidateIDs) > 0 {
			if msg, err := queue.NewRosterImported(report.FormationID, report.CandidateIDs); err == nil {
				if err := q.Publish(c.Request.Context(), msg); err != nil {
					log.Printf("queue publish failed: %v", err)
				}
			}
		}
		c.JSON(http.StatusCreated, report)
	})

	v1.POST("/attendance/mark", func(c *gin.Context) {
		var req struct {
			SessionDate  string          `json:"sessionDate" binding:"required"`
			CandidateIDs []string        `json:"candidateIds" binding:"required"`
			Morning      map[string]bool `json:"morning"`
			Afternoon    map[string]bool `json:"afternoon"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		day, err := time.Parse(dateLayout, req.SessionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sessionDate must be YYYY-MM-DD"})
			return
		}

		res, err := ledger.Mark(c.Request.Context(), attendance.MarkRequest{
			Date:         day,
			CandidateIDs: req.CandidateIDs,
			Morning:      req.Morning,
			Afternoon:    req.Afternoon,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		metrics.AttendanceMarks.WithLabelValues("updated").Add(float64(res.Updated))
		metrics.AttendanceMarks.WithLabelValues("created").Add(float64(res.Created))
		metrics.AttendanceMarks.WithLabelValues("skipped").Add(float64(res.Skipped))

		c.JSON(http.StatusOK, gin.H{"updated": res.Applied(), "result": res})
	})

	v1.GET("/attendance/:formationID/:date", func(c *gin.Context) {
		day, err := time.Parse(dateLayout, c.Param("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		if _, err := formations.Get(c.Request.Context(), c.Param("formationID")); err != nil {
			respondErr(c, err)
			return
		}
		res, err := ledger.AttendanceForDate(c.Request.Context(), c.Param("formationID"), day)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"attendance": res})
	})

	v1.POST("/candidates/:id/confirm", func(c *gin.Context) {
		state, err := ledger.ToggleConfirmed(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"candidate_id": c.Param("id"), "confirmed": state})
	})

	v1.POST("/candidates/:id/photo", func(c *gin.Context) {
		if cdnClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
			return
		}
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
			return
		}

		result, err := cdnClient.UploadBytes(data, header.Filename)
		if err != nil {
			log.Printf("cloudinary upload failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
			return
		}
		if err := ledger.SetPhoto(c.Request.Context(), c.Param("id"), result.SecureURL); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": result.SecureURL, "public_id": result.PublicID})
	})

	v1.GET("/stats/confirmation", func(c *gin.Context) {
		res, err := aggregator.ConfirmationStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"stats": res})
	})

	v1.GET("/stats/presence", func(c *gin.Context) {
		const cacheKey = "stats:presence"
		if cached := redisClient.CacheGet(c.Request.Context(), cacheKey); cached != "" {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}

		res, err := aggregator.PresenceStats(c.Request.Context(), time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		payload, err := json.Marshal(gin.H{"stats": res})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		redisClient.CacheSet(c.Request.Context(), cacheKey, string(payload), cfg.StatsCacheTTL)
		c.Data(http.StatusOK, "application/json", payload)
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
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

// respondErr maps domain errors onto HTTP statuses.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, formation.ErrNotFound), errors.Is(err, attendance.ErrNotFound), errors.Is(err, staff.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrValidation), errors.Is(err, formation.ErrInvalidRange), errors.Is(err, roster.ErrEmptyWorkbook):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// CORS middleware for the dashboard frontend.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
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
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

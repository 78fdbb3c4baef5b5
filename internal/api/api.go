package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/greenridge/replen/internal/api/handlers"
	"github.com/greenridge/replen/internal/api/middleware"
	"github.com/greenridge/replen/internal/service"
)

type Services struct {
	Analysis *service.AnalysisService
	History  *service.HistoryService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Analysis != nil {
			analysisHandler := handlers.NewAnalysisHandler(services.Analysis)
			analysisGroup := apiGroup.Group("/analysis")
			{
				analysisGroup.POST("/run", analysisHandler.Run)
				analysisGroup.GET("/latest", analysisHandler.Latest)
				analysisGroup.GET("/status", analysisHandler.Status)
			}
		}

		if services.History != nil {
			historyHandler := handlers.NewHistoryHandler(services.History)
			historyGroup := apiGroup.Group("/history")
			{
				historyGroup.POST("/ingest", historyHandler.Ingest)
				historyGroup.GET("/velocity", historyHandler.Velocity)
				historyGroup.GET("/snapshots", historyHandler.Snapshots)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}

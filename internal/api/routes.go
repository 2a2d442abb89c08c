// Package api 분석 서비스 HTTP API
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/factorylens/factorylens/internal/api/handlers"
	"github.com/factorylens/factorylens/internal/api/middleware"
	"github.com/factorylens/factorylens/internal/services"
	"github.com/factorylens/factorylens/internal/store"
	"github.com/factorylens/factorylens/pkg/redisclient"
)

// Server API 서버
type Server struct {
	router          *gin.Engine
	db              *store.DB
	redis           *redisclient.Client
	analysisHandler *handlers.AnalysisHandler
	scheduleHandler *handlers.ScheduleHandler
}

// NewServer 새 서버 생성
// db, redis, scheduler는 nil 허용 (해당 라우트는 축소됨)
func NewServer(analysis *services.AnalysisService, scheduler *services.SchedulerService, db *store.DB, redis *redisclient.Client) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:          gin.New(),
		db:              db,
		redis:           redis,
		analysisHandler: handlers.NewAnalysisHandler(analysis, db, redis),
	}
	if db != nil && scheduler != nil {
		s.scheduleHandler = handlers.NewScheduleHandler(db, scheduler)
	}

	s.setupRoutes()
	return s
}

// setupRoutes 라우트 설정
func (s *Server) setupRoutes() {
	// 미들웨어
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORSMiddleware())
	s.router.Use(middleware.RequestIDMiddleware())

	// 헬스체크
	s.router.GET("/health", s.health)
	s.router.GET("/ready", s.ready)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		analyses := v1.Group("/analyses")
		{
			analyses.POST("", s.analysisHandler.Create)
			analyses.GET("", s.analysisHandler.List)
			analyses.GET("/:session", s.analysisHandler.Get)
			analyses.GET("/:session/kpis", s.analysisHandler.KPIs)
		}

		pipeline := v1.Group("/pipeline")
		{
			pipeline.GET("/status", s.analysisHandler.Status)
			pipeline.POST("/abort", s.analysisHandler.Abort)
		}

		v1.GET("/agents", s.analysisHandler.Agents)

		if s.scheduleHandler != nil {
			schedules := v1.Group("/schedules")
			{
				schedules.GET("", s.scheduleHandler.List)
				schedules.POST("", s.scheduleHandler.Create)
				schedules.DELETE("/:id", s.scheduleHandler.Delete)
			}
		}
	}
}

// Router gin 엔진 반환
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run 서버 시작
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// health 헬스체크
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ready 의존성 상태 확인
func (s *Server) ready(c *gin.Context) {
	status := gin.H{"status": "ok"}
	code := http.StatusOK

	if s.db != nil {
		if err := s.db.Health(); err != nil {
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}
	if s.redis != nil {
		state := s.redis.State()
		status["redis"] = state.String()
		if state != redisclient.StateConnected {
			code = http.StatusServiceUnavailable
		}
	}

	if code != http.StatusOK {
		status["status"] = "degraded"
	}
	c.JSON(code, status)
}

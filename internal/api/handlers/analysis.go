// Package handlers 분석 API 핸들러
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/factorylens/factorylens/internal/services"
	"github.com/factorylens/factorylens/internal/store"
	"github.com/factorylens/factorylens/pkg/orchestrator"
	"github.com/factorylens/factorylens/pkg/redisclient"
	"github.com/factorylens/factorylens/pkg/types"
)

// AnalysisHandler 분석 실행과 조회 핸들러
type AnalysisHandler struct {
	analysis *services.AnalysisService
	db       *store.DB
	redis    *redisclient.Client
}

// NewAnalysisHandler 새 분석 핸들러 생성
func NewAnalysisHandler(analysis *services.AnalysisService, db *store.DB, redis *redisclient.Client) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis, db: db, redis: redis}
}

// createRequest 분석 생성 요청 바디
type createRequest struct {
	Query        string    `json:"query" binding:"required"`
	UserID       string    `json:"user_id"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	AnalysisType string    `json:"analysis_type"`
}

// Create POST /api/v1/analyses
// 파이프라인을 실행하고 전체 결과를 반환
func (h *AnalysisHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	// 시간 범위 생략 시 최근 24시간
	if req.Start.IsZero() && req.End.IsZero() {
		req.End = time.Now()
		req.Start = req.End.Add(-24 * time.Hour)
	}

	result, err := h.analysis.Run(c.Request.Context(), services.RunRequest{
		Query:        req.Query,
		UserID:       req.UserID,
		TimeRange:    types.TimeRange{Start: req.Start, End: req.End},
		AnalysisType: req.AnalysisType,
	})
	if err != nil {
		switch {
		case errors.Is(err, types.ErrEmptyQuery), errors.Is(err, types.ErrInvalidTimeRange):
			errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, orchestrator.ErrAlreadyRunning):
			errorResponse(c, http.StatusConflict, err.Error())
		case errors.Is(err, orchestrator.ErrDependencyCycle), errors.Is(err, orchestrator.ErrUnknownDependency):
			errorResponse(c, http.StatusUnprocessableEntity, err.Error())
		default:
			errorResponse(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Get GET /api/v1/analyses/:session
func (h *AnalysisHandler) Get(c *gin.Context) {
	if h.db == nil {
		errorResponse(c, http.StatusNotImplemented, "persistence is not configured")
		return
	}

	result, err := h.db.GetRunResult(c.Request.Context(), c.Param("session"))
	if errors.Is(err, store.ErrRunNotFound) {
		errorResponse(c, http.StatusNotFound, "analysis run not found")
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}

// List GET /api/v1/analyses
func (h *AnalysisHandler) List(c *gin.Context) {
	if h.db == nil {
		errorResponse(c, http.StatusNotImplemented, "persistence is not configured")
		return
	}

	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)

	runs, err := h.db.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// KPIs GET /api/v1/analyses/:session/kpis
// Redis 캐시를 먼저 확인하고 없으면 저장된 결과에서 추출
func (h *AnalysisHandler) KPIs(c *gin.Context) {
	sessionID := c.Param("session")

	if h.redis != nil {
		if compliance, ok, err := h.redis.CachedKPIs(c.Request.Context(), sessionID); err == nil && ok {
			c.JSON(http.StatusOK, compliance)
			return
		}
	}

	if h.db == nil {
		errorResponse(c, http.StatusNotFound, "KPIs not found")
		return
	}

	result, err := h.db.GetRunResult(c.Request.Context(), sessionID)
	if errors.Is(err, store.ErrRunNotFound) {
		errorResponse(c, http.StatusNotFound, "analysis run not found")
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	res := result.AgentResultOf(types.AgentTypeComplianceScorer)
	if res == nil || !res.Succeeded() {
		errorResponse(c, http.StatusNotFound, "no compliance result for this run")
		return
	}

	c.JSON(http.StatusOK, res.Data)
}

// Status GET /api/v1/pipeline/status
func (h *AnalysisHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": h.analysis.Status()})
}

// Abort POST /api/v1/pipeline/abort
func (h *AnalysisHandler) Abort(c *gin.Context) {
	if !h.analysis.Abort() {
		errorResponse(c, http.StatusConflict, "no pipeline is running")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": types.PipelineStatusAborted})
}

// Agents GET /api/v1/agents
func (h *AnalysisHandler) Agents(c *gin.Context) {
	agents := h.analysis.RegisteredAgents()

	out := make([]gin.H, 0, len(agents))
	for _, t := range agents {
		out = append(out, gin.H{
			"type":  t,
			"stage": types.StageOf(t),
		})
	}
	c.JSON(http.StatusOK, gin.H{"agents": out, "count": len(out)})
}

// errorResponse 에러 응답
func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// intQuery 정수 쿼리 파라미터 파싱
func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

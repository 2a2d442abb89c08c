package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/factorylens/factorylens/internal/services"
	"github.com/factorylens/factorylens/internal/store"
)

// ScheduleHandler 주기 분석 스케줄 핸들러
type ScheduleHandler struct {
	db        *store.DB
	scheduler *services.SchedulerService
}

// NewScheduleHandler 새 스케줄 핸들러 생성
func NewScheduleHandler(db *store.DB, scheduler *services.SchedulerService) *ScheduleHandler {
	return &ScheduleHandler{db: db, scheduler: scheduler}
}

// scheduleRequest 스케줄 생성/수정 요청 바디
type scheduleRequest struct {
	Name        string `json:"name" binding:"required"`
	CronExpr    string `json:"cron_expr" binding:"required"`
	Query       string `json:"query" binding:"required"`
	WindowHours int    `json:"window_hours"`
	Enabled     *bool  `json:"enabled"`
}

// List GET /api/v1/schedules
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.db.ListSchedules(c.Request.Context(), false)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules, "count": len(schedules)})
}

// Create POST /api/v1/schedules
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	if req.WindowHours <= 0 {
		req.WindowHours = 24
	}

	schedule := &store.AnalysisSchedule{
		Name:        req.Name,
		CronExpr:    req.CronExpr,
		Query:       req.Query,
		WindowHours: req.WindowHours,
		Enabled:     enabled,
	}

	if err := h.scheduler.AddSchedule(c.Request.Context(), schedule); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, schedule)
}

// Delete DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid schedule id")
		return
	}

	h.scheduler.RemoveSchedule(uint(id))
	if err := h.db.WithContext(c.Request.Context()).Delete(&store.AnalysisSchedule{}, uint(id)).Error; err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

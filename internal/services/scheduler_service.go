package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/factorylens/factorylens/internal/store"
	"github.com/factorylens/factorylens/pkg/types"
)

// SchedulerService 주기 분석 스케줄러
// DB의 활성 스케줄을 cron에 등록하고 트리거 시점에 분석을 실행함
type SchedulerService struct {
	db       *store.DB
	analysis *AnalysisService
	cron     *cron.Cron
	logger   *slog.Logger

	jobs    map[uint]cron.EntryID
	mu      sync.RWMutex
	running bool
}

// NewSchedulerService 새 스케줄러 서비스 생성
func NewSchedulerService(db *store.DB, analysis *AnalysisService, logger *slog.Logger) *SchedulerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchedulerService{
		db:       db,
		analysis: analysis,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		logger:   logger,
		jobs:     make(map[uint]cron.EntryID),
	}
}

// Start 스케줄러 시작
func (s *SchedulerService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if err := s.loadSchedules(ctx); err != nil {
		s.logger.Warn("failed to load schedules", "error", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedules", s.ActiveCount())
	return nil
}

// Stop 스케줄러 중지
// 실행 중인 job이 끝날 때까지 대기
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("scheduler stopped")
}

// loadSchedules DB의 활성 스케줄 등록
func (s *SchedulerService) loadSchedules(ctx context.Context) error {
	schedules, err := s.db.ListSchedules(ctx, true)
	if err != nil {
		return err
	}

	for i := range schedules {
		if err := s.register(&schedules[i]); err != nil {
			s.logger.Warn("failed to register schedule",
				"schedule", schedules[i].Name, "error", err)
		}
	}
	return nil
}

// AddSchedule 스케줄 저장 후 등록
func (s *SchedulerService) AddSchedule(ctx context.Context, schedule *store.AnalysisSchedule) error {
	if err := s.db.SaveSchedule(ctx, schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.jobs[schedule.ID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, schedule.ID)
	}
	if !schedule.Enabled {
		return nil
	}
	return s.register(schedule)
}

// RemoveSchedule 스케줄 등록 해제
func (s *SchedulerService) RemoveSchedule(scheduleID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.jobs[scheduleID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, scheduleID)
	}
}

// ActiveCount 활성 스케줄 수
func (s *SchedulerService) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// register cron 등록 (호출자가 락을 잡지 않은 초기 로드 경로에서도 사용)
func (s *SchedulerService) register(schedule *store.AnalysisSchedule) error {
	job := &scheduledAnalysis{service: s, scheduleID: schedule.ID}

	entryID, err := s.cron.AddJob(schedule.CronExpr,
		cron.NewChain(cron.Recover(cron.DefaultLogger)).Then(job))
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule.CronExpr, err)
	}

	s.jobs[schedule.ID] = entryID
	return nil
}

// scheduledAnalysis cron job 구현
type scheduledAnalysis struct {
	service    *SchedulerService
	scheduleID uint
}

// Run 트리거 시점에 스케줄을 다시 읽어 분석 실행
func (j *scheduledAnalysis) Run() {
	s := j.service
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	schedules, err := s.db.ListSchedules(ctx, false)
	if err != nil {
		s.logger.Error("scheduled run: failed to load schedule", "id", j.scheduleID, "error", err)
		return
	}

	var schedule *store.AnalysisSchedule
	for i := range schedules {
		if schedules[i].ID == j.scheduleID {
			schedule = &schedules[i]
			break
		}
	}
	if schedule == nil || !schedule.Enabled {
		s.RemoveSchedule(j.scheduleID)
		return
	}

	window := time.Duration(schedule.WindowHours) * time.Hour
	if window <= 0 {
		window = 24 * time.Hour
	}

	now := time.Now()
	result, err := s.analysis.Run(ctx, RunRequest{
		Query:     schedule.Query,
		TimeRange: types.TimeRange{Start: now.Add(-window), End: now},
	})
	if err != nil {
		s.logger.Error("scheduled analysis failed", "schedule", schedule.Name, "error", err)
		return
	}

	if err := s.db.MarkScheduleRun(ctx, schedule.ID, result.SessionID, now); err != nil {
		s.logger.Warn("failed to mark schedule run", "schedule", schedule.Name, "error", err)
	}

	s.logger.Info("scheduled analysis finished",
		"schedule", schedule.Name,
		"session", result.SessionID,
		"status", result.Status)
}

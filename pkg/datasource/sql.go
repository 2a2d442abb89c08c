package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	// 지원 드라이버 등록
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/factorylens/factorylens/pkg/types"
)

// SQLConfig SQL 소스 설정
type SQLConfig struct {
	Driver           string `yaml:"driver"` // mysql 또는 postgres
	DSN              string `yaml:"dsn"`
	PerformanceTable string `yaml:"performance_table"`
	QualityTable     string `yaml:"quality_table"`
	MaintenanceTable string `yaml:"maintenance_table"`
	AlertsTable      string `yaml:"alerts_table"`
	EquipmentTable   string `yaml:"equipment_table"`
}

// SQLSource 관계형 DB 기반 텔레메트리 소스
type SQLSource struct {
	cfg *SQLConfig
	db  *sql.DB
}

// NewSQLSource SQL 소스 생성
func NewSQLSource(cfg *SQLConfig) (*SQLSource, error) {
	if cfg.Driver == "" || cfg.DSN == "" {
		return nil, fmt.Errorf("sql source requires driver and dsn")
	}

	if cfg.PerformanceTable == "" {
		cfg.PerformanceTable = "performance_metrics"
	}
	if cfg.QualityTable == "" {
		cfg.QualityTable = "quality_inspections"
	}
	if cfg.MaintenanceTable == "" {
		cfg.MaintenanceTable = "maintenance_events"
	}
	if cfg.AlertsTable == "" {
		cfg.AlertsTable = "equipment_alerts"
	}
	if cfg.EquipmentTable == "" {
		cfg.EquipmentTable = "equipment"
	}

	return &SQLSource{cfg: cfg}, nil
}

func (s *SQLSource) Name() string {
	return "sql"
}

// rebind 드라이버별 플레이스홀더 변환
// lib/pq는 ?를 해석하지 않으므로 postgres에서는 $N 위치 인자로 치환
func (s *SQLSource) rebind(query string) string {
	if s.cfg.Driver != "postgres" {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Open 연결 열기
func (s *SQLSource) Open(ctx context.Context) error {
	db, err := sql.Open(s.cfg.Driver, s.cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

func (s *SQLSource) Performance(ctx context.Context, tr types.TimeRange) ([]types.PerformanceRecord, error) {
	query := s.rebind(fmt.Sprintf(`SELECT equipment_id, ts, availability, performance, quality,
		runtime_hours, downtime_hours, units_produced, cycle_time_sec, ideal_cycle_sec
		FROM %s WHERE ts BETWEEN ? AND ? ORDER BY ts`, s.cfg.PerformanceTable))

	rows, err := s.db.QueryContext(ctx, query, tr.Start, tr.End)
	if err != nil {
		return nil, fmt.Errorf("performance query failed: %w", err)
	}
	defer rows.Close()

	out := make([]types.PerformanceRecord, 0)
	for rows.Next() {
		var r types.PerformanceRecord
		if err := rows.Scan(&r.EquipmentID, &r.Timestamp, &r.Availability, &r.Performance,
			&r.Quality, &r.RuntimeHours, &r.DowntimeHours, &r.UnitsProduced,
			&r.CycleTimeSec, &r.IdealCycleSec); err != nil {
			return nil, fmt.Errorf("performance scan failed: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLSource) Quality(ctx context.Context, tr types.TimeRange) ([]types.QualityRecord, error) {
	query := s.rebind(fmt.Sprintf(`SELECT equipment_id, ts, units_checked, defects, opportunities,
		reworked, scrapped, defect_type, shift, operator
		FROM %s WHERE ts BETWEEN ? AND ? ORDER BY ts`, s.cfg.QualityTable))

	rows, err := s.db.QueryContext(ctx, query, tr.Start, tr.End)
	if err != nil {
		return nil, fmt.Errorf("quality query failed: %w", err)
	}
	defer rows.Close()

	out := make([]types.QualityRecord, 0)
	for rows.Next() {
		var r types.QualityRecord
		var defectType, shift, operator sql.NullString
		if err := rows.Scan(&r.EquipmentID, &r.Timestamp, &r.UnitsChecked, &r.Defects,
			&r.Opportunities, &r.Reworked, &r.Scrapped, &defectType, &shift, &operator); err != nil {
			return nil, fmt.Errorf("quality scan failed: %w", err)
		}
		r.DefectType = defectType.String
		r.Shift = shift.String
		r.Operator = operator.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLSource) Maintenance(ctx context.Context, tr types.TimeRange) ([]types.MaintenanceRecord, error) {
	query := s.rebind(fmt.Sprintf(`SELECT equipment_id, started_at, ended_at, type, failure_code,
		description, is_failure, repair_hours, overdue_tasks
		FROM %s WHERE started_at BETWEEN ? AND ? ORDER BY started_at`, s.cfg.MaintenanceTable))

	rows, err := s.db.QueryContext(ctx, query, tr.Start, tr.End)
	if err != nil {
		return nil, fmt.Errorf("maintenance query failed: %w", err)
	}
	defer rows.Close()

	out := make([]types.MaintenanceRecord, 0)
	for rows.Next() {
		var r types.MaintenanceRecord
		var failureCode, description sql.NullString
		if err := rows.Scan(&r.EquipmentID, &r.StartedAt, &r.EndedAt, &r.Type, &failureCode,
			&description, &r.IsFailure, &r.RepairHours, &r.OverdueTasks); err != nil {
			return nil, fmt.Errorf("maintenance scan failed: %w", err)
		}
		r.FailureCode = failureCode.String
		r.Description = description.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLSource) Alerts(ctx context.Context, tr types.TimeRange) ([]types.AlertRecord, error) {
	query := s.rebind(fmt.Sprintf(`SELECT equipment_id, ts, severity, category, message
		FROM %s WHERE ts BETWEEN ? AND ? ORDER BY ts`, s.cfg.AlertsTable))

	rows, err := s.db.QueryContext(ctx, query, tr.Start, tr.End)
	if err != nil {
		return nil, fmt.Errorf("alerts query failed: %w", err)
	}
	defer rows.Close()

	out := make([]types.AlertRecord, 0)
	for rows.Next() {
		var r types.AlertRecord
		if err := rows.Scan(&r.EquipmentID, &r.Timestamp, &r.Severity, &r.Category, &r.Message); err != nil {
			return nil, fmt.Errorf("alerts scan failed: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLSource) Equipment(ctx context.Context) ([]types.Equipment, error) {
	query := fmt.Sprintf(`SELECT id, name, line, site, op_hours, critical FROM %s`, s.cfg.EquipmentTable)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("equipment query failed: %w", err)
	}
	defer rows.Close()

	out := make([]types.Equipment, 0)
	for rows.Next() {
		var e types.Equipment
		var line, site sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &line, &site, &e.OpHours, &e.Critical); err != nil {
			return nil, fmt.Errorf("equipment scan failed: %w", err)
		}
		e.Line = line.String
		e.Site = site.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

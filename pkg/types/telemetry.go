package types

import "time"

// PerformanceRecord 설비 성능 측정 레코드
type PerformanceRecord struct {
	EquipmentID   string    `json:"equipment_id"`
	Timestamp     time.Time `json:"timestamp"`
	Availability  float64   `json:"availability"`  // 0~1
	Performance   float64   `json:"performance"`   // 0~1
	Quality       float64   `json:"quality"`       // 0~1
	RuntimeHours  float64   `json:"runtime_hours"`
	DowntimeHours float64   `json:"downtime_hours"`
	UnitsProduced int64     `json:"units_produced"`
	CycleTimeSec  float64   `json:"cycle_time_sec"`
	IdealCycleSec float64   `json:"ideal_cycle_sec"`
}

// QualityRecord 품질 검사 레코드
type QualityRecord struct {
	EquipmentID   string    `json:"equipment_id"`
	Timestamp     time.Time `json:"timestamp"`
	UnitsChecked  int64     `json:"units_checked"`
	Defects       int64     `json:"defects"`
	Opportunities int64     `json:"opportunities"` // 단위당 결함 기회 수
	Reworked      int64     `json:"reworked"`
	Scrapped      int64     `json:"scrapped"`
	DefectType    string    `json:"defect_type,omitempty"`
	Shift         string    `json:"shift,omitempty"`
	Operator      string    `json:"operator,omitempty"`
}

// MaintenanceRecord 유지보수 작업 레코드
type MaintenanceRecord struct {
	EquipmentID  string    `json:"equipment_id"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	Type         string    `json:"type"` // planned / unplanned / calibration
	FailureCode  string    `json:"failure_code,omitempty"`
	Description  string    `json:"description,omitempty"`
	IsFailure    bool      `json:"is_failure"`
	RepairHours  float64   `json:"repair_hours"`
	OverdueTasks int       `json:"overdue_tasks,omitempty"`
}

// AlertRecord 설비 알람 레코드
type AlertRecord struct {
	EquipmentID string    `json:"equipment_id"`
	Timestamp   time.Time `json:"timestamp"`
	Severity    string    `json:"severity"` // info / warning / critical
	Category    string    `json:"category"` // equipment / operator / environment / process
	Message     string    `json:"message"`
}

// Equipment 설비 정보
type Equipment struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Line     string  `json:"line,omitempty"`
	Site     string  `json:"site,omitempty"`
	OpHours  float64 `json:"op_hours"` // 기간 내 가동 시간
	Critical bool    `json:"critical,omitempty"`
}

// DataQuality 수집 데이터 품질 점수 (각 0~1)
type DataQuality struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Timeliness   float64 `json:"timeliness"`
}

// DataCollectionResult 데이터 수집 에이전트 결과
type DataCollectionResult struct {
	Performance []PerformanceRecord `json:"performance"`
	Quality     []QualityRecord     `json:"quality"`
	Maintenance []MaintenanceRecord `json:"maintenance"`
	Alerts      []AlertRecord       `json:"alerts"`
	Equipment   []Equipment         `json:"equipment"`
	TimeRange   TimeRange           `json:"time_range"`
	DataQuality DataQuality         `json:"data_quality"`
}

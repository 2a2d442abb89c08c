package datasource

import "testing"

func TestSQLSourceRebind(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		query  string
		want   string
	}{
		{
			name:   "mysql keeps question marks",
			driver: "mysql",
			query:  "SELECT * FROM t WHERE ts BETWEEN ? AND ?",
			want:   "SELECT * FROM t WHERE ts BETWEEN ? AND ?",
		},
		{
			name:   "postgres gets positional parameters",
			driver: "postgres",
			query:  "SELECT * FROM t WHERE ts BETWEEN ? AND ?",
			want:   "SELECT * FROM t WHERE ts BETWEEN $1 AND $2",
		},
		{
			name:   "postgres without placeholders unchanged",
			driver: "postgres",
			query:  "SELECT id, name FROM equipment",
			want:   "SELECT id, name FROM equipment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewSQLSource(&SQLConfig{Driver: tt.driver, DSN: "test-dsn"})
			if err != nil {
				t.Fatalf("NewSQLSource failed: %v", err)
			}
			if got := src.rebind(tt.query); got != tt.want {
				t.Errorf("rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewSQLSourceRequiresDriverAndDSN(t *testing.T) {
	if _, err := NewSQLSource(&SQLConfig{Driver: "mysql"}); err == nil {
		t.Error("expected an error without a DSN")
	}
	if _, err := NewSQLSource(&SQLConfig{DSN: "dsn"}); err == nil {
		t.Error("expected an error without a driver")
	}
}

func TestNewSQLSourceDefaultTables(t *testing.T) {
	src, err := NewSQLSource(&SQLConfig{Driver: "mysql", DSN: "dsn"})
	if err != nil {
		t.Fatalf("NewSQLSource failed: %v", err)
	}

	cfg := src.cfg
	if cfg.PerformanceTable != "performance_metrics" || cfg.EquipmentTable != "equipment" {
		t.Errorf("unexpected table defaults: %+v", cfg)
	}
}

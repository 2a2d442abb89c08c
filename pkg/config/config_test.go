package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/factorylens/factorylens/pkg/types"
)

const sampleYAML = `
name: plant-floor-analysis
agents:
  data_collector:
    enabled: true
    timeout: 10s
  quality_analyzer:
    enabled: true
    dependencies: [data_collector]
orchestrator:
  fallback_behavior: partial
datasource:
  sql:
    driver: mysql
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Version != "1.0" {
		t.Errorf("expected default version 1.0, got %s", cfg.Version)
	}
	if cfg.Name != "plant-floor-analysis" {
		t.Errorf("unexpected name %s", cfg.Name)
	}

	dc := cfg.Agents[types.AgentTypeDataCollector]
	if dc.Timeout != 10*time.Second {
		t.Errorf("explicit timeout overridden: %v", dc.Timeout)
	}
	if dc.Priority != 100 {
		t.Errorf("expected default priority 100, got %d", dc.Priority)
	}

	qa := cfg.Agents[types.AgentTypeQualityAnalyzer]
	if qa.Timeout != 30*time.Second {
		t.Errorf("expected default timeout, got %v", qa.Timeout)
	}
	if len(qa.Dependencies) != 1 || qa.Dependencies[0] != types.AgentTypeDataCollector {
		t.Errorf("unexpected dependencies %v", qa.Dependencies)
	}
}

func TestParseEnabledDefault(t *testing.T) {
	const yamlWithPartialBlocks = `
name: partial
agents:
  data_collector:
    timeout: 5s
  quality_analyzer:
    enabled: false
  report_generator:
    enabled: true
`
	cfg, err := Parse([]byte(yamlWithPartialBlocks))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// a block that only tunes other fields must stay enabled
	if !cfg.Agents[types.AgentTypeDataCollector].Enabled {
		t.Error("agent block without enabled key must default to enabled")
	}
	// explicit values are preserved either way
	if cfg.Agents[types.AgentTypeQualityAnalyzer].Enabled {
		t.Error("explicit enabled: false must be honored")
	}
	if !cfg.Agents[types.AgentTypeReportGenerator].Enabled {
		t.Error("explicit enabled: true must be honored")
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("agents: [not a map")); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AnalysisConfig)
		wantErr bool
	}{
		{"valid", func(c *AnalysisConfig) {}, false},
		{"missing name", func(c *AnalysisConfig) { c.Name = "" }, true},
		{"unknown agent type", func(c *AnalysisConfig) {
			c.Agents[types.AgentType("mystery")] = types.DefaultAgentConfig()
		}, true},
		{"unknown dependency", func(c *AnalysisConfig) {
			ac := types.DefaultAgentConfig()
			ac.Dependencies = []types.AgentType{"nonexistent"}
			c.Agents[types.AgentTypeReportGenerator] = ac
		}, true},
		{"unknown fallback", func(c *AnalysisConfig) {
			c.Orchestrator.FallbackBehavior = "explode"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(sampleYAML))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAgentConfigFor(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// configured agent returns its own config
	dc := cfg.AgentConfigFor(types.AgentTypeDataCollector)
	if dc.Timeout != 10*time.Second {
		t.Errorf("expected configured timeout, got %v", dc.Timeout)
	}

	// unconfigured agent falls back to defaults
	rg := cfg.AgentConfigFor(types.AgentTypeReportGenerator)
	if rg.Timeout != 30*time.Second || !rg.Enabled {
		t.Errorf("expected default config, got %+v", rg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "analysis.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != cfg.Name {
		t.Errorf("name mismatch after round trip: %s", loaded.Name)
	}
	if loaded.Orchestrator.FallbackBehavior != types.FallbackPartial {
		t.Errorf("fallback behavior mismatch: %s", loaded.Orchestrator.FallbackBehavior)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/analysis.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

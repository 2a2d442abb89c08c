// Package config 분석 파이프라인 YAML 설정 로더
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/factorylens/factorylens/pkg/bus"
	"github.com/factorylens/factorylens/pkg/datasource"
	"github.com/factorylens/factorylens/pkg/orchestrator"
	"github.com/factorylens/factorylens/pkg/types"
)

// AnalysisConfig 분석 파이프라인 설정
type AnalysisConfig struct {
	Version string `yaml:"version"`
	Name    string `yaml:"name"`

	// 에이전트별 설정 (생략 시 기본값)
	Agents map[types.AgentType]*types.AgentConfig `yaml:"agents,omitempty"`

	Orchestrator *orchestrator.Config `yaml:"orchestrator,omitempty"`
	Bus          *bus.Config          `yaml:"bus,omitempty"`

	Datasource DatasourceConfig `yaml:"datasource"`
}

// DatasourceConfig 텔레메트리 소스 설정
// SQL이 기본 소스이며 나머지는 보조 소스로 합성됨
type DatasourceConfig struct {
	SQL     *datasource.SQLConfig     `yaml:"sql,omitempty"`
	Kafka   *datasource.KafkaConfig   `yaml:"kafka,omitempty"`
	Mongo   *datasource.MongoConfig   `yaml:"mongo,omitempty"`
	Elastic *datasource.ElasticConfig `yaml:"elastic,omitempty"`
}

// Load 설정 파일 로드
func Load(path string) (*AnalysisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse YAML 파싱
func Parse(data []byte) (*AnalysisConfig, error) {
	var config AnalysisConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// 기본값 설정
	if config.Version == "" {
		config.Version = "1.0"
	}
	if config.Orchestrator == nil {
		config.Orchestrator = orchestrator.DefaultConfig()
	}

	// enabled 키 생략과 명시적 false를 구분하기 위해 원본을 한 번 더 읽음
	// 키가 없는 에이전트 블록은 기본값(활성)을 따름
	var raw struct {
		Agents map[types.AgentType]struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"agents"`
	}
	_ = yaml.Unmarshal(data, &raw)

	for t, ac := range config.Agents {
		if ac == nil {
			config.Agents[t] = types.DefaultAgentConfig()
			continue
		}
		def := types.DefaultAgentConfig()
		if ac.Timeout <= 0 {
			ac.Timeout = def.Timeout
		}
		if ac.Priority == 0 {
			ac.Priority = def.Priority
		}
		if r, ok := raw.Agents[t]; ok && r.Enabled == nil {
			ac.Enabled = def.Enabled
		}
	}

	return &config, nil
}

// Validate 설정 검증
func (c *AnalysisConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("analysis config name is required")
	}

	for t, ac := range c.Agents {
		if !types.IsValidAgentType(t) {
			return fmt.Errorf("unknown agent type: %s", t)
		}
		if ac == nil {
			continue
		}
		for _, dep := range ac.Dependencies {
			if !types.IsValidAgentType(dep) {
				return fmt.Errorf("agent %s has unknown dependency: %s", t, dep)
			}
		}
	}

	if c.Orchestrator != nil {
		switch c.Orchestrator.FallbackBehavior {
		case "", types.FallbackAbort, types.FallbackPartial, types.FallbackContinue:
		default:
			return fmt.Errorf("unknown fallback behavior: %s", c.Orchestrator.FallbackBehavior)
		}
	}

	return nil
}

// AgentConfigFor 에이전트 설정 조회 (없으면 기본값)
func (c *AnalysisConfig) AgentConfigFor(t types.AgentType) *types.AgentConfig {
	if ac, ok := c.Agents[t]; ok && ac != nil {
		return ac
	}
	return types.DefaultAgentConfig()
}

// ToYAML YAML로 변환
func (c *AnalysisConfig) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save 설정 파일 저장
func (c *AnalysisConfig) Save(path string) error {
	data, err := c.ToYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/factorylens/factorylens/pkg/types"
)

// ElasticConfig Elasticsearch 알람 검색 설정
type ElasticConfig struct {
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	APIKey    string   `yaml:"api_key"`
	Index     string   `yaml:"index"`
	MaxHits   int      `yaml:"max_hits"`
}

// ElasticAlertSource 알람 인덱스 검색 소스
type ElasticAlertSource struct {
	cfg    *ElasticConfig
	client *elasticsearch.Client
}

// NewElasticAlertSource 새 소스 생성
func NewElasticAlertSource(cfg *ElasticConfig) (*ElasticAlertSource, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("elastic source requires addresses")
	}
	if cfg.Index == "" {
		cfg.Index = "equipment-alerts"
	}
	if cfg.MaxHits <= 0 {
		cfg.MaxHits = 10000
	}

	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.APIKey != "" {
		esCfg.APIKey = cfg.APIKey
	} else {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticAlertSource{cfg: cfg, client: client}, nil
}

// Alerts 시간 범위로 알람 인덱스 검색
func (s *ElasticAlertSource) Alerts(ctx context.Context, tr types.TimeRange) ([]types.AlertRecord, error) {
	query := map[string]any{
		"size": s.cfg.MaxHits,
		"sort": []map[string]any{
			{"timestamp": map[string]any{"order": "asc"}},
		},
		"query": map[string]any{
			"range": map[string]any{
				"timestamp": map[string]any{
					"gte": tr.Start.Format(time.RFC3339),
					"lte": tr.End.Format(time.RFC3339),
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.cfg.Index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("alert search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("alert search returned %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source types.AlertRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	out := make([]types.AlertRecord, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out, nil
}

// Close 소스 종료
func (s *ElasticAlertSource) Close() error {
	return nil
}

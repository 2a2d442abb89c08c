// Package redisclient 분석 결과 발행과 KPI 캐시를 위한 Redis 클라이언트
package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/factorylens/factorylens/pkg/types"
)

// ConnectionState Redis 연결 상태
type ConnectionState int

const (
	StateConnected ConnectionState = iota
	StateDisconnected
	StateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Config 클라이언트 설정
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// 발행 채널과 캐시 키 프리픽스
	ResultChannel string        `yaml:"result_channel"`
	KPIKeyPrefix  string        `yaml:"kpi_key_prefix"`
	KPITTL        time.Duration `yaml:"kpi_ttl"`

	// 재연결 설정
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`

	// 상태 변경 콜백
	OnStateChange func(old, new ConnectionState) `yaml:"-"`
}

// DefaultConfig 기본 설정
func DefaultConfig(addr string) *Config {
	return &Config{
		Addr:           addr,
		ResultChannel:  "factorylens:results",
		KPIKeyPrefix:   "factorylens:kpi:",
		KPITTL:         time.Hour,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
	}
}

// Client 분석 결과 발행용 Redis 클라이언트
// 연결 장애 시 백그라운드에서 재연결하며 호출은 즉시 에러를 반환함
type Client struct {
	config *Config
	client *redis.Client
	ctx    context.Context
	cancel context.CancelFunc

	connState ConnectionState
	stateMu   sync.RWMutex
	reconnMu  sync.Mutex
	reconning bool
}

// New 새 클라이언트 생성
// 초기 연결에 실패해도 클라이언트를 반환하고 백그라운드에서 재연결
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig("localhost:6379")
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
		connState: StateDisconnected,
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := c.ping(); err != nil {
		go c.reconnectLoop()
	} else {
		c.setState(StateConnected)
	}

	return c
}

// PublishResult 파이프라인 결과를 결과 채널로 발행
func (c *Client) PublishResult(ctx context.Context, result *types.PipelineResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline result: %w", err)
	}

	if err := c.client.Publish(ctx, c.config.ResultChannel, payload).Err(); err != nil {
		c.onFailure()
		return fmt.Errorf("failed to publish result: %w", err)
	}
	return nil
}

// CacheKPIs 세션별 컴플라이언스 KPI를 TTL과 함께 저장
func (c *Client) CacheKPIs(ctx context.Context, sessionID string, compliance *types.ComplianceResult) error {
	payload, err := json.Marshal(compliance)
	if err != nil {
		return fmt.Errorf("failed to marshal compliance result: %w", err)
	}

	key := c.config.KPIKeyPrefix + sessionID
	if err := c.client.Set(ctx, key, payload, c.config.KPITTL).Err(); err != nil {
		c.onFailure()
		return fmt.Errorf("failed to cache KPIs: %w", err)
	}
	return nil
}

// CachedKPIs 세션별 캐시된 KPI 조회
// 키가 없으면 (nil, false, nil)
func (c *Client) CachedKPIs(ctx context.Context, sessionID string) (*types.ComplianceResult, bool, error) {
	key := c.config.KPIKeyPrefix + sessionID
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		c.onFailure()
		return nil, false, fmt.Errorf("failed to read cached KPIs: %w", err)
	}

	var compliance types.ComplianceResult
	if err := json.Unmarshal(payload, &compliance); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached KPIs: %w", err)
	}
	return &compliance, true, nil
}

// State 현재 연결 상태
func (c *Client) State() ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.connState
}

// Close 연결 종료
func (c *Client) Close() error {
	c.cancel()
	return c.client.Close()
}

func (c *Client) ping() error {
	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

func (c *Client) setState(state ConnectionState) {
	c.stateMu.Lock()
	old := c.connState
	c.connState = state
	c.stateMu.Unlock()

	if c.config.OnStateChange != nil && old != state {
		c.config.OnStateChange(old, state)
	}
}

// onFailure 호출 실패 시 재연결 루프 기동 (중복 기동 방지)
func (c *Client) onFailure() {
	c.reconnMu.Lock()
	if c.reconning {
		c.reconnMu.Unlock()
		return
	}
	c.reconning = true
	c.reconnMu.Unlock()

	go c.reconnectLoop()
}

// reconnectLoop 지수 백오프 재연결
func (c *Client) reconnectLoop() {
	c.reconnMu.Lock()
	c.reconning = true
	c.reconnMu.Unlock()

	defer func() {
		c.reconnMu.Lock()
		c.reconning = false
		c.reconnMu.Unlock()
	}()

	c.setState(StateReconnecting)
	backoff := c.config.InitialBackoff

	for {
		select {
		case <-c.ctx.Done():
			c.setState(StateDisconnected)
			return
		case <-time.After(backoff):
		}

		if err := c.ping(); err == nil {
			c.setState(StateConnected)
			return
		}

		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}

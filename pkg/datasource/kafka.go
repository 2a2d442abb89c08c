package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/factorylens/factorylens/pkg/types"
)

// KafkaConfig Kafka 알람 스트림 설정
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	GroupID    string   `yaml:"group_id"`
	BufferSize int      `yaml:"buffer_size"` // 메모리에 보관할 최대 알람 수
}

// KafkaAlertStream 설비 알람 토픽을 구독해 메모리 버퍼에 유지
// 수집 에이전트는 시간 범위로 버퍼를 조회
type KafkaAlertStream struct {
	reader *kafka.Reader
	buffer []types.AlertRecord
	max    int
	mu     sync.RWMutex
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewKafkaAlertStream 새 알람 스트림 생성
func NewKafkaAlertStream(cfg *KafkaConfig, logger *slog.Logger) (*KafkaAlertStream, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka alert stream requires brokers and topic")
	}

	max := cfg.BufferSize
	if max <= 0 {
		max = 10000
	}
	if logger == nil {
		logger = slog.Default()
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		MinBytes:    1,
		MaxBytes:    10 * 1024 * 1024,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	}
	if cfg.GroupID != "" {
		readerCfg.GroupID = cfg.GroupID
	}

	return &KafkaAlertStream{
		reader: kafka.NewReader(readerCfg),
		buffer: make([]types.AlertRecord, 0),
		max:    max,
		logger: logger,
	}, nil
}

// Start 백그라운드 소비 시작
func (s *KafkaAlertStream) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go func() {
		for {
			msg, err := s.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("kafka read failed", "error", err)
				time.Sleep(time.Second)
				continue
			}

			var alert types.AlertRecord
			if err := json.Unmarshal(msg.Value, &alert); err != nil {
				s.logger.Warn("invalid alert payload", "offset", msg.Offset, "error", err)
				continue
			}
			if alert.Timestamp.IsZero() {
				alert.Timestamp = msg.Time
			}

			s.mu.Lock()
			s.buffer = append(s.buffer, alert)
			if len(s.buffer) > s.max {
				s.buffer = s.buffer[len(s.buffer)-s.max:]
			}
			s.mu.Unlock()
		}
	}()
}

// Alerts 버퍼에서 시간 범위에 맞는 알람 조회
func (s *KafkaAlertStream) Alerts(ctx context.Context, tr types.TimeRange) ([]types.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.AlertRecord, 0)
	for _, a := range s.buffer {
		if inRange(a.Timestamp, tr) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Close 소비 중지 및 reader 종료
func (s *KafkaAlertStream) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.reader.Close()
}

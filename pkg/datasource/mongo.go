package datasource

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/factorylens/factorylens/pkg/types"
)

// MongoConfig MongoDB 유지보수 이력 소스 설정
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// MongoMaintenanceSource CMMS가 적재하는 유지보수 이력 컬렉션 조회
type MongoMaintenanceSource struct {
	cfg    *MongoConfig
	client *mongo.Client
}

// mongoMaintenanceDoc 컬렉션 문서 형태
type mongoMaintenanceDoc struct {
	EquipmentID  string    `bson:"equipment_id"`
	StartedAt    time.Time `bson:"started_at"`
	EndedAt      time.Time `bson:"ended_at"`
	Type         string    `bson:"type"`
	FailureCode  string    `bson:"failure_code,omitempty"`
	Description  string    `bson:"description,omitempty"`
	IsFailure    bool      `bson:"is_failure"`
	RepairHours  float64   `bson:"repair_hours"`
	OverdueTasks int       `bson:"overdue_tasks,omitempty"`
}

// NewMongoMaintenanceSource 새 소스 생성
func NewMongoMaintenanceSource(cfg *MongoConfig) (*MongoMaintenanceSource, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, fmt.Errorf("mongo source requires uri and database")
	}
	if cfg.Collection == "" {
		cfg.Collection = "maintenance_events"
	}
	return &MongoMaintenanceSource{cfg: cfg}, nil
}

// Open 연결 열기
func (s *MongoMaintenanceSource) Open(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(s.cfg.URI))
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s.client = client
	return nil
}

// Maintenance 시간 범위 내 유지보수 이력 조회
func (s *MongoMaintenanceSource) Maintenance(ctx context.Context, tr types.TimeRange) ([]types.MaintenanceRecord, error) {
	coll := s.client.Database(s.cfg.Database).Collection(s.cfg.Collection)

	filter := bson.M{
		"started_at": bson.M{"$gte": tr.Start, "$lte": tr.End},
	}
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}})

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("maintenance find failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoMaintenanceDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("maintenance decode failed: %w", err)
	}

	out := make([]types.MaintenanceRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, types.MaintenanceRecord{
			EquipmentID:  d.EquipmentID,
			StartedAt:    d.StartedAt,
			EndedAt:      d.EndedAt,
			Type:         d.Type,
			FailureCode:  d.FailureCode,
			Description:  d.Description,
			IsFailure:    d.IsFailure,
			RepairHours:  d.RepairHours,
			OverdueTasks: d.OverdueTasks,
		})
	}
	return out, nil
}

// Close 연결 종료
func (s *MongoMaintenanceSource) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

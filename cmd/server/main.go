package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"

	"github.com/factorylens/factorylens/internal/api"
	"github.com/factorylens/factorylens/internal/services"
	"github.com/factorylens/factorylens/internal/store"
	"github.com/factorylens/factorylens/pkg/config"
	"github.com/factorylens/factorylens/pkg/datasource"
	"github.com/factorylens/factorylens/pkg/redisclient"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// Config 서버 설정
type Config struct {
	// Database
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"3306"`
	DBUser     string `env:"DB_USER" envDefault:"factorylens"`
	DBPassword string `env:"DB_PASSWORD" envDefault:""`
	DBName     string `env:"DB_NAME" envDefault:"factorylens"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Server
	Port       int    `env:"PORT" envDefault:"8080"`
	ConfigPath string `env:"CONFIG_PATH" envDefault:""`

	// Database Migration
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"false"`

	// Flags (not from env)
	Migrate     bool
	ShowVersion bool
}

func main() {
	cfg := Config{}

	// 환경변수에서 설정 로드
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing environment variables: %v\n", err)
		os.Exit(1)
	}

	// 명령행 인자 파싱 (환경변수보다 우선)
	flag.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "Database host")
	flag.IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "Database port")
	flag.StringVar(&cfg.DBUser, "db-user", cfg.DBUser, "Database user")
	flag.StringVar(&cfg.DBPassword, "db-password", cfg.DBPassword, "Database password")
	flag.StringVar(&cfg.DBName, "db-name", cfg.DBName, "Database name")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database number")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "API server port")
	flag.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Analysis config file path (YAML)")
	flag.BoolVar(&cfg.Migrate, "migrate", false, "Run database migrations")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version")

	flag.Parse()

	if cfg.ShowVersion {
		fmt.Printf("FactoryLens %s (built: %s)\n", version, buildTime)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 분석 설정 로드
	analysisCfg := &config.AnalysisConfig{Name: "factorylens"}
	if cfg.ConfigPath != "" {
		loaded, err := config.Load(cfg.ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading analysis config: %v\n", err)
			os.Exit(1)
		}
		if err := loaded.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid analysis config: %v\n", err)
			os.Exit(1)
		}
		analysisCfg = loaded
	}

	// 데이터베이스 연결
	db, err := store.New(&store.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// 마이그레이션 (환경변수 또는 플래그로 활성화)
	if cfg.AutoMigrate || cfg.Migrate {
		logger.Info("running database migrations")
		if err := db.RunMigrations(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running migrations: %v\n", err)
			os.Exit(1)
		}
		logger.Info("migrations completed")
	}

	// Redis 클라이언트 (초기 연결 실패해도 백그라운드 재연결)
	redisCfg := redisclient.DefaultConfig(cfg.RedisAddr)
	redisCfg.Password = cfg.RedisPassword
	redisCfg.DB = cfg.RedisDB
	redisCfg.OnStateChange = func(old, new redisclient.ConnectionState) {
		logger.Info("redis connection state changed", "from", old.String(), "to", new.String())
	}
	redis := redisclient.New(redisCfg)
	defer func() { _ = redis.Close() }()

	// 텔레메트리 소스 구성
	source, err := buildSource(analysisCfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building telemetry source: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = source.Close() }()

	// 분석 서비스와 스케줄러
	analysis := services.NewAnalysisService(analysisCfg, source, db, redis, logger)

	scheduler := services.NewSchedulerService(db, analysis, logger)
	if err := scheduler.Start(context.Background()); err != nil {
		logger.Warn("scheduler failed to start", "error", err)
	} else {
		defer scheduler.Stop()
	}

	// API 서버 시작
	server := api.NewServer(analysis, scheduler, db, redis)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", "addr", addr, "version", version)
		if err := server.Run(addr); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 시그널 대기
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("shutting down", "signal", sig.String())
}

// buildSource 설정에 따라 텔레메트리 소스 합성
// SQL이 기본이며 Kafka/Mongo/Elastic은 보조 소스로 합쳐짐
func buildSource(cfg *config.AnalysisConfig, logger *slog.Logger) (datasource.TelemetrySource, error) {
	ds := cfg.Datasource

	var base datasource.TelemetrySource
	if ds.SQL != nil {
		sqlSource, err := datasource.NewSQLSource(ds.SQL)
		if err != nil {
			return nil, err
		}
		if err := sqlSource.Open(context.Background()); err != nil {
			return nil, err
		}
		base = sqlSource
	} else {
		logger.Warn("no sql datasource configured, using in-memory source")
		base = datasource.NewMemorySource()
	}

	composite := &datasource.Composite{Base: base}

	if ds.Kafka != nil {
		stream, err := datasource.NewKafkaAlertStream(ds.Kafka, logger)
		if err != nil {
			return nil, err
		}
		stream.Start(context.Background())
		composite.ExtraAlerts = append(composite.ExtraAlerts, stream)
	}

	if ds.Elastic != nil {
		elastic, err := datasource.NewElasticAlertSource(ds.Elastic)
		if err != nil {
			return nil, err
		}
		composite.ExtraAlerts = append(composite.ExtraAlerts, elastic)
	}

	if ds.Mongo != nil {
		mongoSource, err := datasource.NewMongoMaintenanceSource(ds.Mongo)
		if err != nil {
			return nil, err
		}
		if err := mongoSource.Open(context.Background()); err != nil {
			return nil, err
		}
		composite.MaintenanceOverride = mongoSource
	}

	return composite, nil
}

// analyze 단일 분석을 실행하고 결과를 JSON으로 출력하는 CLI
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/factorylens/factorylens/internal/services"
	"github.com/factorylens/factorylens/pkg/config"
	"github.com/factorylens/factorylens/pkg/datasource"
	"github.com/factorylens/factorylens/pkg/types"
)

func main() {
	var (
		configPath = flag.String("config", "", "Analysis config file path (YAML)")
		query      = flag.String("query", "", "Analysis query (required)")
		since      = flag.Duration("since", 24*time.Hour, "Analysis window ending now")
		startStr   = flag.String("start", "", "Window start (RFC3339, overrides -since)")
		endStr     = flag.String("end", "", "Window end (RFC3339, overrides -since)")
		quiet      = flag.Bool("quiet", false, "Suppress logs, print result JSON only")
		reportOnly = flag.Bool("report", false, "Print only the final report")
	)
	flag.Parse()

	if *query == "" {
		fmt.Fprintln(os.Stderr, "Error: -query is required")
		flag.Usage()
		os.Exit(2)
	}

	logLevel := slog.LevelInfo
	if *quiet {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	tr, err := resolveTimeRange(*startStr, *endStr, *since)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	analysisCfg := &config.AnalysisConfig{Name: "analyze-cli"}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if err := loaded.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
			os.Exit(1)
		}
		analysisCfg = loaded
	}

	source, err := buildSource(analysisCfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building telemetry source: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = source.Close() }()

	analysis := services.NewAnalysisService(analysisCfg, source, nil, nil, logger)

	result, err := analysis.Run(context.Background(), services.RunRequest{
		Query:     *query,
		TimeRange: tr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		os.Exit(1)
	}

	var out any = result
	if *reportOnly {
		out = result.Final
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
		os.Exit(1)
	}

	if result.Status == types.PipelineStatusFailed {
		os.Exit(1)
	}
}

// resolveTimeRange 플래그에서 분석 시간 범위 결정
func resolveTimeRange(startStr, endStr string, since time.Duration) (types.TimeRange, error) {
	if startStr == "" && endStr == "" {
		end := time.Now()
		return types.TimeRange{Start: end.Add(-since), End: end}, nil
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return types.TimeRange{}, fmt.Errorf("invalid -start: %w", err)
	}

	end := time.Now()
	if endStr != "" {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			return types.TimeRange{}, fmt.Errorf("invalid -end: %w", err)
		}
	}
	return types.TimeRange{Start: start, End: end}, nil
}

// buildSource 설정에 따라 텔레메트리 소스 합성
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

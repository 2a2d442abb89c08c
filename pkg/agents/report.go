package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/types"
)

// 보고서 에이전트가 커버할 수 있는 상위 결과 수
const reportSectionCount = 5

// ReportGenerator 전체 분석 결과를 최종 보고서로 합성하는 에이전트
type ReportGenerator struct {
	*agent.Base
}

// NewReportGenerator 새 보고서 에이전트 생성
func NewReportGenerator(cfg *types.AgentConfig, opts ...agent.BaseOption) *ReportGenerator {
	if cfg == nil {
		cfg = types.DefaultAgentConfig()
	}
	if len(cfg.Dependencies) == 0 {
		cfg.Dependencies = []types.AgentType{
			types.AgentTypePerformanceOptimizer,
			types.AgentTypeQualityAnalyzer,
			types.AgentTypeRootCauseAnalyzer,
			types.AgentTypeComplianceScorer,
			types.AgentTypeVisualizationGen,
		}
	}
	return &ReportGenerator{
		Base: agent.NewBase(types.AgentTypeReportGenerator, cfg, opts...),
	}
}

// Execute 상위 결과를 모아 최종 보고서 합성
// 일부 결과가 없어도 가능한 섹션만으로 보고서를 만들고 신뢰도를 낮춘다
func (r *ReportGenerator) Execute(ctx context.Context, actx *types.AgentContext, upstream agent.Upstream) *types.AgentResult {
	return r.Track(ctx, func(ctx context.Context) (any, []string, error) {
		report := ComposeReport(actx.Query, upstream)

		var warnings []string
		if report.Confidence < 0.5 {
			warnings = append(warnings, fmt.Sprintf("report confidence %.2f; several analysis sections are missing", report.Confidence))
		}
		return report, warnings, nil
	})
}

// Validate 보고서 형태 확인
func (r *ReportGenerator) Validate(data any) bool {
	_, ok := data.(*types.FinalReport)
	return ok
}

// ComposeReport 상위 결과에서 최종 보고서 합성 (순수 함수)
// 보고서 에이전트와 오케스트레이터 폴백이 공유하는 합성 경로
func ComposeReport(query string, upstream agent.Upstream) *types.FinalReport {
	var sb strings.Builder
	covered := 0

	sb.WriteString("# Manufacturing Analysis Report\n\n")
	if query != "" {
		sb.WriteString(fmt.Sprintf("Query: %s\n\n", query))
	}

	if perf, ok := upstream.PerformanceResult(); ok {
		covered++
		sb.WriteString("## Performance\n")
		sb.WriteString(fmt.Sprintf("Overall OEE is %.1f%% (availability %.1f%%, performance %.1f%%, quality %.1f%%).\n",
			perf.OEE.OEE*100, perf.OEE.Availability*100, perf.OEE.Performance*100, perf.OEE.Quality*100))
		for _, b := range perf.Bottlenecks {
			sb.WriteString(fmt.Sprintf("- Bottleneck %s: %s\n", b.EquipmentID, b.Reason))
		}
		sb.WriteString("\n")
	}

	if quality, ok := upstream.QualityResult(); ok {
		covered++
		sb.WriteString("## Quality\n")
		sb.WriteString(fmt.Sprintf("Defect rate is %.0f DPMO with a first pass yield of %.1f%%.\n",
			quality.DefectRateDPMO, quality.FirstPassYield*100))
		for _, d := range quality.TopDefects {
			sb.WriteString(fmt.Sprintf("- %s: %d defects\n", d.DefectType, d.Count))
		}
		sb.WriteString("\n")
	}

	if maintenance, ok := upstream.MaintenanceResult(); ok {
		covered++
		sb.WriteString("## Maintenance\n")
		sb.WriteString(fmt.Sprintf("Average MTBF is %.1fh and average MTTR is %.1fh across analyzed equipment.\n",
			maintenance.AvgMTBFHours, maintenance.AvgMTTRHours))
		for _, f := range maintenance.Forecasts {
			if f.RiskScore >= 0.6 {
				sb.WriteString(fmt.Sprintf("- %s: high risk (%.2f), %d failures in period\n",
					f.EquipmentID, f.RiskScore, f.FailureCount))
			}
		}
		sb.WriteString("\n")
	}

	report := &types.FinalReport{}

	if rootCause, ok := upstream.RootCauseResult(); ok {
		covered++
		sb.WriteString("## Root Cause Analysis\n")
		sb.WriteString(rootCause.ProblemStatement + "\n")
		for i, c := range rootCause.Causes {
			if i >= 3 {
				break
			}
			sb.WriteString(fmt.Sprintf("- %s (%s, %.0f%% confidence)\n", c.Cause, c.Category, c.Probability*100))
		}
		sb.WriteString("\n")
		for _, rec := range rootCause.Recommendations {
			report.Recommendations = append(report.Recommendations, rec.Action)
		}
	}

	if compliance, ok := upstream.ComplianceResult(); ok {
		covered++
		sb.WriteString("## KPI Compliance\n")
		sb.WriteString(fmt.Sprintf("KPI compliance level %d of 3.\n", compliance.Level))
		for _, kpi := range compliance.KPIs {
			sb.WriteString(fmt.Sprintf("- %s: %.3f (%s)\n", kpi.Name, kpi.Value, kpi.Level))
		}
		sb.WriteString("\n")
		report.Recommendations = append(report.Recommendations, compliance.Recommendations...)
	}

	if viz, ok := upstream.VisualizationResult(); ok {
		report.Visualizations = viz.Specs
	}

	report.Content = sb.String()
	report.Confidence = reportConfidence(upstream, covered)
	report.References = defaultReferences()
	return report
}

// reportConfidence 데이터 품질과 섹션 커버리지의 곱
func reportConfidence(upstream agent.Upstream, covered int) float64 {
	coverage := float64(covered) / reportSectionCount

	dataQuality := 1.0
	if collection, ok := upstream.Collection(); ok {
		q := collection.DataQuality
		dataQuality = (q.Completeness + q.Accuracy + q.Timeliness) / 3
	}

	return clamp01(coverage * dataQuality)
}

// defaultReferences 보고서에 첨부되는 기준 문서
func defaultReferences() []types.Reference {
	return []types.Reference{
		{
			Title:  "ISO 22400-2 Key performance indicators for manufacturing operations management",
			Source: "ISO",
			URL:    "https://www.iso.org/standard/54497.html",
		},
		{
			Title:  "SEMI E10 Specification for Equipment Reliability, Availability, and Maintainability",
			Source: "SEMI",
		},
	}
}

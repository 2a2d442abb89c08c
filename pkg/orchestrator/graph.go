package orchestrator

import (
	"fmt"
	"sort"

	"github.com/factorylens/factorylens/pkg/agent"
	"github.com/factorylens/factorylens/pkg/types"
)

// buildLayers 의존성 그래프를 위상 정렬해 동시 실행 가능한 레이어로 분할
// 사이클 또는 미등록 의존성은 설정 오류로 즉시 실패 (어떤 에이전트도 실행 전)
func buildLayers(agents map[types.AgentType]agent.Agent) ([][]types.AgentType, error) {
	// 진입 차수 계산
	indegree := make(map[types.AgentType]int, len(agents))
	dependents := make(map[types.AgentType][]types.AgentType, len(agents))

	for t, ag := range agents {
		if _, ok := indegree[t]; !ok {
			indegree[t] = 0
		}
		for _, dep := range ag.Config().Dependencies {
			if !types.IsValidAgentType(dep) {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, t, dep)
			}
			if _, registered := agents[dep]; !registered {
				return nil, fmt.Errorf("%w: %s depends on unregistered %s", ErrUnknownDependency, t, dep)
			}
			indegree[t]++
			dependents[dep] = append(dependents[dep], t)
		}
	}

	// Kahn 알고리즘으로 레이어 구성
	layers := make([][]types.AgentType, 0)
	remaining := len(agents)

	ready := make([]types.AgentType, 0)
	for t, deg := range indegree {
		if deg == 0 {
			ready = append(ready, t)
		}
	}

	for len(ready) > 0 {
		sortLayer(ready, agents)
		layer := make([]types.AgentType, len(ready))
		copy(layer, ready)
		layers = append(layers, layer)
		remaining -= len(layer)

		next := make([]types.AgentType, 0)
		for _, t := range layer {
			for _, dep := range dependents[t] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		ready = next
	}

	if remaining > 0 {
		return nil, ErrDependencyCycle
	}

	return layers, nil
}

// sortLayer 단계 순서, 우선순위, 타입명 순으로 레이어 정렬
// 레이어 내 실행은 동시지만 결과 처리 순서를 결정적으로 유지
func sortLayer(layer []types.AgentType, agents map[types.AgentType]agent.Agent) {
	sort.Slice(layer, func(i, j int) bool {
		si := types.StageIndex(types.StageOf(layer[i]))
		sj := types.StageIndex(types.StageOf(layer[j]))
		if si != sj {
			return si < sj
		}
		pi := agents[layer[i]].Config().Priority
		pj := agents[layer[j]].Config().Priority
		if pi != pj {
			return pi < pj
		}
		return layer[i] < layer[j]
	})
}

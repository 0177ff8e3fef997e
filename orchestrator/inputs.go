package orchestrator

import (
	"github.com/flowkit-io/flowkit/compiler"
	"github.com/flowkit-io/flowkit/graph"
	"github.com/flowkit-io/flowkit/job"
)

// mergeInputs assembles a job's input payload from the outputs of its
// upstream jobs, following the plan's input mappings. Trigger edges gate
// control flow and contribute no data. A missing source port falls back to
// the upstream default port, then to nil; downstream validation decides
// whether that is acceptable.
func mergeInputs(plan *compiler.ExecutionPlan, nodeID string, jobsByNode map[string]*job.Job) map[string]any {
	mappings := plan.InputMappings[nodeID]
	if len(mappings) == 0 {
		return nil
	}

	inputs := make(map[string]any)
	for _, m := range mappings {
		if m.IsTrigger {
			continue
		}

		dep, ok := jobsByNode[m.NodeID]
		if !ok || dep.OutputData == nil {
			inputs[m.TargetPort] = nil
			continue
		}

		val, ok := dep.OutputData[m.SourcePort]
		if !ok {
			val = dep.OutputData[graph.DefaultPort]
		}
		inputs[m.TargetPort] = val
	}

	if len(inputs) == 0 {
		return nil
	}
	return inputs
}

// jobsByNodeID indexes a pipeline's jobs by the graph node they execute.
func jobsByNodeID(jobs []*job.Job) map[string]*job.Job {
	m := make(map[string]*job.Job, len(jobs))
	for _, j := range jobs {
		m[j.NodeID] = j
	}
	return m
}

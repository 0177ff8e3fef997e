package logger

import "time"

// Standard field key constants for structured logging.
const (
	FieldComponent   = "component"
	FieldPipelineID  = "pipeline_id"
	FieldJobID       = "job_id"
	FieldNodeID      = "node_id"
	FieldExecutionID = "execution_id"
	FieldWorkflowID  = "workflow_id"
	FieldProcessor   = "processor"
	FieldStatus      = "status"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
	FieldRetryCount  = "retry_count"
	FieldQueueTopic  = "queue_topic"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("job done", logger.Fields("job_id", id, "status", "completed"))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// JobFields creates fields identifying one job within one pipeline run.
func JobFields(pipelineID, jobID, nodeID string) map[string]interface{} {
	return map[string]interface{}{
		FieldPipelineID: pipelineID,
		FieldJobID:      jobID,
		FieldNodeID:     nodeID,
	}
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}
